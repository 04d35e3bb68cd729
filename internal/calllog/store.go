// Package calllog optionally persists a record of every dispatched tuber
// call, adapted from the teacher gateway's internal/requestlog/store.go
// (an LLM completion log) into an RPC call log: object path, method,
// status, latency and warning count instead of token counts.
package calllog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Entry is one dispatched call.
type Entry struct {
	TraceID      string
	Object       string
	Method       string
	Kind         string // "describe" or "invoke"
	Status       string // "success" or "error"
	DurationMS   int64
	WarningCount int
	ErrorMessage string
	CreatedAt    time.Time
}

// Query defines call log listing filters.
type Query struct {
	Limit  int
	Offset int
	Object string
	Status string
	Since  *time.Time
}

// ListResult is a paginated call log query response.
type ListResult struct {
	Data  []Entry
	Total int
}

// Writer persists call log entries.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// Reader loads call log entries from persistent storage.
type Reader interface {
	List(ctx context.Context, query Query) (ListResult, error)
}

// NoopWriter discards all writes; the default when Config.CallLogDSN is
// unset, keeping persistence entirely optional per spec.md's scope.
type NoopWriter struct{}

func (NoopWriter) Write(context.Context, Entry) error { return nil }

// SQLWriter persists entries to SQLite or Postgres via database/sql.
type SQLWriter struct {
	db      *sql.DB
	dialect string
}

// NewSQLiteWriter opens (and creates, if necessary) a SQLite-backed call log.
func NewSQLiteWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "tuberd-calls.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite call log writer: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "sqlite"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

// NewPostgresWriter opens a Postgres-backed call log.
func NewPostgresWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres call log writer: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "postgres"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLWriter) init() error {
	if err := w.db.Ping(); err != nil {
		return fmt.Errorf("ping %s call log writer: %w", w.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS call_logs (
	id INTEGER PRIMARY KEY,
	trace_id TEXT,
	object TEXT,
	method TEXT,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	warning_count INTEGER NOT NULL,
	error_message TEXT,
	created_at TIMESTAMP NOT NULL
);`

	if w.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS call_logs (
	id BIGSERIAL PRIMARY KEY,
	trace_id TEXT,
	object TEXT,
	method TEXT,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_ms BIGINT NOT NULL,
	warning_count INTEGER NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := w.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize call log schema: %w", err)
	}
	return nil
}

func (w *SQLWriter) Write(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO call_logs(trace_id, object, method, kind, status, duration_ms, warning_count, error_message, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if w.dialect == "postgres" {
		query = `INSERT INTO call_logs(trace_id, object, method, kind, status, duration_ms, warning_count, error_message, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	}

	_, err := w.db.ExecContext(ctx, query,
		entry.TraceID,
		entry.Object,
		entry.Method,
		entry.Kind,
		entry.Status,
		entry.DurationMS,
		entry.WarningCount,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write call log: %w", err)
	}
	return nil
}

// List returns paginated call log entries with optional filters.
func (w *SQLWriter) List(ctx context.Context, query Query) (ListResult, error) {
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	whereClauses := make([]string, 0)
	args := make([]interface{}, 0)

	if query.Object != "" {
		whereClauses = append(whereClauses, "object = ?")
		args = append(args, query.Object)
	}
	if query.Status != "" {
		whereClauses = append(whereClauses, "status = ?")
		args = append(args, query.Status)
	}
	if query.Since != nil {
		whereClauses = append(whereClauses, "created_at >= ?")
		args = append(args, query.Since.UTC())
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM call_logs" + whereSQL
	if w.dialect == "postgres" {
		countQuery = bindPostgres(countQuery)
	}

	var total int
	if err := w.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count call logs: %w", err)
	}

	listQuery := "SELECT trace_id, object, method, kind, status, duration_ms, warning_count, error_message, created_at FROM call_logs" + whereSQL + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	listArgs := append(args, query.Limit, query.Offset)
	if w.dialect == "postgres" {
		listQuery = bindPostgres(listQuery)
	}

	rows, err := w.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list call logs: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e       Entry
			traceID sql.NullString
			object  sql.NullString
			method  sql.NullString
			errMsg  sql.NullString
		)
		if err := rows.Scan(&traceID, &object, &method, &e.Kind, &e.Status, &e.DurationMS, &e.WarningCount, &errMsg, &e.CreatedAt); err != nil {
			return ListResult{}, fmt.Errorf("scan call log row: %w", err)
		}
		if traceID.Valid {
			e.TraceID = traceID.String
		}
		if object.Valid {
			e.Object = object.String
		}
		if method.Valid {
			e.Method = method.String
		}
		if errMsg.Valid {
			e.ErrorMessage = errMsg.String
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterate call logs: %w", err)
	}

	return ListResult{Data: entries, Total: total}, nil
}

func bindPostgres(query string) string {
	var (
		builder strings.Builder
		index   = 1
	)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			builder.WriteString(fmt.Sprintf("$%d", index))
			index++
			continue
		}
		builder.WriteByte(query[i])
	}
	return builder.String()
}

func (w *SQLWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}
