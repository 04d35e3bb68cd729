package registry

import (
	"strconv"
	"strings"

	"github.com/gsmecher/tuberd/internal/tuberr"
)

// Path is a parsed object-path accessor, e.g. "Class.Attribute[0]".
// TuberRegistry.__getitem__ in the Python original evaluates this string
// with eval(f"self.{objname}"); Go has no eval, so the dotted-string sugar
// of spec.md §4.2 is parsed into a small instruction list instead and
// walked by reflection (see resolve.go).
type Path struct {
	segments []segment
}

type segmentKind int

const (
	segAttr segmentKind = iota
	segIndex
)

type segment struct {
	kind segmentKind
	name string // segAttr
	key  string // segIndex, after stripping quotes
}

// ParsePath parses a dotted-accessor path. Grammar:
//
//	path    := ident ( "." ident | "[" index "]" )*
//	index   := chars | "'" chars "'" | "\"" chars "\""   (chars: any bytes but "]", non-empty)
//
// No other syntax is accepted; this deliberately cannot express arbitrary
// Go/Python expressions, only attribute/index chains.
func ParsePath(path string) (Path, error) {
	if path == "" {
		return Path{}, tuberr.New(tuberr.KindValueError, "empty object name")
	}
	var segs []segment
	i := 0
	n := len(path)

	readIdent := func() (string, error) {
		start := i
		for i < n && (isIdentByte(path[i], i == start)) {
			i++
		}
		if i == start {
			return "", tuberr.New(tuberr.KindValueError, "invalid object name %q", path)
		}
		return path[start:i], nil
	}

	first, err := readIdent()
	if err != nil {
		return Path{}, err
	}
	segs = append(segs, segment{kind: segAttr, name: first})

	for i < n {
		switch path[i] {
		case '.':
			i++
			ident, err := readIdent()
			if err != nil {
				return Path{}, err
			}
			segs = append(segs, segment{kind: segAttr, name: ident})
		case '[':
			i++
			start := i
			for i < n && path[i] != ']' {
				i++
			}
			if i >= n {
				return Path{}, tuberr.New(tuberr.KindValueError, "invalid object name %q (unterminated '[')", path)
			}
			key := path[start:i]
			i++ // skip ']'
			key = unquote(key)
			if key == "" {
				return Path{}, tuberr.New(tuberr.KindValueError, "invalid object name %q (empty index)", path)
			}
			segs = append(segs, segment{kind: segIndex, key: key})
		default:
			return Path{}, tuberr.New(tuberr.KindValueError, "invalid object name %q", path)
		}
	}

	return Path{segments: segs}, nil
}

func isIdentByte(b byte, first bool) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b == '_':
		return true
	case b >= '0' && b <= '9':
		return !first
	default:
		return false
	}
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// String reconstructs the canonical textual form of the path.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p.segments {
		switch s.kind {
		case segAttr:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.name)
		case segIndex:
			b.WriteByte('[')
			if _, err := strconv.Atoi(s.key); err == nil {
				b.WriteString(s.key)
			} else {
				b.WriteByte('\'')
				b.WriteString(s.key)
				b.WriteByte('\'')
			}
			b.WriteByte(']')
		}
	}
	return b.String()
}

// RootName returns the first attribute segment, the registry entry name.
func (p Path) RootName() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[0].name
}
