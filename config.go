// Package tuberd is the reflection-driven RPC server described by
// SPEC_FULL.md: a registry of host objects exposed over HTTP via a
// batched describe/invoke protocol with JSON/CBOR codec negotiation.
package tuberd

// Config holds tuberd's server-side configuration, adapted from the
// teacher gateway's Config (listen address, verbosity, CORS) and extended
// with tuber-specific knobs: schema validation and the optional call log.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen" json:"listen"`

	// WebRoot, if set, serves static files from this directory alongside
	// the /tuber endpoint (an explicit external collaborator per spec.md's
	// scope note, wired with stdlib http.FileServer in cmd/tuberd).
	WebRoot string `yaml:"webroot" json:"webroot"`

	// DefaultFormat is the media type assumed when a request carries no
	// Content-Type header.
	DefaultFormat string `yaml:"default_format" json:"default_format"`

	// EnableCBOR registers the optional CBOR codec alongside JSON.
	EnableCBOR bool `yaml:"enable_cbor" json:"enable_cbor"`

	// Validate turns on JSON-Schema validation of requests/responses
	// (spec.md §4.6). Off by default, matching the Python original's
	// "--validate" flag default.
	Validate bool `yaml:"validate" json:"validate"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LogFormat is "json" or "text".
	LogFormat string `yaml:"log_format" json:"log_format"`

	// CallLogDSN, if set, enables persistence of dispatched calls.
	// Recognized forms: "sqlite:<path>", "postgres://...".
	CallLogDSN string `yaml:"call_log_dsn" json:"call_log_dsn"`

	// CORSOrigins lists allowed Access-Control-Allow-Origin values for
	// cmd/tuberd's router; "*" allows any origin.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
}

// DefaultConfig returns the configuration tuberd runs with when no config
// file is supplied.
func DefaultConfig() Config {
	return Config{
		Listen:        ":8080",
		DefaultFormat: "application/json",
		EnableCBOR:    true,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}
