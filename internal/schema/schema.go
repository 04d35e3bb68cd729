// Package schema validates tuber requests and responses against the
// JSON-Schemas of spec.md §4.6, transcribed from
// original_source/tuber/schema.py. Validation only runs when the server is
// configured to do so (Config.Validate) — per schema.py's own docstring,
// it guards against server/client protocol drift, not malicious input.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const requestSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "single": {
      "type": "object",
      "properties": {
        "args": {"type": "array"},
        "kwargs": {"type": "object"},
        "object": {
          "oneOf": [
            {"type": "null"},
            {"type": "string"},
            {"type": "array"}
          ]
        },
        "property": {"type": "string"},
        "method": {"type": "string"},
        "resolve": {"type": "boolean"}
      },
      "additionalProperties": false
    }
  },
  "oneOf": [
    {"$ref": "#/$defs/single"},
    {"type": "array", "items": {"$ref": "#/$defs/single"}}
  ]
}`

const responseSchemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "warnings": {"type": "array", "items": {"type": "string"}},
    "valid": {
      "type": "object",
      "properties": {
        "result": {},
        "warnings": {"$ref": "#/$defs/warnings"}
      },
      "required": ["result"],
      "additionalProperties": false
    },
    "error": {
      "type": "object",
      "properties": {
        "error": {
          "type": "object",
          "properties": {"message": {"type": "string"}}
        },
        "warnings": {"$ref": "#/$defs/warnings"}
      },
      "required": ["error"],
      "additionalProperties": false
    },
    "single": {
      "oneOf": [
        {"$ref": "#/$defs/valid"},
        {"$ref": "#/$defs/error"}
      ]
    }
  },
  "oneOf": [
    {"$ref": "#/$defs/single"},
    {"type": "array", "items": {"$ref": "#/$defs/single"}}
  ]
}`

// Validator compiles and holds the request/response schemas once so that
// per-call validation (optionally enabled via Config.Validate) is cheap.
type Validator struct {
	request  *jsonschema.Schema
	response *jsonschema.Schema
}

// NewValidator compiles both schemas.
func NewValidator() (*Validator, error) {
	req, err := compile("request.json", requestSchemaDoc)
	if err != nil {
		return nil, fmt.Errorf("schema: compiling request schema: %w", err)
	}
	resp, err := compile("response.json", responseSchemaDoc)
	if err != nil {
		return nil, fmt.Errorf("schema: compiling response schema: %w", err)
	}
	return &Validator{request: req, response: resp}, nil
}

func compile(name, doc string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(doc)); err != nil {
		return nil, err
	}
	return c.Compile(name)
}

// ValidateRequest checks raw JSON request bytes against
// request_single/request_array. The schema library requires plain
// encoding/json values (map[string]any, float64), so the body is decoded
// independently of the tuber wire codec's OrderedMap/json.Number model
// purely for this structural check.
func (v *Validator) ValidateRequest(data []byte) error {
	return v.validate(v.request, data)
}

// ValidateResponse checks raw JSON response bytes the same way.
func (v *Validator) ValidateResponse(data []byte) error {
	return v.validate(v.response, data)
}

func (v *Validator) validate(s *jsonschema.Schema, data []byte) error {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("schema: decoding for validation: %w", err)
	}
	if err := s.Validate(decoded); err != nil {
		return fmt.Errorf("does not conform to schema: %w", err)
	}
	return nil
}
