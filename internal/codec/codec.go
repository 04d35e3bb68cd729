// Package codec implements the tuber wire codecs (spec.md §4.1): a
// mandatory JSON codec and an optional CBOR codec sharing the same
// binary-safe extensions (byte sequences, typed arrays, multi-dimensional
// arrays).
package codec

import (
	"sync"

	"github.com/gsmecher/tuberd/internal/tuberr"
)

// Codec encodes and decodes values for one media type.
type Codec interface {
	// MediaType returns the registered media type, e.g. "application/json".
	MediaType() string
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// Registry holds the codecs available at runtime. JSON is always present;
// CBOR is registered only if the host process links it in (spec.md: "CBOR
// is optional").
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
	order  []string
}

// NewRegistry returns a Registry with the JSON codec registered.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	r.Register(NewJSON())
	return r
}

// NewRegistryWithCBOR returns a Registry with both the mandatory JSON codec
// and the optional CBOR codec registered.
func NewRegistryWithCBOR() (*Registry, error) {
	r := NewRegistry()
	c, err := NewCBOR()
	if err != nil {
		return nil, err
	}
	r.Register(c)
	return r, nil
}

// Register adds or replaces a codec by its media type.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codecs[c.MediaType()]; !exists {
		r.order = append(r.order, c.MediaType())
	}
	r.codecs[c.MediaType()] = c
}

// Get returns the codec registered for mediaType, if any.
func (r *Registry) Get(mediaType string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[mediaType]
	return c, ok
}

// Has reports whether mediaType is registered.
func (r *Registry) Has(mediaType string) bool {
	_, ok := r.Get(mediaType)
	return ok
}

// MediaTypes returns the registered media types in registration order.
func (r *Registry) MediaTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Encode encodes v using the codec registered for mediaType.
func (r *Registry) Encode(mediaType string, v any) ([]byte, error) {
	c, ok := r.Get(mediaType)
	if !ok {
		return nil, tuberr.New(tuberr.KindValueError, "not able to encode media type %s", mediaType)
	}
	data, err := c.Encode(v)
	if err != nil {
		return nil, tuberr.New(tuberr.KindCodecEncode, "%v", err)
	}
	return data, nil
}

// Decode decodes data using the codec registered for mediaType.
func (r *Registry) Decode(mediaType string, data []byte) (any, error) {
	c, ok := r.Get(mediaType)
	if !ok {
		return nil, tuberr.New(tuberr.KindValueError, "not able to decode media type %s", mediaType)
	}
	v, err := c.Decode(data)
	if err != nil {
		return nil, tuberr.New(tuberr.KindCodecDecode, "%v", err)
	}
	return v, nil
}
