// Package registry holds the tree of host-process root objects tuber
// exposes, and the dotted-path navigator that walks it. Grounded on
// original_source/tuber/server.py's TuberRegistry.
package registry

import (
	"sort"
	"sync"

	"github.com/gsmecher/tuberd/internal/tuberr"
)

// Registry is the top-level collection of named root objects a tuber
// server exposes, the Go equivalent of TuberRegistry (a plain object whose
// attributes are the registered roots).
type Registry struct {
	mu      sync.RWMutex
	objects map[string]any
	order   []string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{objects: make(map[string]any)}
}

// Register adds or replaces a root object under name.
func (r *Registry) Register(name string, obj any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.objects[name]; !exists {
		r.order = append(r.order, name)
	}
	r.objects[name] = obj
}

// Names returns the registered root names sorted by name, mirroring
// list(registry) over TuberRegistry's own __dict__ iteration.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}

// Root returns the registered root object by name.
func (r *Registry) Root(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.objects[name]
	return v, ok
}

// Resolve navigates a dotted object path (e.g. "Class.Attribute[0]") down
// to the Go value it names, the equivalent of
// TuberRegistry.__getitem__'s eval(f"self.{objname}").
func (r *Registry) Resolve(path Path) (any, error) {
	if len(path.segments) == 0 {
		return nil, tuberr.New(tuberr.KindValueError, "empty object name")
	}
	root := path.segments[0]
	cur, ok := r.Root(root.name)
	if !ok {
		return nil, tuberr.Wrap(
			tuberr.New(tuberr.KindAttributeError, "'TuberRegistry' object has no attribute '%s'", root.name),
			objnameSuffix(path.String()),
		)
	}

	for _, seg := range path.segments[1:] {
		var err error
		cur, err = step(cur, seg)
		if err != nil {
			return nil, tuberr.Wrap(err, objnameSuffix(path.String()))
		}
	}
	return cur, nil
}

// ResolveName parses and resolves name in one step.
func (r *Registry) ResolveName(name string) (any, error) {
	p, err := ParsePath(name)
	if err != nil {
		return nil, err
	}
	return r.Resolve(p)
}

func objnameSuffix(name string) string {
	return "(Invalid object name '" + name + "')"
}

func step(cur any, seg segment) (any, error) {
	switch seg.kind {
	case segAttr:
		return getAttr(cur, seg.name)
	case segIndex:
		return getIndex(cur, seg.key)
	default:
		return nil, tuberr.New(tuberr.KindValueError, "invalid path segment")
	}
}
