package registry

import (
	"fmt"
	"reflect"

	"github.com/gsmecher/tuberd/internal/tuberr"
)

// Container is the Go equivalent of server.py's TuberContainer: a
// same-typed collection of host objects, exposed to clients as either a
// list (ordinal keys) or a dict (string keys), with ordering preserved.
type Container struct {
	kind  string // "list" or "dict"
	keys  []string
	items []any
}

// NewListContainer builds a container over items, all of which must share
// the same concrete type (server.py's TuberContainer.__init__ enforces the
// same invariant via type(v) != tp).
func NewListContainer(items []any) (*Container, error) {
	if len(items) == 0 {
		return nil, tuberr.New(tuberr.KindValueError, "Empty list container")
	}
	if err := checkHomogeneous(items); err != nil {
		return nil, err
	}
	c := &Container{kind: "list", items: items}
	c.keys = make([]string, len(items))
	for i := range items {
		c.keys[i] = fmt.Sprintf("%d", i)
	}
	return c, nil
}

// NewDictContainer builds a container over a string-keyed collection. keys
// fixes iteration/resolve order since Go maps have none.
func NewDictContainer(keys []string, values map[string]any) (*Container, error) {
	if len(keys) == 0 {
		return nil, tuberr.New(tuberr.KindValueError, "Empty dict container")
	}
	items := make([]any, len(keys))
	for i, k := range keys {
		v, ok := values[k]
		if !ok {
			return nil, tuberr.New(tuberr.KindValueError, "missing container key %q", k)
		}
		items[i] = v
	}
	if err := checkHomogeneous(items); err != nil {
		return nil, err
	}
	return &Container{kind: "dict", keys: append([]string(nil), keys...), items: items}, nil
}

func checkHomogeneous(items []any) error {
	want := reflect.TypeOf(items[0])
	for _, v := range items {
		if reflect.TypeOf(v) != want {
			return tuberr.New(tuberr.KindTypeError, "All entries must be of type %s", want)
		}
	}
	return nil
}

// TuberContainer marks Container as a tuber container to the reflector,
// the Go equivalent of the __tuber_object__/container-detection check in
// resolve_object.
func (c *Container) TuberContainer() bool { return true }

// Kind returns "list" or "dict".
func (c *Container) Kind() string { return c.kind }

// Len returns the number of items.
func (c *Container) Len() int { return len(c.items) }

// Keys returns the container's keys in order ("0","1",... for a list).
func (c *Container) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// At returns the item for a given key (index string for lists, map key for
// dicts).
func (c *Container) At(key string) (any, bool) {
	for i, k := range c.keys {
		if k == key {
			return c.items[i], true
		}
	}
	return nil, false
}

// Item returns the item at ordinal position i.
func (c *Container) Item(i int) (any, bool) {
	if i < 0 || i >= len(c.items) {
		return nil, false
	}
	return c.items[i], true
}
