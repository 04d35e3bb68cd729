package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gsmecher/tuberd/internal/codec"
	"github.com/gsmecher/tuberd/internal/tuberr"
)

// attributeBlacklistPrefixes mirrors client.py's attribute_blacklisted,
// which stops IPython/SQLAlchemy/tuber-internal attribute probes from
// turning into network round-trips.
var attributeBlacklistPrefixes = []string{"_sa", "_ipython", "_tuber"}

func attributeBlacklisted(name string) bool {
	if strings.HasPrefix(name, "__") {
		return true
	}
	for _, p := range attributeBlacklistPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// getObjectName builds a dotted/indexed child object name, the Go
// equivalent of client.py's get_object_name.
func getObjectName(parent, attr string, item any) (string, error) {
	switch {
	case attr != "" && item == nil:
		if parent == "" {
			return attr, nil
		}
		return parent + "." + attr, nil
	case attr == "" && item != nil:
		return parent + "[" + itemLiteral(item) + "]", nil
	default:
		return "", fmt.Errorf("exactly one of attr or item is required")
	}
}

func itemLiteral(item any) string {
	switch v := item.(type) {
	case int:
		return strconv.Itoa(v)
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Object is a proxy for a remote tuber object, the Go equivalent of
// SimpleTuberObject: it starts out unresolved (name only) and, once
// Resolve is called, exposes the server's descriptor as Methods/
// Properties/Objects/Items.
type Object struct {
	transport *Transport
	objname   string
	doc       string

	methods    map[string]struct{}
	properties map[string]any
	objects    map[string]*Object

	container  string // "", "list", or "dict"
	itemKeys   []string
	items      map[string]*Object
	itemDoc    string
	itemMethod map[string]struct{}

	resolved bool
}

// NewObject returns a proxy rooted at objname ("" for the registry root is
// not valid; root objects are named, e.g. "board").
func NewObject(t *Transport, objname string) *Object {
	return &Object{transport: t, objname: objname}
}

// Name returns the object's dotted/indexed path as used on the wire.
func (o *Object) Name() string { return o.objname }

// Doc returns the object's docstring, populated after Resolve.
func (o *Object) Doc() string { return o.doc }

// IsContainer reports whether the object resolved into a list/dict
// container of items.
func (o *Object) IsContainer() bool { return o.container != "" }

// Resolve fetches the object's descriptor and populates its methods,
// properties, nested objects, and (if a container) items — the Go
// equivalent of SimpleTuberObject.tuber_resolve.
func (o *Object) Resolve(ctx context.Context) error {
	ctxBatch := NewContext(o.transport, o.objname)
	f := ctxBatch.AddResolve()
	if err := ctxBatch.Flush(ctx, false); err != nil {
		return err
	}
	meta, err := f.Result()
	if err != nil {
		return err
	}
	m, ok := meta.(*codec.OrderedMap)
	if !ok {
		return tuberr.New(tuberr.KindProtocolError, "unexpected descriptor shape")
	}
	return o.applyMeta(m)
}

func (o *Object) applyMeta(meta *codec.OrderedMap) error {
	o.methods = map[string]struct{}{}
	o.properties = map[string]any{}
	o.objects = map[string]*Object{}

	if v, ok := meta.Get("__doc__"); ok {
		if s, ok := v.(string); ok {
			o.doc = s
		}
	}

	if v, ok := meta.Get("objects"); ok {
		if om, ok := v.(*codec.OrderedMap); ok {
			for _, name := range om.Keys() {
				if attributeBlacklisted(name) {
					continue
				}
				childName, err := getObjectName(o.objname, name, nil)
				if err != nil {
					return err
				}
				child := NewObject(o.transport, childName)
				if childMeta, ok := om.Get(name); ok {
					if cm, ok := childMeta.(*codec.OrderedMap); ok {
						if err := child.applyMeta(cm); err != nil {
							return err
						}
					}
				}
				o.objects[name] = child
			}
		}
	}

	if v, ok := meta.Get("methods"); ok {
		if om, ok := v.(*codec.OrderedMap); ok {
			for _, name := range om.Keys() {
				if attributeBlacklisted(name) {
					continue
				}
				o.methods[name] = struct{}{}
			}
		}
	}

	if v, ok := meta.Get("properties"); ok {
		if om, ok := v.(*codec.OrderedMap); ok {
			for _, name := range om.Keys() {
				if attributeBlacklisted(name) {
					continue
				}
				val, _ := om.Get(name)
				o.properties[name] = val
			}
		}
	}

	if v, ok := meta.Get("container"); ok {
		kind, _ := v.(string)
		o.container = kind

		itemDoc, _ := meta.Get("item_doc")
		if s, ok := itemDoc.(string); ok {
			o.itemDoc = s
		}

		itemMethods, _ := meta.Get("item_methods")

		items, _ := meta.Get("items")
		o.items = map[string]*Object{}

		// No item carries its own "__doc__"/"methods" entries: the server
		// hoists them into item_doc/item_methods and strips them from every
		// item (reflector's container compression), so backfill them before
		// resolving each child.
		backfill := func(cm *codec.OrderedMap) {
			if cm == nil {
				return
			}
			if !cm.Has("__doc__") {
				cm.Set("__doc__", o.itemDoc)
			}
			if !cm.Has("methods") && itemMethods != nil {
				cm.Set("methods", itemMethods)
			}
		}

		switch kind {
		case "list":
			arr, _ := items.([]any)
			o.itemKeys = make([]string, len(arr))
			for i, raw := range arr {
				key := strconv.Itoa(i)
				o.itemKeys[i] = key
				child := NewObject(o.transport, o.objname+"["+key+"]")
				if cm, ok := raw.(*codec.OrderedMap); ok {
					backfill(cm)
					_ = child.applyMeta(cm)
				}
				o.items[key] = child
			}
		case "dict":
			om, _ := items.(*codec.OrderedMap)
			if om != nil {
				o.itemKeys = om.Keys()
				for _, key := range o.itemKeys {
					child := NewObject(o.transport, o.objname+"["+strconv.Quote(key)+"]")
					if raw, ok := om.Get(key); ok {
						if cm, ok := raw.(*codec.OrderedMap); ok {
							backfill(cm)
							_ = child.applyMeta(cm)
						}
					}
					o.items[key] = child
				}
			}
		default:
			return tuberr.New(tuberr.KindValueError, "invalid container type %q", kind)
		}
	}

	o.resolved = true
	return nil
}

// errNotResolved reports the Go equivalent of client.py's
// TuberStateError("Attempt to retrieve metadata on TuberObject that doesn't
// have it yet! Did you forget to call resolve()?"): the descriptor-backed
// maps (methods/properties/objects/items) are nil until Resolve populates
// them, and accessing them before then is a state error, not a bare
// not-found.
func (o *Object) errNotResolved(name string) error {
	return tuberr.New(tuberr.KindStateError, "%q has no attribute %q: call Resolve first", o.objname, name)
}

// Object returns a previously resolved nested object proxy.
func (o *Object) Object(name string) (*Object, error) {
	if !o.resolved {
		return nil, o.errNotResolved(name)
	}
	child, ok := o.objects[name]
	if !ok {
		return nil, tuberr.New(tuberr.KindAttributeError, "%q is not a valid object on %q", name, o.objname)
	}
	return child, nil
}

// Property returns a previously resolved static property value.
func (o *Object) Property(name string) (any, error) {
	if !o.resolved {
		return nil, o.errNotResolved(name)
	}
	v, ok := o.properties[name]
	if !ok {
		return nil, tuberr.New(tuberr.KindAttributeError, "%q is not a valid property on %q", name, o.objname)
	}
	return v, nil
}

// HasMethod reports whether name was advertised as a callable method.
func (o *Object) HasMethod(name string) (bool, error) {
	if !o.resolved {
		return false, o.errNotResolved(name)
	}
	_, ok := o.methods[name]
	return ok, nil
}

// Item returns the resolved proxy for container item key (a decimal index
// for list containers, the literal key for dict containers).
func (o *Object) Item(key string) (*Object, error) {
	if !o.resolved {
		return nil, o.errNotResolved(key)
	}
	child, ok := o.items[key]
	if !ok {
		return nil, tuberr.New(tuberr.KindAttributeError, "%q is not a valid item on %q", key, o.objname)
	}
	return child, nil
}

// Keys returns container item keys in server order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.itemKeys))
	copy(out, o.itemKeys)
	return out
}

// Call invokes a method by name in its own request and returns its result.
func (o *Object) Call(ctx context.Context, method string, args ...any) (any, error) {
	return Call(ctx, o.transport, o.objname, method, args...)
}

// FetchProperty fetches a property's live value from the server (as
// opposed to Property, which returns the value captured at Resolve time).
func (o *Object) FetchProperty(ctx context.Context, property string) (any, error) {
	c := NewContext(o.transport, o.objname)
	f := c.AddPropertyFetch(property)
	if err := c.Flush(ctx, false); err != nil {
		return nil, err
	}
	return f.Result()
}
