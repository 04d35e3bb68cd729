package registry

import "testing"

type widget struct{ N int }

func TestNewListContainer(t *testing.T) {
	c, err := NewListContainer([]any{&widget{N: 1}, &widget{N: 2}, &widget{N: 3}})
	if err != nil {
		t.Fatalf("NewListContainer: %v", err)
	}
	if c.Kind() != "list" {
		t.Fatalf("Kind = %q", c.Kind())
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d", c.Len())
	}
	if got, want := c.Keys(), []string{"0", "1", "2"}; len(got) != len(want) {
		t.Fatalf("Keys = %v", got)
	}
	v, ok := c.At("1")
	if !ok {
		t.Fatalf("At(1) not found")
	}
	if v.(*widget).N != 2 {
		t.Fatalf("At(1) = %v", v)
	}
	if _, ok := c.At("99"); ok {
		t.Fatalf("At(99) should not be found")
	}
}

func TestNewListContainerRejectsEmpty(t *testing.T) {
	if _, err := NewListContainer(nil); err == nil {
		t.Fatalf("expected error for empty container")
	}
}

func TestNewListContainerRejectsHeterogeneous(t *testing.T) {
	_, err := NewListContainer([]any{&widget{N: 1}, "not a widget"})
	if err == nil {
		t.Fatalf("expected error for heterogeneous items")
	}
}

func TestNewDictContainer(t *testing.T) {
	values := map[string]any{
		"a": &widget{N: 1},
		"b": &widget{N: 2},
	}
	c, err := NewDictContainer([]string{"b", "a"}, values)
	if err != nil {
		t.Fatalf("NewDictContainer: %v", err)
	}
	if c.Kind() != "dict" {
		t.Fatalf("Kind = %q", c.Kind())
	}
	if got, want := c.Keys(), []string{"b", "a"}; got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Keys() = %v, want order %v", got, want)
	}
	v, ok := c.At("a")
	if !ok || v.(*widget).N != 1 {
		t.Fatalf("At(a) = %v, ok=%v", v, ok)
	}
}

func TestNewDictContainerMissingKeyErrors(t *testing.T) {
	_, err := NewDictContainer([]string{"missing"}, map[string]any{"a": &widget{N: 1}})
	if err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestContainerItemByOrdinal(t *testing.T) {
	c, err := NewListContainer([]any{&widget{N: 10}, &widget{N: 20}})
	if err != nil {
		t.Fatalf("NewListContainer: %v", err)
	}
	v, ok := c.Item(1)
	if !ok || v.(*widget).N != 20 {
		t.Fatalf("Item(1) = %v, ok=%v", v, ok)
	}
	if _, ok := c.Item(5); ok {
		t.Fatalf("Item(5) should be out of range")
	}
}
