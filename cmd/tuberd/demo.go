package main

import (
	"fmt"

	"github.com/gsmecher/tuberd/internal/registry"
)

// demoBoard is a small host object exposed by default so a fresh tuberd
// instance has something to describe/invoke against; real deployments
// register their own objects in place of this one.
type demoBoard struct {
	Channels *demoChannels
}

// TuberDoc documents the root object itself, surfaced as "__doc__" in its
// descriptor.
func (b *demoBoard) TuberDoc() string {
	return "Example board exposing a bank of channels."
}

// Identify returns a fixed identity string.
func (b *demoBoard) Identify() string {
	return "tuberd demo board"
}

// Echo returns its argument unchanged, useful for exercising the codec and
// dispatch layers end to end.
func (b *demoBoard) Echo(s string) string {
	return s
}

type demoChannels struct {
	items []*demoChannel
}

func (c *demoChannels) TuberContainer() bool { return true }
func (c *demoChannels) Kind() string         { return "list" }
func (c *demoChannels) Len() int             { return len(c.items) }

func (c *demoChannels) Keys() []string {
	keys := make([]string, len(c.items))
	for i := range c.items {
		keys[i] = fmt.Sprintf("%d", i)
	}
	return keys
}

func (c *demoChannels) At(key string) (any, bool) {
	var idx int
	if _, err := fmt.Sscanf(key, "%d", &idx); err != nil {
		return nil, false
	}
	if idx < 0 || idx >= len(c.items) {
		return nil, false
	}
	return c.items[idx], true
}

type demoChannel struct {
	Index int
	Gain  float64
}

func (c *demoChannel) TuberDoc() string {
	return "A single configurable channel."
}

func (c *demoChannel) SetGain(gain float64) float64 {
	c.Gain = gain
	return c.Gain
}

func (c *demoChannel) GetGain() float64 {
	return c.Gain
}

func registerDemoObjects(reg *registry.Registry) {
	channels := &demoChannels{}
	for i := 0; i < 4; i++ {
		channels.items = append(channels.items, &demoChannel{Index: i, Gain: 1.0})
	}
	reg.Register("board", &demoBoard{Channels: channels})
}
