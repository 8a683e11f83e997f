package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cwbudde/algo-hotmic/host/plugin"
)

var (
	ErrUnknownPlugin   = errors.New("config: unknown plugin type")
	errDuplicatePlugin = errors.New("config: duplicate plugin type")
)

// Context is passed to a Factory.
type Context struct {
	SampleRate float64
	BlockSize  int
	Channels   int
	Channel    int
	Options    Options
}

// Factory builds one plugin instance.
type Factory func(ctx Context) (plugin.Plugin, error)

// Registry maps plugin type names to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for the given plugin type.
func (r *Registry) Register(pluginType string, factory Factory) error {
	if pluginType == "" {
		return errors.New("config: empty plugin type")
	}

	if factory == nil {
		return errors.New("config: nil factory")
	}

	if _, exists := r.factories[pluginType]; exists {
		return fmt.Errorf("%w: %s", errDuplicatePlugin, pluginType)
	}

	r.factories[pluginType] = factory

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(pluginType string, factory Factory) {
	if err := r.Register(pluginType, factory); err != nil {
		panic(err.Error())
	}
}

// Lookup returns the factory for the given plugin type, or nil.
func (r *Registry) Lookup(pluginType string) Factory {
	return r.factories[pluginType]
}

// Types returns the registered plugin types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}
