// Package registry builds the immutable set of capabilities available to a
// run. Candidates are registered as independently fallible constructors; a
// broken candidate is excluded and logged, never aborting the whole build.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/errors"
)

// Wildcard selects every successfully-instantiated candidate.
const Wildcard = "all"

// ErrNoToolsAvailable is returned by Build when the final available set is
// empty and the caller required at least one tool.
var ErrNoToolsAvailable = errors.New(errors.CodeNoTools, "no tools available after registry build", nil)

// Constructor instantiates a capability. It may fail (missing credentials,
// unreachable backend); failure excludes only that candidate.
type Constructor func(ctx context.Context) (core.Capability, error)

// Catalog is a named set of capability constructors to build a Registry from.
type Catalog struct {
	constructors map[string]Constructor
	order        []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{constructors: make(map[string]Constructor)}
}

// Register adds a constructor under name. Registering the same name twice
// replaces the earlier entry.
func (c *Catalog) Register(name string, ctor Constructor) {
	if _, exists := c.constructors[name]; !exists {
		c.order = append(c.order, name)
	}
	c.constructors[name] = ctor
}

// Names returns the registered candidate names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Registry is the immutable mapping from tool name to capability and
// descriptor. It is read-only after Build and safe to share across
// concurrently running orchestrators.
type Registry struct {
	capabilities map[string]core.Capability
	metadata     map[string]core.ToolDescriptor
	available    []string
}

// BuildOptions controls registry construction.
type BuildOptions struct {
	// RequireTools makes an empty available set a fatal build error.
	RequireTools bool
	Logger       *slog.Logger
}

// Build instantiates the enabled candidates from the catalog.
//
// enabledNames restricts the build to the intersection of candidates and the
// requested names; the Wildcard sentinel enables every candidate. Metadata is
// re-filtered to exactly the final available set, so a descriptor never
// references an unavailable tool.
func (c *Catalog) Build(ctx context.Context, enabledNames []string, opts BuildOptions) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled := make(map[string]bool, len(enabledNames))
	loadAll := false
	for _, name := range enabledNames {
		if name == Wildcard {
			loadAll = true
			continue
		}
		enabled[name] = true
	}

	reg := &Registry{
		capabilities: make(map[string]core.Capability),
		metadata:     make(map[string]core.ToolDescriptor),
	}

	for _, name := range c.order {
		if !loadAll && !enabled[name] {
			continue
		}
		capability, err := instantiate(ctx, c.constructors[name])
		if err != nil {
			logger.Warn("excluding tool candidate", "tool", name, "error", err)
			continue
		}
		desc := capability.Descriptor()
		if desc.Name == "" {
			desc.Name = name
		}
		if desc.Name != name {
			logger.Warn("excluding tool candidate: descriptor name mismatch",
				"tool", name, "descriptor", desc.Name)
			continue
		}
		desc.Available = true
		reg.capabilities[name] = capability
		reg.metadata[name] = desc
		reg.available = append(reg.available, name)
	}

	// Requested names that never resolved are reported once, not fatally.
	for _, name := range enabledNames {
		if name == Wildcard {
			continue
		}
		if _, ok := c.constructors[name]; !ok {
			logger.Warn("requested tool is not a known candidate", "tool", name)
		}
	}

	if len(reg.available) == 0 && opts.RequireTools {
		return nil, ErrNoToolsAvailable
	}

	logger.Info("tool registry built", "available", reg.available)
	return reg, nil
}

// instantiate calls the constructor, converting a panic into a build error so
// one misbehaving candidate cannot take down initialization.
func instantiate(ctx context.Context, ctor Constructor) (capability core.Capability, err error) {
	defer func() {
		if r := recover(); r != nil {
			capability = nil
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	capability, err = ctor(ctx)
	if err != nil {
		return nil, err
	}
	if capability == nil {
		return nil, fmt.Errorf("constructor returned nil capability")
	}
	return capability, nil
}

// Available returns the ordered list of available tool names.
func (r *Registry) Available() []string {
	out := make([]string, len(r.available))
	copy(out, r.available)
	return out
}

// Has reports whether name is in the available set.
func (r *Registry) Has(name string) bool {
	_, ok := r.capabilities[name]
	return ok
}

// Capability returns the capability for name.
func (r *Registry) Capability(name string) (core.Capability, bool) {
	capability, ok := r.capabilities[name]
	return capability, ok
}

// Descriptor returns the metadata for name.
func (r *Registry) Descriptor(name string) (core.ToolDescriptor, bool) {
	desc, ok := r.metadata[name]
	return desc, ok
}

// Descriptors returns all descriptors sorted by tool name.
func (r *Registry) Descriptors() []core.ToolDescriptor {
	out := make([]core.ToolDescriptor, 0, len(r.metadata))
	for _, desc := range r.metadata {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
