package registry

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/telos-labs/telos/pkg/core"
)

type staticCapability struct {
	name string
}

func (s *staticCapability) Descriptor() core.ToolDescriptor {
	return core.ToolDescriptor{Name: s.name, Description: "static test capability"}
}

func (s *staticCapability) Execute(ctx context.Context, command string) (any, error) {
	return command, nil
}

func goodConstructor(name string) Constructor {
	return func(ctx context.Context) (core.Capability, error) {
		return &staticCapability{name: name}, nil
	}
}

func TestBuildWildcardIncludesAllCandidates(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("alpha", goodConstructor("alpha"))
	catalog.Register("beta", goodConstructor("beta"))

	reg, err := catalog.Build(context.Background(), []string{Wildcard}, BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	available := reg.Available()
	if len(available) != 2 {
		t.Fatalf("expected 2 available tools, got %v", available)
	}
	if available[0] != "alpha" || available[1] != "beta" {
		t.Errorf("expected registration order preserved, got %v", available)
	}
}

func TestBuildExcludesFailingCandidate(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("good", goodConstructor("good"))
	catalog.Register("broken", func(ctx context.Context) (core.Capability, error) {
		return nil, stderrors.New("missing credentials")
	})

	reg, err := catalog.Build(context.Background(), []string{Wildcard}, BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reg.Has("good") {
		t.Errorf("expected good tool to survive")
	}
	if reg.Has("broken") {
		t.Errorf("expected broken candidate to be excluded")
	}
	if _, ok := reg.Descriptor("broken"); ok {
		t.Errorf("expected no metadata for excluded candidate")
	}
}

func TestBuildExcludesPanickingCandidate(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("good", goodConstructor("good"))
	catalog.Register("panics", func(ctx context.Context) (core.Capability, error) {
		panic("constructor blew up")
	})

	reg, err := catalog.Build(context.Background(), []string{Wildcard}, BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Has("panics") {
		t.Errorf("expected panicking candidate to be excluded")
	}
	if len(reg.Available()) != 1 {
		t.Errorf("expected 1 available tool, got %v", reg.Available())
	}
}

func TestBuildRestrictsToEnabledNames(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("alpha", goodConstructor("alpha"))
	catalog.Register("beta", goodConstructor("beta"))

	reg, err := catalog.Build(context.Background(), []string{"beta", "unknown"}, BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Has("alpha") {
		t.Errorf("alpha was not enabled, should be absent")
	}
	if !reg.Has("beta") {
		t.Errorf("expected beta to be available")
	}
}

func TestBuildRequireToolsFailsOnEmptySet(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("broken", func(ctx context.Context) (core.Capability, error) {
		return nil, stderrors.New("down")
	})

	_, err := catalog.Build(context.Background(), []string{Wildcard}, BuildOptions{RequireTools: true})
	if !stderrors.Is(err, ErrNoToolsAvailable) {
		t.Fatalf("expected ErrNoToolsAvailable, got %v", err)
	}
}

func TestBuildEmptySetAllowedWhenNotRequired(t *testing.T) {
	catalog := NewCatalog()

	reg, err := catalog.Build(context.Background(), []string{Wildcard}, BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reg.Available()) != 0 {
		t.Errorf("expected empty registry, got %v", reg.Available())
	}
}

func TestBuildExcludesDescriptorNameMismatch(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("expected", goodConstructor("different"))

	reg, err := catalog.Build(context.Background(), []string{Wildcard}, BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Has("expected") || reg.Has("different") {
		t.Errorf("expected mismatched candidate to be excluded, got %v", reg.Available())
	}
}
