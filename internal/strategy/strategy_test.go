package strategy

import (
	"errors"
	"testing"

	"helios/internal/config"
)

type noopStrategy struct {
	inited  bool
	started bool
}

func (s *noopStrategy) Init(*Context) error { s.inited = true; return nil }
func (s *noopStrategy) Start() error        { s.started = true; return nil }

func TestLoaderRegisterAndLoad(t *testing.T) {
	loader := NewLoader()
	loader.Register("builtins", "Noop", func() Strategy { return &noopStrategy{} })

	s, err := loader.Load("builtins", "Noop")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if _, ok := s.(*noopStrategy); !ok {
		t.Fatalf("Load() returned %T, want *noopStrategy", s)
	}

	// Each Load produces a fresh instance.
	s2, err := loader.Load("builtins", "Noop")
	if err != nil {
		t.Fatalf("second Load() returned error: %v", err)
	}
	if s == s2 {
		t.Error("Load() returned the same instance twice")
	}
}

func TestLoaderNotRegistered(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Load("strategies.momentum", "Momentum")
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("Load() error = %v, want ErrNotRegistered", err)
	}
}

func TestLoaderDuplicateRegistrationPanics(t *testing.T) {
	loader := NewLoader()
	loader.Register("builtins", "Noop", func() Strategy { return &noopStrategy{} })

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register() did not panic")
		}
	}()
	loader.Register("builtins", "Noop", func() Strategy { return &noopStrategy{} })
}

func TestLoaderRegistered(t *testing.T) {
	loader := NewLoader()
	loader.Register("b", "Two", func() Strategy { return &noopStrategy{} })
	loader.Register("a", "One", func() Strategy { return &noopStrategy{} })

	got := loader.Registered()
	if len(got) != 2 || got[0] != "a.One" || got[1] != "b.Two" {
		t.Errorf("Registered() = %v, want sorted [a.One b.Two]", got)
	}
}

func TestContextGetenv(t *testing.T) {
	v := "42"
	env, err := config.NewEnvironment([]config.Entry{{Key: "SMA_SHORT", Value: &v}}, nil)
	if err != nil {
		t.Fatalf("NewEnvironment() returned error: %v", err)
	}

	ctx := NewContext(env)
	if got := ctx.Getenv("SMA_SHORT", "10"); got != "42" {
		t.Errorf("Getenv(SMA_SHORT) = %q, want 42", got)
	}
	if got := ctx.Getenv("SMA_LONG", "50"); got != "50" {
		t.Errorf("Getenv(SMA_LONG) = %q, want default 50", got)
	}

	empty := NewContext(nil)
	if got := empty.Getenv("ANY", "fallback"); got != "fallback" {
		t.Errorf("Getenv() on nil environment = %q, want fallback", got)
	}
}
