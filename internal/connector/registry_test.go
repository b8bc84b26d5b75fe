package connector

import (
	"errors"
	"testing"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry[string]()
	if err := r.Register("phemex", "fh-phemex"); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	got, err := r.Get("phemex")
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if got != "fh-phemex" {
		t.Errorf("Get() = %q, want %q", got, "fh-phemex")
	}
}

func TestRegistryDuplicateKey(t *testing.T) {
	r := NewRegistry[int]()
	if err := r.Register("a", 1); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}
	err := r.Register("a", 2)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Register() duplicate error = %v, want ErrDuplicateKey", err)
	}
	// The original registration survives.
	if got, _ := r.Get("a"); got != 1 {
		t.Errorf("Get(a) = %d, want 1 after failed duplicate", got)
	}
}

func TestRegistryNotFound(t *testing.T) {
	r := NewRegistry[int]()
	_, err := r.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRegistryIterationOrder(t *testing.T) {
	r := NewRegistry[int]()
	for i, key := range []string{"c", "a", "b"} {
		if err := r.Register(key, i); err != nil {
			t.Fatalf("Register(%q) returned error: %v", key, err)
		}
	}

	keys := r.Keys()
	want := []string{"c", "a", "b"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v, want registration order %v", keys, want)
		}
	}

	items := r.All()
	for i, v := range []int{0, 1, 2} {
		if items[i] != v {
			t.Fatalf("All() = %v, want registration order [0 1 2]", items)
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}
