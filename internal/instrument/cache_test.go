package instrument

import (
	"path/filepath"
	"testing"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "instruments.db"))
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpenSeedsTypeCodes(t *testing.T) {
	c := openTestCache(t)

	for _, code := range []string{"spot_pair", "future", "perpetual", "equity"} {
		if _, ok := c.TypeCode(code); !ok {
			t.Errorf("TypeCode(%q) not seeded", code)
		}
	}
	if _, ok := c.TypeCode("bond"); ok {
		t.Error("TypeCode(bond) unexpectedly present")
	}
}

func TestAddAndLookup(t *testing.T) {
	c := openTestCache(t)

	err := c.AddInstrument(Instrument{
		Symbol:   "btcusd",
		Exchange: "Phemex",
		TypeCode: "perpetual",
		TickSize: 0.5,
		LotSize:  1,
	})
	if err != nil {
		t.Fatalf("AddInstrument() returned error: %v", err)
	}

	inst, ok := c.BySymbol("BTCUSD")
	if !ok {
		t.Fatal("BySymbol(BTCUSD) not found")
	}
	if inst.Exchange != "phemex" {
		t.Errorf("inst.Exchange = %q, want %q", inst.Exchange, "phemex")
	}
	if inst.TickSize != 0.5 {
		t.Errorf("inst.TickSize = %f, want 0.5", inst.TickSize)
	}

	// Symbol lookup is case-insensitive on input.
	if _, ok := c.BySymbol("btcusd"); !ok {
		t.Error("BySymbol(btcusd) not found with lower-case input")
	}

	listed := c.ByExchange("PHEMEX")
	if len(listed) != 1 || listed[0].Symbol != "BTCUSD" {
		t.Errorf("ByExchange(PHEMEX) = %+v, want one BTCUSD entry", listed)
	}
}

func TestAddUnknownTypeCode(t *testing.T) {
	c := openTestCache(t)
	err := c.AddInstrument(Instrument{Symbol: "X", Exchange: "sim", TypeCode: "bond"})
	if err == nil {
		t.Fatal("AddInstrument() with unknown type code returned nil error")
	}
}

func TestReloadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instruments.db")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	if err := c.AddInstrument(Instrument{
		Symbol: "ETHUSD", Exchange: "sim", TypeCode: "spot_pair",
	}); err != nil {
		t.Fatalf("AddInstrument() returned error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopening cache: %v", err)
	}
	defer reopened.Close()

	if reopened.Len() != 1 {
		t.Fatalf("reopened.Len() = %d, want 1", reopened.Len())
	}
	if _, ok := reopened.BySymbol("ETHUSD"); !ok {
		t.Error("BySymbol(ETHUSD) not found after reload")
	}
}
