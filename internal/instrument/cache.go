// Package instrument provides the shared instrument and type-code caches
// backed by a SQLite database. Both caches are loaded once at startup and are
// read-only afterward; every connector and strategy in the process shares the
// same instance.
package instrument

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// TypeCode classifies an instrument (spot pair, future, index, ...).
type TypeCode struct {
	ID   int64
	Code string
	Desc string
}

// Instrument is a tradable symbol on one exchange.
type Instrument struct {
	Symbol   string
	Exchange string
	TypeCode string
	TickSize float64
	LotSize  float64
}

// Cache holds every known instrument and type code in memory.
type Cache struct {
	db            *sql.DB
	bySymbol      map[string]Instrument
	byExchange    map[string][]Instrument
	typeCodeByID  map[int64]TypeCode
	typeCodeByTag map[string]TypeCode
}

// defaultTypeCodes seed an empty database so a fresh deployment has a usable
// classification table.
var defaultTypeCodes = []TypeCode{
	{Code: "spot_pair", Desc: "Spot currency pair"},
	{Code: "future", Desc: "Futures contract"},
	{Code: "perpetual", Desc: "Perpetual swap"},
	{Code: "equity", Desc: "Listed equity"},
}

// Open opens (or creates) the instrument database at dbPath, ensures the
// schema exists, and loads all instruments and type codes into memory.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening instrument db %s: %w", dbPath, err)
	}

	c := &Cache{
		db:            db,
		bySymbol:      make(map[string]Instrument),
		byExchange:    make(map[string][]Instrument),
		typeCodeByID:  make(map[int64]TypeCode),
		typeCodeByTag: make(map[string]TypeCode),
	}

	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := c.loadTypeCodes(); err != nil {
		db.Close()
		return nil, err
	}
	if err := c.loadInstruments(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection. The in-memory maps remain
// valid afterward.
func (c *Cache) Close() error {
	return c.db.Close()
}

// BySymbol looks up an instrument by its upper-cased symbol.
func (c *Cache) BySymbol(symbol string) (Instrument, bool) {
	inst, ok := c.bySymbol[strings.ToUpper(symbol)]
	return inst, ok
}

// ByExchange returns all instruments listed on the given exchange, in symbol
// order as loaded.
func (c *Cache) ByExchange(exchange string) []Instrument {
	return c.byExchange[strings.ToLower(exchange)]
}

// TypeCode looks up a type code by its tag (e.g. "spot_pair").
func (c *Cache) TypeCode(code string) (TypeCode, bool) {
	tc, ok := c.typeCodeByTag[code]
	return tc, ok
}

// Len reports the number of cached instruments.
func (c *Cache) Len() int {
	return len(c.bySymbol)
}

// AddInstrument inserts an instrument into the database and the in-memory
// cache. Intended for provisioning and tests; the engine itself only reads.
func (c *Cache) AddInstrument(inst Instrument) error {
	if _, ok := c.typeCodeByTag[inst.TypeCode]; !ok {
		return fmt.Errorf("unknown type code %q for instrument %s", inst.TypeCode, inst.Symbol)
	}
	inst.Symbol = strings.ToUpper(inst.Symbol)
	inst.Exchange = strings.ToLower(inst.Exchange)

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO instruments (symbol, exchange, type_code, tick_size, lot_size)
		VALUES (?, ?, ?, ?, ?)`,
		inst.Symbol, inst.Exchange, inst.TypeCode, inst.TickSize, inst.LotSize)
	if err != nil {
		return fmt.Errorf("inserting instrument %s: %w", inst.Symbol, err)
	}

	c.bySymbol[inst.Symbol] = inst
	c.byExchange[inst.Exchange] = append(c.byExchange[inst.Exchange], inst)
	return nil
}

// ---------------------------------------------------------------------------
// Schema + loading
// ---------------------------------------------------------------------------

func (c *Cache) ensureSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS type_codes (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT NOT NULL UNIQUE,
			descr TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS instruments (
			symbol    TEXT PRIMARY KEY,
			exchange  TEXT NOT NULL,
			type_code TEXT NOT NULL REFERENCES type_codes(code),
			tick_size REAL NOT NULL DEFAULT 0,
			lot_size  REAL NOT NULL DEFAULT 0
		);`)
	if err != nil {
		return fmt.Errorf("ensuring instrument schema: %w", err)
	}

	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM type_codes`).Scan(&count); err != nil {
		return fmt.Errorf("counting type codes: %w", err)
	}
	if count == 0 {
		for _, tc := range defaultTypeCodes {
			if _, err := c.db.Exec(
				`INSERT INTO type_codes (code, descr) VALUES (?, ?)`, tc.Code, tc.Desc); err != nil {
				return fmt.Errorf("seeding type code %q: %w", tc.Code, err)
			}
		}
	}
	return nil
}

func (c *Cache) loadTypeCodes() error {
	rows, err := c.db.Query(`SELECT id, code, descr FROM type_codes ORDER BY id`)
	if err != nil {
		return fmt.Errorf("loading type codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tc TypeCode
		if err := rows.Scan(&tc.ID, &tc.Code, &tc.Desc); err != nil {
			return fmt.Errorf("scanning type code: %w", err)
		}
		c.typeCodeByID[tc.ID] = tc
		c.typeCodeByTag[tc.Code] = tc
	}
	return rows.Err()
}

func (c *Cache) loadInstruments() error {
	rows, err := c.db.Query(`
		SELECT symbol, exchange, type_code, tick_size, lot_size
		FROM instruments ORDER BY symbol`)
	if err != nil {
		return fmt.Errorf("loading instruments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var inst Instrument
		if err := rows.Scan(&inst.Symbol, &inst.Exchange, &inst.TypeCode,
			&inst.TickSize, &inst.LotSize); err != nil {
			return fmt.Errorf("scanning instrument: %w", err)
		}
		c.bySymbol[inst.Symbol] = inst
		c.byExchange[inst.Exchange] = append(c.byExchange[inst.Exchange], inst)
	}
	return rows.Err()
}
