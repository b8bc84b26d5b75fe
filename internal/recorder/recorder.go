// Package recorder captures every trade seen by the feed handlers and
// persists it to Parquet files on disk, partitioned by exchange, symbol, and
// date. Recording is optional and enabled by pointing MD_RECORD_DIR at a
// writable directory.
package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"helios/internal/domain"
)

// TradeRecord is the Parquet schema for recorded trades.
type TradeRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
	Size      float64 `parquet:"size"`
	Exchange  string  `parquet:"exchange"`
	ID        string  `parquet:"id"`
}

// TradeRecorder buffers trades in memory and flushes them to Parquet files.
// Record is safe to call from feed-handler goroutines; Flush merges buffered
// trades into the on-disk files, deduplicating by (symbol, id) so replays and
// reconnect overlaps do not produce double entries.
type TradeRecorder struct {
	dataDir string
	log     *slog.Logger

	mu     sync.Mutex
	buffer []domain.Trade
}

// NewTradeRecorder creates a recorder rooted at dataDir.
func NewTradeRecorder(dataDir string, log *slog.Logger) *TradeRecorder {
	if log == nil {
		log = slog.Default()
	}
	return &TradeRecorder{dataDir: dataDir, log: log}
}

// Record appends one trade to the in-memory buffer.
func (r *TradeRecorder) Record(t domain.Trade) {
	r.mu.Lock()
	r.buffer = append(r.buffer, t)
	r.mu.Unlock()
}

// Buffered returns the number of trades waiting for the next flush.
func (r *TradeRecorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}

// Flush writes all buffered trades to disk. Trades are grouped into one file
// per (exchange, symbol, date); each file is read back, merged with the new
// records, and rewritten. On error the batch is returned to the buffer so a
// later flush can retry.
func (r *TradeRecorder) Flush() error {
	r.mu.Lock()
	batch := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	type key struct {
		exchange string
		symbol   string
		date     string // YYYY-MM-DD
	}
	groups := make(map[key][]TradeRecord)
	for _, t := range batch {
		k := key{
			exchange: t.Exchange,
			symbol:   t.Symbol,
			date:     t.Timestamp.UTC().Format("2006-01-02"),
		}
		groups[k] = append(groups[k], TradeRecord{
			Symbol:    t.Symbol,
			Timestamp: t.Timestamp.UnixMilli(),
			Price:     t.Price,
			Size:      t.Size,
			Exchange:  t.Exchange,
			ID:        t.ID,
		})
	}

	for k, records := range groups {
		path := r.tradePath(k.exchange, k.symbol, k.date)

		existing, _ := readParquetFile[TradeRecord](path)
		merged := mergeTradeRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			r.mu.Lock()
			r.buffer = append(batch, r.buffer...)
			r.mu.Unlock()
			return fmt.Errorf("recording trades for %s/%s/%s: %w", k.exchange, k.symbol, k.date, err)
		}
	}

	r.log.Debug("trades flushed", "count", len(batch), "files", len(groups))
	return nil
}

// ReadTrades reads recorded trades for one exchange and symbol within
// [start, end].
func (r *TradeRecorder) ReadTrades(exchange, symbol string, start, end time.Time) ([]domain.Trade, error) {
	var trades []domain.Trade
	for d := start.UTC(); !d.After(end); d = d.AddDate(0, 0, 1) {
		path := r.tradePath(exchange, symbol, d.Format("2006-01-02"))
		records, err := readParquetFile[TradeRecord](path)
		if err != nil {
			continue
		}
		for _, rec := range records {
			ts := time.UnixMilli(rec.Timestamp).UTC()
			if (ts.Equal(start) || ts.After(start)) && (ts.Equal(end) || ts.Before(end)) {
				trades = append(trades, domain.Trade{
					Symbol:    rec.Symbol,
					Timestamp: ts,
					Price:     rec.Price,
					Size:      rec.Size,
					Exchange:  rec.Exchange,
					ID:        rec.ID,
				})
			}
		}
	}
	return trades, nil
}

// tradePath returns the filesystem path for one day of trades.
// Layout: <dataDir>/<EXCHANGE>/trades/<SYMBOL>/<YYYY-MM-DD>.parquet
func (r *TradeRecorder) tradePath(exchange, symbol, date string) string {
	return filepath.Join(r.dataDir, strings.ToUpper(exchange), "trades", strings.ToUpper(symbol), date+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeTradeRecords deduplicates trade records by (symbol, id), preferring
// new records over existing ones. Results are sorted by timestamp.
func mergeTradeRecords(existing, incoming []TradeRecord) []TradeRecord {
	type key struct {
		symbol string
		id     string
	}
	seen := make(map[key]TradeRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.ID}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.ID}] = r
	}

	merged := make([]TradeRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
