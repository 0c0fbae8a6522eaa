// Package watermark remembers which orders an admin has already reviewed
// and counts the ones that arrived since.
package watermark

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository/kv"
)

// SlotKey is the store slot holding the admin watermark.
const SlotKey = "admin_last_seen_orders"

// Watermark is the last order the admin marked as seen.
type Watermark struct {
	TimestampMillis int64  `json:"timestamp"`
	LastOrderID     string `json:"lastOrderId"`
}

// Record is the minimal view of an order needed for counting.
// Timestamp is expressed in the unit passed to CountNew.
type Record struct {
	ID        string
	Timestamp int64
}

// Tracker reads and overwrites the persisted watermark.
type Tracker struct {
	store  kv.Store
	logger *log.Logger
}

func New(store kv.Store, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Tracker{store: store, logger: logger}
}

// Get returns the stored watermark, or nil when none is stored or the
// stored data cannot be read. Any record carrying a timestamp, zero
// included, is returned as written.
func (t *Tracker) Get(ctx context.Context) *Watermark {
	raw, err := t.store.Get(ctx, SlotKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			t.logger.Printf("watermark: read error=%v", err)
		}
		return nil
	}
	var stored struct {
		TimestampMillis *int64 `json:"timestamp"`
		LastOrderID     string `json:"lastOrderId"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.logger.Printf("watermark: corrupt data error=%v", err)
		return nil
	}
	if stored.TimestampMillis == nil {
		t.logger.Printf("watermark: record without timestamp ignored")
		return nil
	}
	return &Watermark{TimestampMillis: *stored.TimestampMillis, LastOrderID: stored.LastOrderID}
}

// Set replaces the stored watermark. There is no merge with the previous
// value; callers pass the newest order they know about.
func (t *Tracker) Set(ctx context.Context, timestampMillis int64, lastOrderID string) error {
	raw, err := json.Marshal(Watermark{TimestampMillis: timestampMillis, LastOrderID: lastOrderID})
	if err != nil {
		return err
	}
	if err := t.store.Set(ctx, SlotKey, raw); err != nil {
		t.logger.Printf("watermark: write error=%v", err)
		return err
	}
	return nil
}

// Clear forgets the watermark so every order counts as new again.
func (t *Tracker) Clear(ctx context.Context) error {
	if err := t.store.Delete(ctx, SlotKey); err != nil {
		t.logger.Printf("watermark: clear error=%v", err)
		return err
	}
	return nil
}

// CountNew returns how many records are strictly newer than wm. Record
// timestamps are in units of unit. With no watermark every record is new.
func CountNew(records []Record, unit time.Duration, wm *Watermark) int {
	n := 0
	for _, r := range records {
		if After(r.Timestamp, unit, wm) {
			n++
		}
	}
	return n
}

// After reports whether a timestamp in units of unit is strictly newer
// than wm. A nil watermark is older than everything.
func After(ts int64, unit time.Duration, wm *Watermark) bool {
	if wm == nil {
		return true
	}
	if unit <= 0 {
		unit = time.Nanosecond
	}
	// Compare in nanoseconds so sub-millisecond order timestamps are not
	// rounded onto the watermark.
	return ts*int64(unit) > wm.TimestampMillis*int64(time.Millisecond)
}

// Latest returns the record with the greatest timestamp.
func Latest(records []Record) (Record, bool) {
	if len(records) == 0 {
		return Record{}, false
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.Timestamp > latest.Timestamp {
			latest = r
		}
	}
	return latest, true
}

// For returns the watermark covering record r, whose timestamp is in
// units of unit. Sub-millisecond timestamps round up so r itself is not
// counted as new afterwards.
func For(r Record, unit time.Duration) Watermark {
	if unit <= 0 {
		unit = time.Nanosecond
	}
	ns := r.Timestamp * int64(unit)
	ms := ns / int64(time.Millisecond)
	if ns%int64(time.Millisecond) > 0 {
		ms++
	}
	return Watermark{TimestampMillis: ms, LastOrderID: r.ID}
}
