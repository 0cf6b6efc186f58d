package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"routesheet/internal"
)

var ErrEmptyBatch = errors.New("no records accepted into batch")

// Batch is the session-scoped aggregation state: one per processing run,
// owned by a single ProcessingService, never shared between goroutines.
// Records must be added in submission order; slot positions are stable across
// re-runs of the same input.
type Batch struct {
	id         string
	slots      []internal.Slot
	duplicates []internal.DuplicateWarning
	seen       map[string]string
}

func NewBatch() *Batch {
	return &Batch{id: uuid.NewString(), seen: map[string]string{}}
}

func (b *Batch) ID() string { return b.id }

func (b *Batch) Len() int { return len(b.slots) }

// Add copies an accepted record into the next open slot. Exact
// vendor+date+total duplicates are flagged but retained: financial data must
// not silently disappear.
func (b *Batch) Add(rec internal.ReceiptRecord) internal.Slot {
	slot := internal.Slot{Position: len(b.slots), Record: rec}
	b.slots = append(b.slots, slot)

	if key, ok := duplicateKey(rec); ok {
		if first, dup := b.seen[key]; dup {
			b.duplicates = append(b.duplicates, internal.DuplicateWarning{
				SourceID:        rec.SourceID,
				MatchesSourceID: first,
			})
		} else {
			b.seen[key] = rec.SourceID
		}
	}
	return slot
}

func (b *Batch) Duplicates() []internal.DuplicateWarning {
	out := make([]internal.DuplicateWarning, len(b.duplicates))
	copy(out, b.duplicates)
	return out
}

// Finalize recomputes the batch total as the exact sum of slot amounts;
// duplicates count like any other slot. The total is never cached.
func (b *Batch) Finalize() (internal.RouteSheet, error) {
	if len(b.slots) == 0 {
		return internal.RouteSheet{}, ErrEmptyBatch
	}

	total := decimal.Zero
	for _, slot := range b.slots {
		if slot.Record.Total != nil {
			total = total.Add(*slot.Record.Total)
		}
	}

	slots := make([]internal.Slot, len(b.slots))
	copy(slots, b.slots)

	return internal.RouteSheet{
		BatchID:    b.id,
		Slots:      slots,
		Total:      total,
		Duplicates: b.Duplicates(),
	}, nil
}

// duplicateKey requires vendor, date and total to all be present; records
// with unset fields never match each other.
func duplicateKey(rec internal.ReceiptRecord) (string, bool) {
	if rec.Vendor == "" || rec.Date == nil || rec.Total == nil {
		return "", false
	}
	return fmt.Sprintf("%s|%s|%s", rec.Vendor, rec.Date.Format("2006-01-02"), rec.Total.StringFixed(2)), true
}
