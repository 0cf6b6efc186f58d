package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"routesheet/internal"
)

func record(t *testing.T, sourceID, vendor, date, total string) internal.ReceiptRecord {
	t.Helper()
	rec := internal.ReceiptRecord{SourceID: sourceID, Vendor: vendor}
	if date != "" {
		when, err := time.Parse("2006-01-02", date)
		require.NoError(t, err)
		rec.Date, rec.DateRaw = &when, date
	}
	if total != "" {
		rec.Total, rec.TotalRaw = amount(t, total), "$"+total
	}
	return rec
}

func TestBatchPositionsFollowSubmissionOrder(t *testing.T) {
	b := NewBatch()
	for i, id := range []string{"a.png", "b.png", "c.png"} {
		slot := b.Add(record(t, id, "SHOP", "2023-04-12", "1.00"))
		require.Equal(t, i, slot.Position)
		require.Equal(t, id, slot.Record.SourceID)
	}
	require.Equal(t, 3, b.Len())
}

func TestBatchDuplicatesFlaggedAndRetained(t *testing.T) {
	b := NewBatch()
	b.Add(record(t, "a.png", "ACME HARDWARE", "2023-04-12", "15.70"))
	b.Add(record(t, "b.png", "CORNER DINER", "2023-04-12", "8.25"))
	b.Add(record(t, "c.png", "ACME HARDWARE", "2023-04-12", "15.70"))

	dups := b.Duplicates()
	require.Len(t, dups, 1)
	require.Equal(t, "c.png", dups[0].SourceID)
	require.Equal(t, "a.png", dups[0].MatchesSourceID)

	sheet, err := b.Finalize()
	require.NoError(t, err)
	require.Len(t, sheet.Slots, 3)
	require.Equal(t, "39.65", sheet.Total.StringFixed(2))
	require.Equal(t, dups, sheet.Duplicates)
}

func TestBatchPartialRecordsNeverMatchAsDuplicates(t *testing.T) {
	b := NewBatch()
	b.Add(record(t, "a.png", "", "2023-04-12", "15.70"))
	b.Add(record(t, "b.png", "", "2023-04-12", "15.70"))
	b.Add(record(t, "c.png", "SHOP", "", "15.70"))
	b.Add(record(t, "d.png", "SHOP", "", "15.70"))
	require.Empty(t, b.Duplicates())
}

func TestBatchFinalizeEmpty(t *testing.T) {
	_, err := NewBatch().Finalize()
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestBatchTotalIsExact(t *testing.T) {
	b := NewBatch()
	b.Add(record(t, "a.png", "A", "2023-04-12", "0.10"))
	b.Add(record(t, "b.png", "B", "2023-04-12", "0.20"))
	sheet, err := b.Finalize()
	require.NoError(t, err)
	require.Equal(t, "0.30", sheet.Total.StringFixed(2))
}

func TestBatchDeterministicAcrossRuns(t *testing.T) {
	recs := []internal.ReceiptRecord{
		record(t, "a.png", "ACME HARDWARE", "2023-04-12", "15.70"),
		record(t, "b.png", "CORNER DINER", "2023-04-13", "8.25"),
		record(t, "c.png", "ACME HARDWARE", "2023-04-12", "15.70"),
		record(t, "d.png", "BIG BOX STORE", "2023-04-14", "120.00"),
		record(t, "e.png", "CORNER DINER", "2023-04-13", "8.25"),
	}

	run := func() internal.RouteSheet {
		b := NewBatch()
		for _, rec := range recs {
			b.Add(rec)
		}
		sheet, err := b.Finalize()
		require.NoError(t, err)
		return sheet
	}

	first, second := run(), run()
	require.Equal(t, first.Slots, second.Slots)
	require.Equal(t, first.Duplicates, second.Duplicates)
	require.True(t, first.Total.Equal(second.Total))
}
