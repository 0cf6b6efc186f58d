package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"routesheet/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestReceiptRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertBatch("b1"); err != nil {
		t.Fatal(err)
	}

	when := time.Date(2023, time.April, 12, 0, 0, 0, 0, time.UTC)
	total := decimal.RequireFromString("15.70")
	rec := internal.ReceiptRecord{
		SourceID:   "a.png",
		Vendor:     "ACME HARDWARE",
		Date:       &when,
		DateRaw:    "04/12/2023",
		Total:      &total,
		TotalRaw:   "$15.70",
		LineItems:  []internal.LineItem{{Description: "Hammer", Amount: decimal.RequireFromString("12.50")}},
		Confidence: internal.ConfidenceHigh,
		RawText:    "ACME HARDWARE\nTOTAL $15.70",
	}
	if err := db.InsertAccepted("b1", 0, rec); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListAccepted("b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d", len(got))
	}
	out := got[0]
	if out.Vendor != rec.Vendor || out.SourceID != rec.SourceID {
		t.Fatalf("record mismatch: %+v", out)
	}
	if out.Date == nil || !out.Date.Equal(when) {
		t.Fatalf("date = %v", out.Date)
	}
	if out.Total == nil || !out.Total.Equal(total) {
		t.Fatalf("total = %v", out.Total)
	}
	if len(out.LineItems) != 1 || out.LineItems[0].Description != "Hammer" {
		t.Fatalf("items = %+v", out.LineItems)
	}
}

func TestRejectionsKeepContent(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertBatch("b1"); err != nil {
		t.Fatal(err)
	}
	rec := internal.ReceiptRecord{SourceID: "bad.png", DateRaw: "13/45/2023", Confidence: internal.ConfidenceLow}
	rej := internal.Rejection{SourceID: "bad.png", Reason: internal.RejectImplausibleDate, Detail: "not a calendar date"}
	if err := db.InsertRejected("b1", rec, rej); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListRejections("b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Reason != internal.RejectImplausibleDate {
		t.Fatalf("rejections = %+v", got)
	}

	accepted, err := db.ListAccepted("b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(accepted) != 0 {
		t.Fatalf("rejected record leaked into accepted list: %+v", accepted)
	}
}

func TestUpsertVendorDedupes(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		if err := db.UpsertVendor("ACME HARDWARE"); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.UpsertVendor("CORNER DINER"); err != nil {
		t.Fatal(err)
	}

	vendors, err := db.ListVendors()
	if err != nil {
		t.Fatal(err)
	}
	if len(vendors) != 2 {
		t.Fatalf("vendors = %+v", vendors)
	}
}

func TestUpsertEmailConflictUpdates(t *testing.T) {
	db := openTestDB(t)
	first, err := db.UpsertEmail("imap", "<m1@x>", "receipts", "a@x", "2023-04-12T00:00:00Z", "h1", "/mail/h1.eml", "fetched")
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.UpsertEmail("imap", "<m1@x>", "receipts again", "a@x", "2023-04-12T00:00:00Z", "h2", "/mail/h2.eml", "fetched")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("upsert created a second row: %d vs %d", first.ID, second.ID)
	}
	if second.Subject != "receipts again" || second.Hash != "h2" {
		t.Fatalf("conflict did not update: %+v", second)
	}

	if err := db.UpdateEmailStatus(second.ID, "processed"); err != nil {
		t.Fatal(err)
	}
	rows, err := db.ListEmailsByStatus("processed", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ID != second.ID {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)
	if v, err := db.GetMetadata("missing"); err != nil || v != nil {
		t.Fatalf("missing key: v=%v err=%v", v, err)
	}
	if err := db.SetMetadata("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata("k", "v2"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMetadata("k")
	if err != nil {
		t.Fatal(err)
	}
	if v == nil || *v != "v2" {
		t.Fatalf("v = %v", v)
	}
}
