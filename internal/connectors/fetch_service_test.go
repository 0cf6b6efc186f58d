package connectors

import (
	"os"
	"path/filepath"
	"testing"

	"routesheet/internal"
	"routesheet/internal/storage"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
}

func (f *fakeConnector) FetchInbox(string, int) ([]internal.FetchedMailMessage, error) {
	return f.messages, nil
}

func TestFetchAndStoreAccountsForAttachments(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	conn := &fakeConnector{messages: []internal.FetchedMailMessage{{
		Provider:   "imap",
		MessageID:  "<m1@x>",
		Subject:    "fuel receipts",
		From:       "driver@example.com",
		ReceivedAt: "2023-04-12T00:00:00Z",
		Raw:        sampleMessage(),
	}}}
	svc := NewFetchService(db, filepath.Join(dir, "mail"), conn)

	result, err := svc.FetchAndStore("INBOX", 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.Fetched != 1 || result.Stored != 1 || result.Known != 0 {
		t.Fatalf("result = %+v", result)
	}
	if result.Attachments != 1 {
		t.Fatalf("attachments = %d", result.Attachments)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "mileage.csv" {
		t.Fatalf("skipped = %v", result.Skipped)
	}

	row, err := db.MustEmailByProviderMessageID("imap", "<m1@x>")
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != "fetched" {
		t.Fatalf("status = %q", row.Status)
	}
	if _, err := os.Stat(row.RawRef); err != nil {
		t.Fatalf("raw message missing: %v", err)
	}
}

func TestFetchAndStoreKeepsProcessedStatus(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	conn := &fakeConnector{messages: []internal.FetchedMailMessage{{
		Provider:   "imap",
		MessageID:  "<m1@x>",
		ReceivedAt: "2023-04-12T00:00:00Z",
		Raw:        sampleMessage(),
	}}}
	svc := NewFetchService(db, filepath.Join(dir, "mail"), conn)

	if _, err := svc.FetchAndStore("INBOX", 10); err != nil {
		t.Fatal(err)
	}
	row, err := db.MustEmailByProviderMessageID("imap", "<m1@x>")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateEmailStatus(row.ID, "processed"); err != nil {
		t.Fatal(err)
	}

	// The message is still unread on the server; a second fetch must not
	// push it back into the queue.
	result, err := svc.FetchAndStore("INBOX", 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.Stored != 0 || result.Known != 1 || result.Attachments != 0 {
		t.Fatalf("result = %+v", result)
	}

	row, err = db.MustEmailByProviderMessageID("imap", "<m1@x>")
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != "processed" {
		t.Fatalf("status reset to %q", row.Status)
	}
}
