package connectors

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleMessage() []byte {
	return []byte(strings.Join([]string{
		"From: driver@example.com",
		"To: receipts@example.com",
		"Subject: fuel receipts",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=frontier",
		"",
		"--frontier",
		"Content-Type: text/plain",
		"",
		"receipts attached",
		"--frontier",
		"Content-Type: image/png",
		"Content-Disposition: attachment; filename=\"receipt1.png\"",
		"Content-Transfer-Encoding: base64",
		"",
		base64.StdEncoding.EncodeToString([]byte("not-a-real-png")),
		"--frontier",
		"Content-Type: text/csv",
		"Content-Disposition: attachment; filename=\"mileage.csv\"",
		"",
		"a,b,c",
		"--frontier--",
		"",
	}, "\r\n"))
}

func TestExtractReceiptAttachments(t *testing.T) {
	atts, skipped, err := ExtractReceiptAttachments(sampleMessage())
	if err != nil {
		t.Fatal(err)
	}
	if len(atts) != 1 {
		t.Fatalf("attachments = %d, want 1", len(atts))
	}
	if atts[0].FileName != "receipt1.png" {
		t.Fatalf("filename = %q", atts[0].FileName)
	}
	if string(atts[0].Content) != "not-a-real-png" {
		t.Fatalf("content = %q", atts[0].Content)
	}
	if len(skipped) != 1 || skipped[0] != "mileage.csv" {
		t.Fatalf("skipped = %v", skipped)
	}
}

func TestSaveAttachments(t *testing.T) {
	atts, _, err := ExtractReceiptAttachments(sampleMessage())
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	paths, err := SaveAttachments(dir, "deadbeef", atts)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %v", paths)
	}
	want := filepath.Join(dir, "deadbeef", "receipt1.png")
	if paths[0] != want {
		t.Fatalf("path = %q, want %q", paths[0], want)
	}
	blob, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != "not-a-real-png" {
		t.Fatalf("stored content = %q", blob)
	}
}
