package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"routesheet/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS batches (
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL DEFAULT 'open',
  total TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS receipts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  batchId TEXT NOT NULL,
  position INTEGER NOT NULL,
  sourceId TEXT NOT NULL,
  vendor TEXT,
  date TEXT,
  dateRaw TEXT,
  total TEXT,
  totalRaw TEXT,
  confidence TEXT NOT NULL,
  lineItemsJson TEXT NOT NULL,
  rawText TEXT NOT NULL,
  status TEXT NOT NULL,
  reason TEXT,
  detail TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(batchId) REFERENCES batches(id)
);
CREATE INDEX IF NOT EXISTS idx_receipts_batch ON receipts(batchId, position);

CREATE TABLE IF NOT EXISTS vendors (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS artifacts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  batchId TEXT NOT NULL,
  path TEXT NOT NULL,
  printRange TEXT NOT NULL,
  rows INTEGER NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(batchId) REFERENCES batches(id)
);

CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertBatch(id string) error {
	_, err := d.conn.Exec(`INSERT INTO batches (id) VALUES (?)`, id)
	return err
}

func (d *DB) FinalizeBatch(id, total string) error {
	_, err := d.conn.Exec(`UPDATE batches SET status = 'finalized', total = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, total, id)
	return err
}

func (d *DB) UpdateBatchStatus(id, status string) error {
	_, err := d.conn.Exec(`UPDATE batches SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

// InsertAccepted persists one accepted record at its slot position.
func (d *DB) InsertAccepted(batchID string, position int, rec internal.ReceiptRecord) error {
	itemsJSON, _ := json.Marshal(rec.LineItems)
	var date, total *string
	if rec.Date != nil {
		s := rec.Date.Format("2006-01-02")
		date = &s
	}
	if rec.Total != nil {
		s := rec.Total.StringFixed(2)
		total = &s
	}
	_, err := d.conn.Exec(`
INSERT INTO receipts (batchId, position, sourceId, vendor, date, dateRaw, total, totalRaw, confidence, lineItemsJson, rawText, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'accepted')
`, batchID, position, rec.SourceID, rec.Vendor, date, rec.DateRaw, total, rec.TotalRaw, string(rec.Confidence), string(itemsJSON), rec.RawText)
	return err
}

// InsertRejected keeps the rejection alongside the record content so the
// caller can review it later; rejected receipts get position -1.
func (d *DB) InsertRejected(batchID string, rec internal.ReceiptRecord, rej internal.Rejection) error {
	itemsJSON, _ := json.Marshal(rec.LineItems)
	_, err := d.conn.Exec(`
INSERT INTO receipts (batchId, position, sourceId, vendor, dateRaw, totalRaw, confidence, lineItemsJson, rawText, status, reason, detail)
VALUES (?, -1, ?, ?, ?, ?, ?, ?, ?, 'rejected', ?, ?)
`, batchID, rej.SourceID, rec.Vendor, rec.DateRaw, rec.TotalRaw, string(rec.Confidence), string(itemsJSON), rec.RawText, string(rej.Reason), rej.Detail)
	return err
}

// ListAccepted returns a batch's accepted records in slot order.
func (d *DB) ListAccepted(batchID string) ([]internal.ReceiptRecord, error) {
	rows, err := d.conn.Query(`
SELECT sourceId, vendor, date, dateRaw, total, totalRaw, confidence, lineItemsJson, rawText
FROM receipts WHERE batchId = ? AND status = 'accepted' ORDER BY position ASC
`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ReceiptRecord
	for rows.Next() {
		var rec internal.ReceiptRecord
		var date, total *string
		var confidence, itemsJSON string
		if err := rows.Scan(&rec.SourceID, &rec.Vendor, &date, &rec.DateRaw, &total, &rec.TotalRaw, &confidence, &itemsJSON, &rec.RawText); err != nil {
			return nil, err
		}
		rec.Confidence = internal.Confidence(confidence)
		if date != nil && *date != "" {
			if t, err := time.Parse("2006-01-02", *date); err == nil {
				rec.Date = &t
			}
		}
		if total != nil && *total != "" {
			if v, err := decimal.NewFromString(*total); err == nil {
				rec.Total = &v
			}
		}
		_ = json.Unmarshal([]byte(itemsJSON), &rec.LineItems)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) ListRejections(batchID string) ([]internal.Rejection, error) {
	rows, err := d.conn.Query(`
SELECT sourceId, reason, detail FROM receipts WHERE batchId = ? AND status = 'rejected' ORDER BY id ASC
`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Rejection
	for rows.Next() {
		var rej internal.Rejection
		var reason string
		if err := rows.Scan(&rej.SourceID, &reason, &rej.Detail); err != nil {
			return nil, err
		}
		rej.Reason = internal.RejectReason(reason)
		out = append(out, rej)
	}
	return out, rows.Err()
}

func (d *DB) UpsertVendor(name string) error {
	_, err := d.conn.Exec(`
INSERT INTO vendors (name) VALUES (?)
ON CONFLICT(name) DO UPDATE SET lastSeenAt = CURRENT_TIMESTAMP
`, name)
	return err
}

func (d *DB) ListVendors() ([]internal.Vendor, error) {
	rows, err := d.conn.Query(`SELECT id, name FROM vendors ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Vendor
	for rows.Next() {
		var v internal.Vendor
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (d *DB) InsertArtifact(batchID string, a internal.SheetArtifact) error {
	_, err := d.conn.Exec(`
INSERT INTO artifacts (batchId, path, printRange, rows) VALUES (?, ?, ?, ?)
`, batchID, a.Path, a.PrintRange, a.Rows)
	return err
}

func (d *DB) ListArtifacts(batchID string) ([]internal.SheetArtifact, error) {
	rows, err := d.conn.Query(`SELECT path, printRange, rows FROM artifacts WHERE batchId = ? ORDER BY id ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SheetArtifact
	for rows.Next() {
		var a internal.SheetArtifact
		if err := rows.Scan(&a.Path, &a.PrintRange, &a.Rows); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
