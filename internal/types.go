package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

type RejectReason string

const (
	RejectUnsupportedFormat RejectReason = "UNSUPPORTED_FORMAT"
	RejectUnreadableImage   RejectReason = "UNREADABLE_IMAGE"
	RejectExtractionTimeout RejectReason = "EXTRACTION_TIMEOUT"
	RejectNoFinancialData   RejectReason = "NO_FINANCIAL_DATA"
	RejectBadAmountFormat   RejectReason = "BAD_AMOUNT_FORMAT"
	RejectImplausibleDate   RejectReason = "IMPLAUSIBLE_DATE"
)

// RawScan is one page of OCR or text-layer output. Multi-page PDFs produce
// one RawScan per page sharing the same SourceID root.
type RawScan struct {
	SourceID string
	Page     int
	Text     string
}

type LineItem struct {
	Description string
	Amount      decimal.Decimal
}

// ReceiptRecord carries the extracted fields of a single receipt. DateRaw and
// TotalRaw keep the matched token even when it fails calendar or decimal
// parsing, so the validator can tell "absent" from "garbled".
type ReceiptRecord struct {
	SourceID   string
	Vendor     string
	Date       *time.Time
	DateRaw    string
	Total      *decimal.Decimal
	TotalRaw   string
	LineItems  []LineItem
	Confidence Confidence
	RawText    string
}

// Rejection is the tagged outcome for records the pipeline cannot use. It is
// data returned to the caller, never only logged.
type Rejection struct {
	SourceID string
	Reason   RejectReason
	Detail   string
}

// Slot binds one accepted record to a position in the route sheet. Positions
// are assigned in submission order and never reshuffled.
type Slot struct {
	Position int
	Record   ReceiptRecord
}

type DuplicateWarning struct {
	SourceID        string
	MatchesSourceID string
}

// RouteSheet is a finalized batch: slots in submission order plus the
// recomputed batch total.
type RouteSheet struct {
	BatchID    string
	Slots      []Slot
	Total      decimal.Decimal
	Duplicates []DuplicateWarning
}

// SheetArtifact references one generated workbook on disk together with the
// print-range descriptor the downstream print step consumes.
type SheetArtifact struct {
	Path       string
	PrintRange string
	Rows       int
}

type Vendor struct {
	ID   int
	Name string
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// FetchedAttachment is one scannable attachment lifted out of a stored
// message, not yet written to the scan directory.
type FetchedAttachment struct {
	FileName string
	Content  []byte
}
