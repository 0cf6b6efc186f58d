package pipeline

import (
	"fmt"
	"time"

	"routesheet/internal"
	"routesheet/internal/config"
)

// Window bounds plausible receipt dates. OCR digit errors routinely produce
// dates decades off or in the future.
type Window struct {
	YearsBack   int
	FutureSlack time.Duration
}

func WindowFromConfig(cfg config.Config) Window {
	return Window{
		YearsBack:   cfg.PlausibleYearsBack,
		FutureSlack: time.Duration(cfg.FutureSlackHours) * time.Hour,
	}
}

// Validate applies the domain rules in order and returns the record together
// with a rejection when it is unusable. Rejection is an expected outcome
// reported to the caller, not an error. Line items are never touched.
func Validate(rec internal.ReceiptRecord, now time.Time, w Window) (internal.ReceiptRecord, *internal.Rejection) {
	hasDateEvidence := rec.Date != nil || rec.DateRaw != ""
	hasAmountEvidence := rec.Total != nil || rec.TotalRaw != ""

	if !hasDateEvidence && !hasAmountEvidence {
		return rec, reject(rec, internal.RejectNoFinancialData, "no date or amount found")
	}

	if rec.TotalRaw != "" {
		if rec.Total == nil {
			return rec, reject(rec, internal.RejectBadAmountFormat, fmt.Sprintf("unparseable amount %q", rec.TotalRaw))
		}
		if rec.Total.IsNegative() {
			return rec, reject(rec, internal.RejectBadAmountFormat, fmt.Sprintf("negative amount %s", rec.Total))
		}
	}

	if rec.DateRaw != "" && rec.Date == nil {
		return rec, reject(rec, internal.RejectImplausibleDate, fmt.Sprintf("not a calendar date: %q", rec.DateRaw))
	}
	if rec.Date != nil {
		if rec.Date.After(now.Add(w.FutureSlack)) {
			return rec, reject(rec, internal.RejectImplausibleDate, fmt.Sprintf("date %s is in the future", rec.Date.Format("2006-01-02")))
		}
		if rec.Date.Before(now.AddDate(-w.YearsBack, 0, 0)) {
			return rec, reject(rec, internal.RejectImplausibleDate, fmt.Sprintf("date %s is more than %d years old", rec.Date.Format("2006-01-02"), w.YearsBack))
		}
	}

	return rec, nil
}

func reject(rec internal.ReceiptRecord, reason internal.RejectReason, detail string) *internal.Rejection {
	return &internal.Rejection{SourceID: rec.SourceID, Reason: reason, Detail: detail}
}
