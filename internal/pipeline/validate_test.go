package pipeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"routesheet/internal"
)

var testNow = time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)

func testWindow() Window {
	return Window{YearsBack: 7, FutureSlack: 24 * time.Hour}
}

func amount(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return &d
}

func TestValidateNoFinancialData(t *testing.T) {
	rec := internal.ReceiptRecord{SourceID: "r1.png", Vendor: "ACME HARDWARE"}
	_, rej := Validate(rec, testNow, testWindow())
	require.NotNil(t, rej)
	require.Equal(t, internal.RejectNoFinancialData, rej.Reason)
	require.Equal(t, "r1.png", rej.SourceID)
}

func TestValidateNoNumericTextFromPipeline(t *testing.T) {
	text := "THANK YOU\nHAVE A NICE DAY\nCOME AGAIN"
	rec := Extract(Normalize(text), "blurry.png")
	_, rej := Validate(rec, testNow, testWindow())
	require.NotNil(t, rej)
	require.Equal(t, internal.RejectNoFinancialData, rej.Reason)
}

func TestValidateBadAmountFormat(t *testing.T) {
	rec := internal.ReceiptRecord{SourceID: "r2.png", TotalRaw: "$12..50"}
	_, rej := Validate(rec, testNow, testWindow())
	require.NotNil(t, rej)
	require.Equal(t, internal.RejectBadAmountFormat, rej.Reason)
}

func TestValidateNegativeAmount(t *testing.T) {
	rec := internal.ReceiptRecord{SourceID: "r3.png", TotalRaw: "-$3.00", Total: amount(t, "-3.00")}
	_, rej := Validate(rec, testNow, testWindow())
	require.NotNil(t, rej)
	require.Equal(t, internal.RejectBadAmountFormat, rej.Reason)
}

// A date-shaped token that is not a calendar date counts as date evidence,
// so the record passes the no-data rule and fails on plausibility.
func TestValidateGarbledDateFromPipeline(t *testing.T) {
	text := "CORNER DINER\n13/45/2023\nTOTAL $8.25"
	rec := Extract(Normalize(text), "r4.png")
	require.Equal(t, "13/45/2023", rec.DateRaw)
	require.Nil(t, rec.Date)

	_, rej := Validate(rec, testNow, testWindow())
	require.NotNil(t, rej)
	require.Equal(t, internal.RejectImplausibleDate, rej.Reason)
}

func TestValidateDateWindow(t *testing.T) {
	base := internal.ReceiptRecord{SourceID: "r5.png", TotalRaw: "$5.00", Total: amount(t, "5.00")}

	future := testNow.Add(48 * time.Hour)
	rec := base
	rec.Date, rec.DateRaw = &future, future.Format("01/02/2006")
	_, rej := Validate(rec, testNow, testWindow())
	require.NotNil(t, rej)
	require.Equal(t, internal.RejectImplausibleDate, rej.Reason)

	// Tomorrow is inside the slack for timezone skew.
	tomorrow := testNow.Add(12 * time.Hour)
	rec = base
	rec.Date, rec.DateRaw = &tomorrow, tomorrow.Format("01/02/2006")
	_, rej = Validate(rec, testNow, testWindow())
	require.Nil(t, rej)

	ancient := testNow.AddDate(-8, 0, 0)
	rec = base
	rec.Date, rec.DateRaw = &ancient, ancient.Format("01/02/2006")
	_, rej = Validate(rec, testNow, testWindow())
	require.NotNil(t, rej)
	require.Equal(t, internal.RejectImplausibleDate, rej.Reason)
}

func TestValidateAcceptLeavesRecordUntouched(t *testing.T) {
	when := time.Date(2023, time.April, 12, 0, 0, 0, 0, time.UTC)
	rec := internal.ReceiptRecord{
		SourceID: "r6.png",
		Vendor:   "ACME HARDWARE",
		Date:     &when,
		DateRaw:  "04/12/2023",
		Total:    amount(t, "15.70"),
		TotalRaw: "$15.70",
		LineItems: []internal.LineItem{
			{Description: "Hammer", Amount: *amount(t, "12.50")},
		},
		Confidence: internal.ConfidenceHigh,
	}

	got, rej := Validate(rec, testNow, testWindow())
	require.Nil(t, rej)
	require.Equal(t, rec, got)
}

// Amount problems are reported before date problems when both are present.
func TestValidateAmountRuleWinsOverDate(t *testing.T) {
	rec := internal.ReceiptRecord{SourceID: "r7.png", DateRaw: "13/45/2023", TotalRaw: "-$3.00", Total: amount(t, "-3.00")}
	_, rej := Validate(rec, testNow, testWindow())
	require.NotNil(t, rej)
	require.Equal(t, internal.RejectBadAmountFormat, rej.Reason)
}
