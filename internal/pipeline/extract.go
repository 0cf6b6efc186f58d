package pipeline

import (
	"regexp"
	"strings"
	"time"

	"routesheet/internal"
	"routesheet/internal/util"
)

// Date heuristics are an ordered pattern list so each form can be tested and
// replaced on its own. Month names arrive uppercased from Normalize.
var datePatterns = []struct {
	re      *regexp.Regexp
	layouts []string
}{
	{regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`), []string{"2006-1-2"}},
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), []string{"1/2/2006"}},
	{regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`), []string{"1-2-2006"}},
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2}\b`), []string{"1/2/06"}},
	{regexp.MustCompile(`\b(?:JANUARY|FEBRUARY|MARCH|APRIL|MAY|JUNE|JULY|AUGUST|SEPTEMBER|OCTOBER|NOVEMBER|DECEMBER|JAN|FEB|MAR|APR|JUN|JUL|AUG|SEPT|SEP|OCT|NOV|DEC)\.? \d{1,2},? \d{4}\b`),
		[]string{"January 2, 2006", "January 2 2006", "Jan 2, 2006", "Jan 2 2006", "Jan. 2, 2006", "Jan. 2 2006"}},
	{regexp.MustCompile(`\b\d{1,2} (?:JANUARY|FEBRUARY|MARCH|APRIL|MAY|JUNE|JULY|AUGUST|SEPTEMBER|OCTOBER|NOVEMBER|DECEMBER|JAN|FEB|MAR|APR|JUN|JUL|AUG|SEPT|SEP|OCT|NOV|DEC)\.? \d{4}\b`),
		[]string{"2 January 2006", "2 Jan 2006"}},
}

var (
	totalKeywords   = regexp.MustCompile(`\b(GRAND TOTAL|AMOUNT DUE|BALANCE DUE|TOTAL)\b`)
	nonItemKeywords = regexp.MustCompile(`(?i)\b(SUBTOTAL|TAX|CHANGE|CASH|TEND|VISA|MASTERCARD|DEBIT|CREDIT|CARD)\b`)
	reLetters       = regexp.MustCompile(`\pL`)
)

// Longest names first so "SEPTEMBER" is never mangled by the "SEP" rule.
var monthTitles = [][2]string{
	{"JANUARY", "January"}, {"FEBRUARY", "February"}, {"SEPTEMBER", "September"},
	{"NOVEMBER", "November"}, {"DECEMBER", "December"}, {"OCTOBER", "October"},
	{"AUGUST", "August"}, {"MARCH", "March"}, {"APRIL", "April"}, {"JUNE", "June"},
	{"JULY", "July"}, {"SEPT", "Sep"},
	{"JAN", "Jan"}, {"FEB", "Feb"}, {"MAR", "Mar"}, {"APR", "Apr"}, {"MAY", "May"},
	{"JUN", "Jun"}, {"JUL", "Jul"}, {"AUG", "Aug"}, {"SEP", "Sep"}, {"OCT", "Oct"},
	{"NOV", "Nov"}, {"DEC", "Dec"},
}

// Extract recovers candidate fields from normalized receipt text. It is pure
// and deterministic; unset fields lower confidence instead of failing.
func Extract(normalized, sourceID string) internal.ReceiptRecord {
	lines := splitLines(normalized)
	rec := internal.ReceiptRecord{
		SourceID:  sourceID,
		RawText:   normalized,
		LineItems: []internal.LineItem{},
	}

	if cand := pickDate(findDates(lines), len(lines)); cand != nil {
		rec.DateRaw = cand.raw
		rec.Date = cand.when
	}

	vendorLine := -1
	rec.Vendor, vendorLine = findVendor(lines)

	if raw, ok := findTotal(lines); ok {
		rec.TotalRaw = raw
		if amount, err := util.ParseAmount(raw); err == nil {
			rec.Total = &amount
		}
	}

	rec.LineItems = findLineItems(lines, vendorLine)

	rec.Confidence = internal.ConfidenceLow
	if rec.Date != nil && rec.Vendor != "" && rec.Total != nil {
		rec.Confidence = internal.ConfidenceHigh
	}
	return rec
}

type dateCandidate struct {
	line int
	raw  string
	when *time.Time
}

func findDates(lines []string) []dateCandidate {
	out := []dateCandidate{}
	for i, line := range lines {
		for _, p := range datePatterns {
			raw := p.re.FindString(line)
			if raw == "" {
				continue
			}
			out = append(out, dateCandidate{line: i, raw: raw, when: parseDate(raw, p.layouts)})
			break
		}
	}
	return out
}

// pickDate prefers the first candidate in the top third of the text (receipts
// print dates near the header) and otherwise takes the first overall.
func pickDate(cands []dateCandidate, lineCount int) *dateCandidate {
	if len(cands) == 0 {
		return nil
	}
	cutoff := lineCount / 3
	if cutoff < 1 {
		cutoff = 1
	}
	for i := range cands {
		if cands[i].line < cutoff {
			return &cands[i]
		}
	}
	return &cands[0]
}

func parseDate(raw string, layouts []string) *time.Time {
	value := raw
	for _, m := range monthTitles {
		if strings.Contains(value, m[0]) {
			value = strings.ReplaceAll(value, m[0], m[1])
			break
		}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

// findVendor takes the first line that reads like a name: has letters, is not
// dominated by digits, and carries neither a date nor an amount. Heuristic,
// not guaranteed correct.
func findVendor(lines []string) (string, int) {
	for i, line := range lines {
		if !reLetters.MatchString(line) {
			continue
		}
		if digitRatio(line) > 0.5 {
			continue
		}
		if util.CurrencyToken.MatchString(line) {
			continue
		}
		if isDateLine(line) {
			continue
		}
		return strings.TrimSpace(line), i
	}
	return "", -1
}

func isDateLine(line string) bool {
	for _, p := range datePatterns {
		if p.re.MatchString(line) {
			return true
		}
	}
	return false
}

func digitRatio(line string) float64 {
	digits, total := 0, 0
	for _, r := range line {
		if r == ' ' {
			continue
		}
		total++
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}

// findTotal scans lines carrying a total keyword and returns the last
// currency token among them; totals print after subtotals.
func findTotal(lines []string) (string, bool) {
	raw := ""
	for _, line := range lines {
		if !totalKeywords.MatchString(line) {
			continue
		}
		for _, token := range util.CurrencyToken.FindAllString(line, -1) {
			raw = token
		}
	}
	return raw, raw != ""
}

// findLineItems keeps lines with exactly one symbol-marked amount: the token
// is the price, the rest is the description. Other shapes are ignored.
func findLineItems(lines []string, vendorLine int) []internal.LineItem {
	out := []internal.LineItem{}
	for i, line := range lines {
		if i == vendorLine {
			continue
		}
		if totalKeywords.MatchString(line) || nonItemKeywords.MatchString(line) {
			continue
		}
		tokens := util.SymbolToken.FindAllString(line, -1)
		if len(tokens) != 1 {
			continue
		}
		amount, err := util.ParseAmount(tokens[0])
		if err != nil {
			continue
		}
		desc := strings.TrimSpace(strings.Replace(line, tokens[0], "", 1))
		desc = strings.Trim(desc, " .-:")
		if desc == "" {
			continue
		}
		out = append(out, internal.LineItem{Description: desc, Amount: amount})
	}
	return out
}

func splitLines(text string) []string {
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
