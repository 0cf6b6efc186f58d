package pipeline

import (
	"regexp"
	"strings"
)

var (
	reControl    = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
	reHyphenWrap = regexp.MustCompile(`(\pL)-\n[ \t]*(\p{Ll})`)
	reSpaceRun   = regexp.MustCompile(`[ \t]+`)
	reMonthToken = regexp.MustCompile(`(?i)\b(JANUARY|FEBRUARY|MARCH|APRIL|JUNE|JULY|AUGUST|SEPTEMBER|OCTOBER|NOVEMBER|DECEMBER|JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEPT|SEP|OCT|NOV|DEC)\b`)
	reTotalToken = regexp.MustCompile(`(?i)\b(GRAND TOTAL|AMOUNT DUE|BALANCE DUE|SUBTOTAL|TOTAL|AMOUNT)\b`)
)

// Normalize cleans raw OCR output before field extraction: control characters
// stripped, whitespace collapsed per line, blank lines dropped, hyphen-broken
// line wraps rejoined, and month/total keywords uppercased so the extractor
// matches one spelling. Idempotent and never fails; worst case the input
// comes back trimmed.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = reControl.ReplaceAllString(s, "")

	parts := strings.Split(s, "\n")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(reSpaceRun.ReplaceAllString(p, " "))
		if p != "" {
			lines = append(lines, p)
		}
	}
	s = strings.Join(lines, "\n")

	// Wraps are joined after trimming so a trailing "v- " still counts, and
	// iterated to a fixed point so chained wraps collapse in one call.
	for {
		joined := reHyphenWrap.ReplaceAllString(s, "$1$2")
		if joined == s {
			break
		}
		s = joined
	}

	s = reMonthToken.ReplaceAllStringFunc(s, strings.ToUpper)
	s = reTotalToken.ReplaceAllStringFunc(s, strings.ToUpper)
	return s
}
