package pipeline

import "testing"

func TestNormalizeCleansRawText(t *testing.T) {
	raw := "ACME  HARDWARE\r\n123 MAIN ST\x00\r\n\r\ndeliv-\nery fee   $5.00\ntotal: $20.00\n12 mar 2023\n"
	got := Normalize(raw)
	want := "ACME HARDWARE\n123 MAIN ST\ndelivery fee $5.00\nTOTAL: $20.00\n12 MAR 2023"
	if got != want {
		t.Fatalf("normalize mismatch:\ngot  %q\nwant %q", got, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Corner   Diner\r\nsep 3, 2023\ntotal\t$8.25\n\n\nthank you\n",
		"AB- \ncd",
		"deliv-\n\nery fee $5.00",
		"a-\nb-\nc",
		"HARD-\nWARE",
	}
	for _, raw := range inputs {
		once := Normalize(raw)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %q:\nonce  %q\ntwice %q", raw, once, twice)
		}
	}
}

func TestNormalizeRejoinsHyphenWraps(t *testing.T) {
	got := Normalize("HARD-\nWARE")
	// Uppercase continuation is a real hyphenated token, not a wrap.
	if got != "HARD-\nWARE" {
		t.Fatalf("uppercase continuation should be kept, got %q", got)
	}

	got = Normalize("deliv-\n  ery")
	if got != "delivery" {
		t.Fatalf("lowercase continuation should be rejoined, got %q", got)
	}

	// Trailing spaces and intervening blank lines still count as a wrap.
	if got = Normalize("AB- \ncd"); got != "ABcd" {
		t.Fatalf("trailing-space wrap, got %q", got)
	}
	if got = Normalize("deliv-\n\nery"); got != "delivery" {
		t.Fatalf("blank-line wrap, got %q", got)
	}
	if got = Normalize("a-\nb-\nc"); got != "abc" {
		t.Fatalf("chained wraps, got %q", got)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	if got := Normalize("  \r\n \t \n"); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
