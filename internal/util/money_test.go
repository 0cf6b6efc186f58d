package util

import "testing"

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"$12.50":     "12.50",
		"€ 1,204.99": "1204.99",
		"£3":         "3.00",
		"-$3.00":     "-3.00",
		"15.70":      "15.70",
	}
	for token, want := range cases {
		got, err := ParseAmount(token)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", token, err)
		}
		if got.StringFixed(2) != want {
			t.Fatalf("ParseAmount(%q) = %s, want %s", token, got, want)
		}
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "$", "12..50", "12.5.0"} {
		if _, err := ParseAmount(token); err == nil {
			t.Fatalf("ParseAmount(%q) should fail", token)
		}
	}
}

func TestCurrencyTokenMatchesBareCentsForm(t *testing.T) {
	line := "SUBTOTAL 15.70"
	if got := CurrencyToken.FindString(line); got != "15.70" {
		t.Fatalf("CurrencyToken on %q = %q", line, got)
	}
	// The symbol-only form skips bare numbers so quantities never read as prices.
	if SymbolToken.MatchString(line) {
		t.Fatalf("SymbolToken must not match %q", line)
	}
	if got := SymbolToken.FindString("Hammer $12.50"); got != "$12.50" {
		t.Fatalf("SymbolToken = %q", got)
	}
}

func TestFormatAmount(t *testing.T) {
	d, err := ParseAmount("$1,204.9")
	if err != nil {
		t.Fatal(err)
	}
	if got := FormatAmount(d); got != "$1204.90" {
		t.Fatalf("FormatAmount = %q", got)
	}
}
