package aggregator

import (
	"testing"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		value    string
		currency domain.Currency
		want     string
	}{
		{"0", domain.CurrencyUSD, "+0"},
		{"3010", domain.CurrencyUSD, "+3,010"},
		{"-1500", domain.CurrencyUSD, "-1,500"},
		{"1234567.891", domain.CurrencyUSD, "+1,234,567.89"},
		{"3010.5", domain.CurrencyUSD, "+3,010.5"},
		{"-0.001", domain.CurrencyUSD, "+0"},
		{"1234567", domain.CurrencyINR, "+12,34,567"},
		{"-99999", domain.CurrencyINR, "-99,999"},
		{"850", domain.CurrencyINR, "+850"},
		{"90071992547409.93", domain.CurrencyUSD, "+90,071,992,547,409.93"},
		{"-123456789012.05", domain.CurrencyINR, "-1,23,45,67,89,012.05"},
	}

	for _, tt := range tests {
		if got := FormatMoney(dec(tt.value), tt.currency); got != tt.want {
			t.Errorf("FormatMoney(%s, %s) = %q, want %q", tt.value, tt.currency, got, tt.want)
		}
	}
}

func TestFormatROI(t *testing.T) {
	if got := FormatROI(nil); got != "" {
		t.Errorf("FormatROI(nil) = %q", got)
	}
	tests := map[string]string{
		"2.7":     "+2.70%",
		"-12.345": "-12.35%",
		"0":       "+0.00%",
	}
	for in, want := range tests {
		if got := FormatROI(decPtr(in)); got != want {
			t.Errorf("FormatROI(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestRangeLabelAcrossYears(t *testing.T) {
	got := rangeLabel(day("2025-12-29"), day("2026-01-04"))
	if got != "Dec 29, 2025 - Jan 4, 2026" {
		t.Errorf("rangeLabel = %q", got)
	}
}
