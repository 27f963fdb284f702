package money

import "testing"

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		minor int64
		want  string
	}{
		{name: "zero", minor: 0, want: "₹0.00"},
		{name: "paise_only", minor: 5, want: "₹0.05"},
		{name: "whole", minor: 50000, want: "₹500.00"},
		{name: "no_grouping", minor: 123456, want: "₹1234.56"},
		{name: "negative", minor: -1234, want: "₹-12.34"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Format(tt.minor); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatGrouped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		minor int64
		want  string
	}{
		{name: "zero", minor: 0, want: "₹0.00"},
		{name: "hundreds", minor: 99999, want: "₹999.99"},
		{name: "thousand", minor: 100000, want: "₹1,000.00"},
		{name: "ten_thousand", minor: 1234500, want: "₹12,345.00"},
		{name: "lakh", minor: 12345678, want: "₹1,23,456.78"},
		{name: "ten_lakh", minor: 123456789, want: "₹12,34,567.89"},
		{name: "crore", minor: 1000000000, want: "₹1,00,00,000.00"},
		{name: "negative", minor: -1234500, want: "₹-12,345.00"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FormatGrouped(tt.minor); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
