package payment

import "testing"

func TestParseExpiry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        string
		wantMonth string
		wantYear  *string
	}{
		{name: "month_year", in: "12/25", wantMonth: "12", wantYear: strPtr("25")},
		{name: "no_separator", in: "1225", wantMonth: "1225", wantYear: nil},
		{name: "empty", in: "", wantMonth: "", wantYear: nil},
		{name: "trailing_separator", in: "12/", wantMonth: "12", wantYear: strPtr("")},
		{name: "extra_tokens", in: "12/25/99", wantMonth: "12", wantYear: strPtr("25")},
		{name: "not_validated", in: "13/0", wantMonth: "13", wantYear: strPtr("0")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			month, year := ParseExpiry(tt.in)
			if month != tt.wantMonth {
				t.Fatalf("expected month %q, got %q", tt.wantMonth, month)
			}
			switch {
			case tt.wantYear == nil && year != nil:
				t.Fatalf("expected undefined year, got %q", *year)
			case tt.wantYear != nil && year == nil:
				t.Fatalf("expected year %q, got undefined", *tt.wantYear)
			case tt.wantYear != nil && *year != *tt.wantYear:
				t.Fatalf("expected year %q, got %q", *tt.wantYear, *year)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   Status
		terminal bool
		known    bool
	}{
		{status: StatusPending, terminal: false, known: true},
		{status: StatusProcessing, terminal: false, known: true},
		{status: StatusSuccess, terminal: true, known: true},
		{status: StatusFailed, terminal: true, known: true},
		{status: Status("SUCCESS"), terminal: false, known: false},
		{status: Status("FAILED"), terminal: false, known: false},
		{status: Status(""), terminal: false, known: false},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Fatalf("%q: expected terminal=%v, got %v", tt.status, tt.terminal, got)
		}
		if got := tt.status.Known(); got != tt.known {
			t.Fatalf("%q: expected known=%v, got %v", tt.status, tt.known, got)
		}
	}
}

func strPtr(s string) *string { return &s }
