package order

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		id           string
		currency     string
		wantErr      error
		wantID       string
		wantCurrency string
	}{
		{name: "trims_id", id: " order_1 ", currency: "inr", wantID: "order_1", wantCurrency: "INR"},
		{name: "default_currency", id: "order_1", wantID: "order_1", wantCurrency: DefaultCurrency},
		{name: "blank_id", id: "  ", wantErr: ErrInvalidID},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o, err := New(tt.id, 100, tt.currency, StatusCreated)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil {
				return
			}
			if o.ID != tt.wantID || o.Currency != tt.wantCurrency {
				t.Fatalf("unexpected order %+v", o)
			}
		})
	}
}
