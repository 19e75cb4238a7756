package model

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		currency string
		want     string
		minor    int64
		wantErr  bool
	}{
		{"whole number", "99", "USD", "99.00", 9900, false},
		{"with cents", "123.45", "usd", "123.45", 12345, false},
		{"one decimal", "99.9", "EUR", "99.90", 9990, false},
		{"small value", "0.01", "USD", "0.01", 1, false},
		{"trailing zeros beyond cents", "10.000", "USD", "10.00", 1000, false},
		{"large value", "1234567.89", "GBP", "1234567.89", 123456789, false},
		{"padded", "  5.50 ", " usd ", "5.50", 550, false},
		{"empty", "", "USD", "", 0, true},
		{"zero", "0.00", "USD", "", 0, true},
		{"negative", "-10.00", "USD", "", 0, true},
		{"not a number", "abc", "USD", "", 0, true},
		{"sub-cent", "1.005", "USD", "", 0, true},
		{"bad currency", "1.00", "US", "", 0, true},
		{"numeric currency", "1.00", "840", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.value, tt.currency)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q, %q) error = %v, wantErr %v", tt.value, tt.currency, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Errorf("error = %v, want ErrInvalidRequest", err)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("String() = %q, want %q", got.String(), tt.want)
			}
			if got.MinorUnits() != tt.minor {
				t.Errorf("MinorUnits() = %d, want %d", got.MinorUnits(), tt.minor)
			}
		})
	}
}
