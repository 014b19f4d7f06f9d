package chains

import (
	"math/big"
	"testing"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"100", 6, "100000000", false},
		{"1.5", 18, "1500000000000000000", false},
		{"0.000001", 6, "1", false},
		{"0", 18, "0", false},
		{".5", 6, "500000", false},
		{"1.2345678", 6, "", true}, // more precision than the token carries
		{"-1", 18, "", true},
		{"", 18, "", true},
		{"abc", 18, "", true},
	}

	for _, tt := range tests {
		got, err := ToBaseUnits(tt.amount, tt.decimals)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ToBaseUnits(%q, %d): expected error, got %s", tt.amount, tt.decimals, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ToBaseUnits(%q, %d): unexpected error: %v", tt.amount, tt.decimals, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ToBaseUnits(%q, %d) = %s, want %s", tt.amount, tt.decimals, got, tt.want)
		}
	}
}

func TestFromBaseUnits(t *testing.T) {
	tests := []struct {
		units    string
		decimals uint8
		want     string
	}{
		{"100000000", 6, "100"},
		{"1500000000000000000", 18, "1.5"},
		{"1", 6, "0.000001"},
		{"0", 18, "0"},
		{"42", 0, "42"},
	}

	for _, tt := range tests {
		units, _ := new(big.Int).SetString(tt.units, 10)
		if got := FromBaseUnits(units, tt.decimals); got != tt.want {
			t.Errorf("FromBaseUnits(%s, %d) = %q, want %q", tt.units, tt.decimals, got, tt.want)
		}
	}
}

// Converting to base units and back must reproduce the input for any amount
// expressible at the token's precision.
func TestConversionRoundTrip(t *testing.T) {
	amounts := []string{"100", "1.5", "0.000001", "123456.789", "0.1"}
	for _, decimals := range []uint8{6, 8, 18} {
		for _, amount := range amounts {
			units, err := ToBaseUnits(amount, decimals)
			if err != nil {
				continue // not expressible at this precision
			}
			if got := FromBaseUnits(units, decimals); got != amount {
				t.Errorf("round trip %q at %d decimals = %q", amount, decimals, got)
			}
		}
	}
}
