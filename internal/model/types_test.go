package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseTradeID(t *testing.T) {
	hexID := strings.Repeat("ab", 32)

	id, err := ParseTradeID(hexID)
	if err != nil {
		t.Fatalf("ParseTradeID failed: %v", err)
	}
	if id.String() != hexID {
		t.Errorf("String() = %q, want %q", id.String(), hexID)
	}
	if id.Short() != "abababab" {
		t.Errorf("Short() = %q, want %q", id.Short(), "abababab")
	}
	if id.IsZero() {
		t.Error("IsZero() = true, want false")
	}

	for _, bad := range []string{"", "abc", strings.Repeat("zz", 32), strings.Repeat("ab", 33)} {
		if _, err := ParseTradeID(bad); err == nil {
			t.Errorf("ParseTradeID(%q) succeeded, want error", bad)
		}
	}
}

func TestTradeID_JSON(t *testing.T) {
	var id TradeID
	id[0] = 0x01
	id[31] = 0xff

	data, err := json.Marshal(map[string]TradeID{"id": id})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]TradeID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["id"] != id {
		t.Errorf("decoded id = %s, want %s", decoded["id"], id)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{in: "1.5", want: 1_500_000},
		{in: "2", want: 2_000_000},
		{in: "0.000001", want: 1},
		{in: "0.0000019", want: 1}, // truncated below one unit
		{in: "0", want: 0},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "99999999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAmount(%q) = %d, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseAmount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestExactAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr error
	}{
		{in: "1.5", want: 1_500_000},
		{in: "1.000001", want: 1_000_001},
		{in: "1.0000010", want: 1_000_001},
		{in: "1.0000005", wantErr: ErrAmountPrecision},
		{in: "0.0000001", wantErr: ErrAmountPrecision},
		{in: "-2", wantErr: ErrNegativeAmount},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ExactAmount(decimal.RequireFromString(tt.in))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ExactAmount(%s) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExactAmount(%s) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ExactAmount(%s) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestAmount_Decimal(t *testing.T) {
	a := Amount(1_500_000)
	if !a.Decimal().Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Decimal() = %s, want 1.5", a.Decimal())
	}
	if a.String() != "1.5" {
		t.Errorf("String() = %q, want %q", a.String(), "1.5")
	}
}

func TestTradeDescriptor_IsLocallyOwned(t *testing.T) {
	if (TradeDescriptor{}).IsLocallyOwned() {
		t.Error("empty From should not be locally owned")
	}
	if !(TradeDescriptor{From: "addr"}).IsLocallyOwned() {
		t.Error("non-empty From should be locally owned")
	}
	if InvalidDescriptor().State != StateInvalid {
		t.Errorf("InvalidDescriptor().State = %v, want %v", InvalidDescriptor().State, StateInvalid)
	}
}
