package helper

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSymbolFormats(t *testing.T) {
	tests := []struct {
		raw               string
		dash, swap, plain string
	}{
		{"BTC-USDT", "BTC-USDT", "BTC-USDT-SWAP", "BTCUSDT"},
		{"btcusdt", "BTC-USDT", "BTC-USDT-SWAP", "BTCUSDT"},
		{"ETH/USDT", "ETH-USDT", "ETH-USDT-SWAP", "ETHUSDT"},
		{"SOL_USDT", "SOL-USDT", "SOL-USDT-SWAP", "SOLUSDT"},
		{"DOGE-USDT-SWAP", "DOGE-USDT", "DOGE-USDT-SWAP", "DOGEUSDT"},
		{"BTCUSDT.P", "BTC-USDT", "BTC-USDT-SWAP", "BTCUSDT"},
	}
	for _, tt := range tests {
		if got := DashSymbol(tt.raw); got != tt.dash {
			t.Errorf("DashSymbol(%q) = %q, want %q", tt.raw, got, tt.dash)
		}
		if got := SwapInstID(tt.raw); got != tt.swap {
			t.Errorf("SwapInstID(%q) = %q, want %q", tt.raw, got, tt.swap)
		}
		if got := PlainSymbol(tt.raw); got != tt.plain {
			t.Errorf("PlainSymbol(%q) = %q, want %q", tt.raw, got, tt.plain)
		}
	}
}

func TestDigitsFromStep(t *testing.T) {
	tests := []struct {
		step string
		want int32
		ok   bool
	}{
		{"0.001", 3, true},
		{"0.0100", 2, true},
		{"1", 0, true},
		{"10", 0, true},
		{"0.00000001", 8, true},
		{"0", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := DigitsFromStep(tt.step)
		if ok != tt.ok || got != tt.want {
			t.Errorf("DigitsFromStep(%q) = %d,%v want %d,%v", tt.step, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFloorToPrecision(t *testing.T) {
	tests := []struct {
		in     string
		digits int32
		want   string
	}{
		{"0.000735294117", 4, "0.0007"},
		{"0.000735294117", 3, "0"},
		{"1.99999", 2, "1.99"},
		{"12.5", 0, "12"},
		{"12.5", -1, "12"},
	}
	for _, tt := range tests {
		got := FloorToPrecision(decimal.RequireFromString(tt.in), tt.digits)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("FloorToPrecision(%s, %d) = %s, want %s", tt.in, tt.digits, got, tt.want)
		}
		if DecimalPlaces(got) > max32(tt.digits, 0) {
			t.Errorf("FloorToPrecision(%s, %d) has %d places", tt.in, tt.digits, DecimalPlaces(got))
		}
	}
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func TestMaxDecimal(t *testing.T) {
	a, b := decimal.NewFromInt(70000), decimal.NewFromInt(65000)
	if !MaxDecimal(a, b).Equal(a) || !MaxDecimal(b, a).Equal(a) {
		t.Fatal("MaxDecimal broken")
	}
}
