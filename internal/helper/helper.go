package helper

import (
	"strings"

	"github.com/shopspring/decimal"
)

var quoteAssets = []string{"USDT", "USDC", "USD", "BUSD"}

// BaseQuote разбирает символ в любом из форматов:
// BTC-USDT, BTCUSDT, BTC/USDT, BTC_USDT, BTC-USDT-SWAP.
func BaseQuote(raw string) (base, quote string, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, "-SWAP")
	s = strings.TrimSuffix(s, ".P")

	for _, sep := range []string{"-", "/", "_"} {
		if i := strings.Index(s, sep); i > 0 && i < len(s)-1 {
			return s[:i], s[i+1:], true
		}
	}
	for _, q := range quoteAssets {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q, true
		}
	}
	return "", "", false
}

// DashSymbol: BTC-USDT (BingX).
func DashSymbol(raw string) string {
	b, q, ok := BaseQuote(raw)
	if !ok {
		return strings.ToUpper(strings.TrimSpace(raw))
	}
	return b + "-" + q
}

// SwapInstID: BTC-USDT-SWAP (OKX).
func SwapInstID(raw string) string {
	b, q, ok := BaseQuote(raw)
	if !ok {
		return strings.ToUpper(strings.TrimSpace(raw))
	}
	return b + "-" + q + "-SWAP"
}

// PlainSymbol: BTCUSDT (Binance).
func PlainSymbol(raw string) string {
	b, q, ok := BaseQuote(raw)
	if !ok {
		return strings.ToUpper(strings.TrimSpace(raw))
	}
	return b + q
}

// DigitsFromStep: "0.001" -> 3, "1" -> 0, "0.0100" -> 2.
func DigitsFromStep(step string) (int32, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(step))
	if err != nil || !d.IsPositive() {
		return 0, false
	}
	return DecimalPlaces(d), true
}

// FloorToPrecision отбрасывает разряды после digits (в сторону нуля для положительных).
func FloorToPrecision(v decimal.Decimal, digits int32) decimal.Decimal {
	if digits < 0 {
		digits = 0
	}
	return v.RoundFloor(digits)
}

func MaxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// DecimalPlaces: сколько значащих знаков после запятой.
func DecimalPlaces(v decimal.Decimal) int32 {
	s := v.String()
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return int32(len(strings.TrimRight(s[i+1:], "0")))
}
