package probability

import "strings"

// DefaultPipSize applies when a symbol has no explicit entry.
const DefaultPipSize = 0.0001

var pipSizes = map[string]float64{
	"EURUSD": 0.0001,
	"GBPUSD": 0.0001,
	"USDJPY": 0.01,
	"XAUUSD": 0.01,
}

// NormalizeSymbol strips separators and uppercases, so "EUR/USD" and
// "eurusd" share one identity.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), "/", ""))
}

// PipSize returns the pip unit used to scale target distances for a
// symbol.
func PipSize(symbol string) float64 {
	if size, ok := pipSizes[NormalizeSymbol(symbol)]; ok {
		return size
	}
	return DefaultPipSize
}
