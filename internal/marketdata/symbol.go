package marketdata

import (
	"regexp"
	"strings"

	apperrors "chartpattern-scanner/internal/errors"
)

// Tickers such as AAPL, BRK.B, BTC-USD, M&M, ^GSPC and EURUSD=X.
var symbolPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9&.=_-]{0,19}$`)

// NormalizeSymbol trims and upper-cases a user-supplied symbol and rejects
// anything that is not a plausible ticker.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty")
	}
	if !symbolPattern.MatchString(s) {
		return "", apperrors.NewValidationError("symbol", symbol, "invalid symbol format")
	}
	return s, nil
}
