package pairing

import "unicode"

// IsOptionsSymbol reports whether a symbol looks like an OCC-style options
// contract, e.g. SPY251218C00679000 or ABR251121P00011000: an underlying,
// a YYMMDD expiry, a C/P flag and a padded strike.
func IsOptionsSymbol(symbol string) bool {
	if len(symbol) < 10 {
		return false
	}

	hasCallPut := false
	for _, r := range symbol {
		if r == 'C' || r == 'P' {
			hasCallPut = true
			break
		}
	}
	if !hasCallPut {
		return false
	}

	// Six consecutive digits is the expiry date; very long symbols with a
	// C/P are treated as contracts even without one.
	digitRun := 0
	hasDatePattern := false
	for _, r := range symbol {
		if unicode.IsDigit(r) {
			digitRun++
			if digitRun >= 6 {
				hasDatePattern = true
				break
			}
		} else {
			digitRun = 0
		}
	}

	return hasDatePattern || len(symbol) > 15
}

// UnderlyingSymbol strips the contract suffix: everything before the first
// digit. Plain tickers come back unchanged.
func UnderlyingSymbol(symbol string) string {
	for i, r := range symbol {
		if unicode.IsDigit(r) {
			if i == 0 {
				return symbol
			}
			return symbol[:i]
		}
	}
	return symbol
}

// ContractMultiplier returns the pnl multiplier for a symbol: 100 for
// options contracts, 1 for shares.
func ContractMultiplier(symbol string) float64 {
	if IsOptionsSymbol(symbol) {
		return 100.0
	}
	return 1.0
}
