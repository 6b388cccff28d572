package pairing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOptionsSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   bool
	}{
		{"SPY251218C00679000", true},
		{"ABR251121P00011000", true},
		{"AAPL", false},
		{"TSLA", false},
		{"BRK.B", false},
		{"SPYC", false},          // C present but too short
		{"COMPUTERSHAREPLC", true}, // long with C/P reads as a contract
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsOptionsSymbol(tt.symbol), "symbol %q", tt.symbol)
	}
}

func TestUnderlyingSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"SPY251218C00679000", "SPY"},
		{"ABR251121P00011000", "ABR"},
		{"AAPL", "AAPL"},
		{"123X", "123X"}, // leading digit, no base to strip
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UnderlyingSymbol(tt.symbol), "symbol %q", tt.symbol)
	}
}

func TestContractMultiplier(t *testing.T) {
	assert.Equal(t, 100.0, ContractMultiplier("SPY251218C00679000"))
	assert.Equal(t, 1.0, ContractMultiplier("SPY"))
}
