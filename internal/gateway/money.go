package gateway

import "github.com/shopspring/decimal"

// toMinorUnits converts an amount to cents, rounding half away from zero.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
