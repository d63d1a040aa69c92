package payment

import "github.com/shopspring/decimal"

var paisePerRupee = decimal.NewFromInt(100)

// ToMinorUnits converts rupees to paise. Fractions of a paisa are rejected
// instead of rounded so the provider is never asked for a different amount.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	paise := amount.Mul(paisePerRupee)
	if !paise.Equal(paise.Truncate(0)) {
		return 0, ErrInvalidAmount
	}
	return paise.IntPart(), nil
}

func FromMinorUnits(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}
