package domain

import "github.com/shopspring/decimal"

// Consistency compares a price with the price of the reverse query.
// For a healthy source Forward * Inverse is close to 1; pool fees and
// rounding keep it from being exact.
type Consistency struct {
	Forward   decimal.Decimal
	Inverse   decimal.Decimal
	Product   decimal.Decimal
	Deviation decimal.Decimal // |Forward*Inverse - 1|
}

// CheckConsistency computes the round-trip product of two prices.
func CheckConsistency(forward, inverse float64) Consistency {
	f := decimal.NewFromFloat(forward)
	i := decimal.NewFromFloat(inverse)
	product := f.Mul(i)

	return Consistency{
		Forward:   f,
		Inverse:   i,
		Product:   product,
		Deviation: product.Sub(decimal.NewFromInt(1)).Abs(),
	}
}

// Within reports whether the deviation is at most tolerance.
func (c Consistency) Within(tolerance float64) bool {
	return c.Deviation.LessThanOrEqual(decimal.NewFromFloat(tolerance))
}
