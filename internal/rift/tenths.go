package rift

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Tenths is a value rounded to one decimal place.
// It renders with exactly one fractional digit, so 100 prints as "100.0".
type Tenths struct {
	decimal.Decimal
}

// ratio returns num/den rounded to one decimal. A zero denominator yields 0.0.
func ratio(num, den int64) Tenths {
	if den == 0 {
		return Tenths{decimal.Zero}
	}
	return Tenths{decimal.NewFromInt(num).Div(decimal.NewFromInt(den)).Round(1)}
}

// percentOf returns 100*num/den rounded to one decimal.
func percentOf(num, den int64) Tenths {
	if den == 0 {
		return Tenths{decimal.Zero}
	}
	return Tenths{decimal.NewFromInt(num).Mul(hundred).Div(decimal.NewFromInt(den)).Round(1)}
}

// NewTenths rounds f to one decimal place.
func NewTenths(f float64) Tenths {
	return Tenths{decimal.NewFromFloat(f).Round(1)}
}

// String renders the value with one fractional digit.
func (t Tenths) String() string {
	return t.StringFixed(1)
}

// Float returns the value as a float64.
func (t Tenths) Float() float64 {
	f, _ := t.Float64()
	return f
}

// IsHundred reports whether the value is exactly 100.0.
func (t Tenths) IsHundred() bool {
	return t.Equal(hundred)
}

// MarshalJSON renders the value as a bare JSON number with one fractional digit.
func (t Tenths) MarshalJSON() ([]byte, error) {
	return []byte(t.StringFixed(1)), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (t *Tenths) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	t.Decimal = d.Round(1)
	return nil
}
