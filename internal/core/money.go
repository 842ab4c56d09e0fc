// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integers in minor units everywhere. Conversion to and
// from major units happens only when parsing form input and when formatting
// for display.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

type (
	Direction string

	Money struct {
		Cents int64
	}
)

// maxMagnitude keeps magnitude*100 inside int64.
var maxMagnitude = decimal.New(1<<63-1, -2)

// Multiplier returns +1 for income and -1 for expense.
func (d Direction) Multiplier() (int64, error) {
	switch d {
	case Income:
		return 1, nil
	case Expense:
		return -1, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, string(d))
	}
}

// ParseDirection normalises a direction string.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if _, err := d.Multiplier(); err != nil {
		return "", err
	}
	return d, nil
}

// ParseMagnitude converts an unsigned amount in major units to minor units.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Fractions beyond
// the second digit are rounded half away from zero. Zero and negative values
// are rejected.
//
// Examples:
//
//	ParseMagnitude("12.50")  -> Money{1250}, nil
//	ParseMagnitude("0,015")  -> Money{2}, nil
//	ParseMagnitude("-3")     -> error
func ParseMagnitude(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, s)
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return Money{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if d.GreaterThan(maxMagnitude) {
		return Money{}, fmt.Errorf("%w: amount %q too large", ErrInvalidInput, s)
	}
	return Money{Cents: d.Shift(2).IntPart()}, nil
}

// SignedAmount derives the stored amount from a direction and a magnitude in
// major units: multiplier(direction) * magnitude * 100.
func SignedAmount(direction, magnitude string) (Money, error) {
	d, err := ParseDirection(direction)
	if err != nil {
		return Money{}, err
	}
	m, err := ParseMagnitude(magnitude)
	if err != nil {
		return Money{}, err
	}
	mult, _ := d.Multiplier()
	return Money{Cents: mult * m.Cents}, nil
}

// Add returns the sum of m and o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Direction reports the direction encoded by the sign.
func (m Money) Direction() Direction {
	if m.Cents < 0 {
		return Expense
	}
	return Income
}

// Abs returns the magnitude.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// FormatAmount renders minor units in major units with exactly two fraction
// digits, sign preserved.
func FormatAmount(m Money) string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

// MagnitudeInput renders the unsigned major-unit value used to prefill forms.
func MagnitudeInput(m Money) string {
	return FormatAmount(m.Abs())
}

func (m Money) String() string {
	return FormatAmount(m)
}
