package session

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var secondsPerHour = decimal.NewFromInt(3600)

// RatePlaces is the number of decimal places an hourly rate may carry
const RatePlaces = 2

// CalculateFee bills the whole elapsed duration at hourlyRate, rounded to
// two decimal places. Rate changes during a session are not prorated.
func CalculateFee(elapsedSeconds int64, hourlyRate decimal.Decimal) decimal.Decimal {
	if elapsedSeconds <= 0 || hourlyRate.Sign() <= 0 {
		return decimal.Zero
	}
	// Multiply first so the division is the only inexact step
	return decimal.NewFromInt(elapsedSeconds).Mul(hourlyRate).DivRound(secondsPerHour, 2)
}

// ParseRate parses a user-entered hourly rate.
func ParseRate(input string) (decimal.Decimal, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty", ErrInvalidRate)
	}

	rate, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", ErrInvalidRate, input)
	}
	if err := CheckRate(rate); err != nil {
		return decimal.Decimal{}, err
	}
	return rate, nil
}

// CheckRate rejects negative rates and rates finer than a cent
func CheckRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidRate, rate)
	}
	if !rate.Equal(rate.Truncate(RatePlaces)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidRate, rate, RatePlaces)
	}
	return nil
}
