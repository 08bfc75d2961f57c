// Package money provides fixed-point, 4-decimal monetary arithmetic over
// shopspring/decimal, replacing the ad hoc big.Float-over-string approach
// the teacher's ledger package used. Every Amount is stored and
// transmitted as a decimal string with exactly four fractional digits,
// matching the Persistent Store's NUMERIC(20,4) columns.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const Scale = 4

// Amount is an immutable non-negative-by-convention monetary value.
// Parse and FromInt accept negative and zero values; the transfer
// engine's request validation rejects any transfer amount that is not
// strictly positive.
type Amount struct {
	d decimal.Decimal
}

var Zero = Amount{d: decimal.Zero}

// Parse reads a decimal string (as stored in Postgres or received over
// HTTP) into an Amount, rejecting malformed input.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	return Amount{d: d.Round(Scale)}, nil
}

// MustParse panics on malformed input - reserved for constants and test
// fixtures, never for untrusted input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func FromInt(i int64) Amount {
	return Amount{d: decimal.NewFromInt(i).Round(Scale)}
}

func (a Amount) String() string {
	return a.d.StringFixed(Scale)
}

func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

func (a Amount) GreaterThanOrEqual(other Amount) bool {
	return a.d.GreaterThanOrEqual(other.d)
}

func (a Amount) LessThan(other Amount) bool {
	return a.d.LessThan(other.d)
}

func (a Amount) Equal(other Amount) bool {
	return a.d.Equal(other.d)
}

func (a Amount) Add(other Amount) Amount {
	return Amount{d: a.d.Add(other.d).Round(Scale)}
}

// Sub subtracts other from a and does not reject a negative result. The
// transfer engine checks the source balance with LessThan before it
// subtracts, so a debit never produces a negative balance.
func (a Amount) Sub(other Amount) Amount {
	return Amount{d: a.d.Sub(other.d).Round(Scale)}
}

// ExceedsCeiling reports whether a is strictly greater than the configured
// overflow ceiling, used to reject pathological amounts before they ever
// reach the Persistent Store.
func (a Amount) ExceedsCeiling(ceiling Amount) bool {
	return a.d.GreaterThan(ceiling.d)
}
