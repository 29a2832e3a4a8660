package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// NearDecimals is the number of yocto units in one NEAR, as a power of ten.
const NearDecimals = 24

// maxAmountExponent bounds the decimal exponent of float-style literals.
// Total NEAR supply is below 1e34 yocto.
const maxAmountExponent = 64

// Amount is a non-negative token quantity in the smallest unit (yoctoNEAR).
type Amount struct {
	v     *big.Int
	lossy bool
}

func NewAmount(v uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(v)}
}

// ParseAmount accepts plain decimal integers and float-style literals such as
// "1.2361571289765e21". Float-style input is expanded to the exact integer the
// literal denotes and marked lossy.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}

	if v, ok := new(big.Int).SetString(s, 10); ok {
		if v.Sign() < 0 {
			return Amount{}, fmt.Errorf("negative amount: %s", s)
		}
		return Amount{v: v}, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Sign() < 0 {
		return Amount{}, fmt.Errorf("negative amount: %s", s)
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return Amount{}, fmt.Errorf("amount %q is out of range", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return Amount{}, fmt.Errorf("amount %q is not an integer", s)
	}
	return Amount{v: d.BigInt(), lossy: true}, nil
}

// Int returns a copy of the underlying integer.
func (a Amount) Int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.v)
}

func (a Amount) String() string {
	if a.v == nil {
		return "0"
	}
	return a.v.String()
}

func (a Amount) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

// Lossy reports whether the amount was decoded from a float-style literal, whose
// low digits were most likely rounded before they reached us.
func (a Amount) Lossy() bool {
	return a.lossy
}

func (a Amount) Cmp(other Amount) int {
	return a.Int().Cmp(other.Int())
}

func (a Amount) Add(other Amount) Amount {
	sum := a.Int()
	sum.Add(sum, other.Int())
	return Amount{v: sum, lossy: a.lossy || other.lossy}
}

// Human renders the amount in NEAR.
func (a Amount) Human() string {
	return decimal.NewFromBigInt(a.Int(), -NearDecimals).String()
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string, a JSON number, or null (zero).
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
	}

	parsed, err := ParseAmount(text)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
