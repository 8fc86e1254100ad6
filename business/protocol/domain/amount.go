package domain

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
)

// Amount is an unsigned token amount in base units. The order API encodes
// it as a decimal string. The zero value is 0.
type Amount struct {
	i *big.Int
}

// NewAmount copies x into an Amount. A nil x is 0.
func NewAmount(x *big.Int) Amount {
	if x == nil {
		return Amount{}
	}
	return Amount{i: new(big.Int).Set(x)}
}

// Big returns a copy of the amount.
func (a Amount) Big() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.i)
}

// IsZero reports whether the amount is 0.
func (a Amount) IsZero() bool {
	return a.i == nil || a.i.Sign() == 0
}

func (a Amount) String() string {
	if a.i == nil {
		return "0"
	}
	return a.i.String()
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal or 0x-hex string, or a bare JSON number.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		a.i = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, ok := math.ParseBig256(s)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("invalid amount %q", s)
	}
	a.i = v
	return nil
}
