package token

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/mcoot/reflexpool/internal/model"
)

// FormatAmount renders base units as a fixed-point decimal, e.g. 10000000 at
// 6 decimals is "10.000000"
func FormatAmount(amount model.Amount, decimals uint8) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(amount)), -int32(decimals))
	return d.StringFixed(int32(decimals))
}

// ParseAmount converts a decimal string such as "10" or "2.5" to base units
func ParseAmount(s string, decimals uint8) (model.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", model.ErrInvalidAmount, s)
	}

	units := d.Shift(int32(decimals))
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", model.ErrInvalidAmount, s, decimals)
	}

	bi := units.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%w: %q", model.ErrAmountOverflow, s)
	}
	return model.Amount(bi.Uint64()), nil
}
