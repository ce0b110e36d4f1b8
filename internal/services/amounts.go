package services

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid token amount")

// ParseTokenAmount decodes a withdrawal amount into an exact integer in
// smallest token units. Amounts stored in numeric-typed columns can come
// back in scientific notation ("2e+22"); decimal reconstructs the exact
// digit string without ever round-tripping through a float.
func ParseTokenAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: amount is empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed amount %q", ErrInvalidAmount, raw)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %q", ErrInvalidAmount, raw)
	}
	if !d.IsInteger() {
		return nil, fmt.Errorf("%w: amount %q has fractional smallest units", ErrInvalidAmount, raw)
	}

	return d.BigInt(), nil
}

// AmountToUint64 narrows an exact amount to the u64 range required by SPL
// token transfers.
func AmountToUint64(amount *big.Int) (uint64, error) {
	if !amount.IsUint64() {
		return 0, fmt.Errorf("amount %s exceeds the transferable range", amount.String())
	}
	return amount.Uint64(), nil
}
