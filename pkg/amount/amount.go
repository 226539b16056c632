// Package amount converts between human readable USDC amounts and on-chain base units.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/holiman/uint256"
)

// Decimals is the fixed number of decimals of the bridged asset
const Decimals = 6

var (
	ErrInvalidAmountFormat = errors.New("invalid amount format")
	ErrTooManyDecimals     = errors.New("too many decimal places")
	ErrAmountOverflow      = errors.New("amount exceeds uint256")
)

var amountPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ToBaseUnits parses a decimal string such as "100.5" into base units (100500000)
func ToBaseUnits(s string) (*big.Int, error) {
	if !amountPattern.MatchString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, s)
	}

	integerPart, fractionPart, _ := strings.Cut(s, ".")
	if len(fractionPart) > Decimals {
		return nil, fmt.Errorf("%w: %q has %d, max %d", ErrTooManyDecimals, s, len(fractionPart), Decimals)
	}

	digits := integerPart + fractionPart + strings.Repeat("0", Decimals-len(fractionPart))

	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, s)
	}

	// amounts travel as uint256 on EVM chains, anything wider can never be burned
	if _, overflow := uint256.FromBig(value); overflow {
		return nil, fmt.Errorf("%w: %q", ErrAmountOverflow, s)
	}

	return value, nil
}

// ToDecimalString renders base units as a decimal string with at most maxDecimals fractional digits.
// Trailing fractional zeros are stripped, and the dot is dropped when nothing remains after it.
func ToDecimalString(value *big.Int, maxDecimals int) string {
	if value == nil {
		value = new(big.Int)
	}

	sign := ""
	digits := value.String()
	if value.Sign() < 0 {
		sign = "-"
		digits = digits[1:]
	}

	if len(digits) < Decimals+1 {
		digits = strings.Repeat("0", Decimals+1-len(digits)) + digits
	}

	split := len(digits) - Decimals
	integerPart := digits[:split]
	fractionPart := strings.TrimRight(digits[split:], "0")

	if maxDecimals < 0 {
		maxDecimals = 0
	}
	if len(fractionPart) > maxDecimals {
		fractionPart = fractionPart[:maxDecimals]
	}

	if fractionPart == "" {
		return sign + integerPart
	}
	return sign + integerPart + "." + fractionPart
}

// IsValidAmount reports whether s is a well formed, strictly positive amount
func IsValidAmount(s string) bool {
	v, err := ToBaseUnits(s)
	if err != nil {
		return false
	}
	return v.Sign() > 0
}
