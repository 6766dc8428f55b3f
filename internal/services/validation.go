package services

import (
	"fmt"
	"regexp"
	"strings"

	"hive-engine-api/internal/models"

	"github.com/shopspring/decimal"
)

// accountNamePattern covers length 3-16, a leading letter, the lowercase
// letter/digit/dot/hyphen alphabet and a letter-or-digit tail. Separator
// adjacency is checked separately.
var accountNamePattern = regexp.MustCompile(`^[a-z][a-z0-9.-]{1,14}[a-z0-9]$`)

// quantityPattern is a plain fixed-point decimal: no sign, no exponent
var quantityPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// symbolPattern matches token symbols, including dotted pegged symbols
// such as SWAP.HIVE
var symbolPattern = regexp.MustCompile(`^[A-Z]+(\.[A-Z]+)?$`)

// ValidateAccountName checks a sidechain account name. Returns a
// validation error with the specific reason on the first rule violated.
func ValidateAccountName(name string) error {
	if len(name) < 3 || len(name) > 16 {
		return models.NewValidationError(models.ErrorCodeInvalidAccountName,
			fmt.Sprintf("account name %q must be 3-16 characters", name))
	}
	if !accountNamePattern.MatchString(name) {
		return models.NewValidationError(models.ErrorCodeInvalidAccountName,
			fmt.Sprintf("account name %q must start with a letter, end with a letter or digit, and contain only lowercase letters, digits, dots and hyphens", name))
	}
	for _, sep := range []string{"..", "--", ".-", "-."} {
		if strings.Contains(name, sep) {
			return models.NewValidationError(models.ErrorCodeInvalidAccountName,
				fmt.Sprintf("account name %q contains adjacent separators %q", name, sep))
		}
	}
	return nil
}

// ValidateSymbol checks a token symbol
func ValidateSymbol(symbol string) error {
	if len(symbol) == 0 || len(symbol) > 10 || !symbolPattern.MatchString(symbol) {
		return models.NewValidationError(models.ErrorCodeInvalidSymbol,
			fmt.Sprintf("symbol %q must be 1-10 uppercase letters with at most one dot", symbol))
	}
	return nil
}

// ParseQuantity validates and parses a fixed-precision decimal amount.
// The amount must be strictly positive and carry at most precision
// fractional digits.
func ParseQuantity(quantity string, precision int32) (decimal.Decimal, error) {
	if !quantityPattern.MatchString(quantity) {
		return decimal.Zero, models.NewValidationError(models.ErrorCodeInvalidQuantity,
			fmt.Sprintf("quantity %q is not a plain decimal string", quantity))
	}

	if idx := strings.IndexByte(quantity, '.'); idx >= 0 {
		if int32(len(quantity)-idx-1) > precision {
			return decimal.Zero, models.NewValidationError(models.ErrorCodeInvalidQuantity,
				fmt.Sprintf("quantity %q exceeds precision of %d decimal places", quantity, precision))
		}
	}

	d, err := decimal.NewFromString(quantity)
	if err != nil {
		return decimal.Zero, models.NewValidationError(models.ErrorCodeInvalidQuantity,
			fmt.Sprintf("quantity %q is not a valid decimal: %v", quantity, err))
	}

	if !d.IsPositive() {
		return decimal.Zero, models.NewValidationError(models.ErrorCodeInvalidQuantity,
			fmt.Sprintf("quantity %q must be greater than zero", quantity))
	}

	return d, nil
}

// IsValidQuantity reports whether quantity is a well-formed positive
// amount at the given precision.
func IsValidQuantity(quantity string, precision int32) bool {
	_, err := ParseQuantity(quantity, precision)
	return err == nil
}

// parseAmount decodes a wire decimal string leniently: empty or
// malformed values degrade to zero so that read paths stay available
// when chain data is momentarily inconsistent.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
