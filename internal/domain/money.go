package domain

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

func currencyUnit(code string) (currency.Unit, int32, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return currency.Unit{}, 0, errors.Wrapf(ErrUnknownCurrency, "%q", code)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return unit, int32(scale), nil
}

// ValidateCurrency reports whether code is a known ISO 4217 currency and
// returns its canonical form.
func ValidateCurrency(code string) (string, error) {
	unit, _, err := currencyUnit(code)
	if err != nil {
		return "", err
	}
	return unit.String(), nil
}

// FormatAmount renders an amount as "<value> <ISO code>" with at least the
// currency's minor-unit scale, e.g. "13000.00 NGN". Digits beyond that scale
// are kept, never rounded, so ParseAmount always reads back the same value.
func FormatAmount(amount decimal.Decimal, code string) (string, error) {
	unit, scale, err := currencyUnit(code)
	if err != nil {
		return "", err
	}
	places := max(scale, -amount.Exponent())
	return amount.StringFixed(places) + " " + unit.String(), nil
}

func ParseAmount(s string) (decimal.Decimal, string, error) {
	value, code, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return decimal.Zero, "", errors.Wrapf(ErrInvalidInput, "amount %q has no currency", s)
	}
	unit, _, err := currencyUnit(code)
	if err != nil {
		return decimal.Zero, "", err
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, "", errors.Wrapf(ErrInvalidInput, "amount %q", value)
	}
	return amount, unit.String(), nil
}
