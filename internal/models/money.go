package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// FormatMinor renders an amount in minor units (cents) as a fixed two-decimal string.
func FormatMinor(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// CurrencyForCountry returns the ISO 4217 code in use in an ISO 3166 alpha-2 country.
func CurrencyForCountry(country string) (string, error) {
	region, err := language.ParseRegion(strings.ToUpper(strings.TrimSpace(country)))
	if err != nil {
		return "", fmt.Errorf("unknown country %q: %w", country, err)
	}
	unit, ok := currency.FromRegion(region)
	if !ok {
		return "", fmt.Errorf("no currency for country %q", country)
	}
	return unit.String(), nil
}
