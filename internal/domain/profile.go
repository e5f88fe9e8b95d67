package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency = errors.New("moeda inválida")
	ErrInvalidTimezone = errors.New("fuso horário inválido")
)

type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case CurrencyINR:
		return CurrencyINR, nil
	case CurrencyUSD:
		return CurrencyUSD, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
}

// Symbol is the glyph shown next to amounts.
func (c Currency) Symbol() string {
	if c == CurrencyUSD {
		return "$"
	}
	return "₹"
}

// Label is a plain-ASCII stand-in for Symbol, for renderers whose fonts lack
// the rupee glyph.
func (c Currency) Label() string {
	if c == CurrencyUSD {
		return "$"
	}
	return "Rs."
}

// Profile is the read-only context threaded into every aggregation.
type Profile struct {
	UserID         string           `db:"user_id" json:"user_id"`
	Currency       Currency         `db:"currency" json:"currency"`
	Timezone       string           `db:"timezone" json:"timezone"`
	TradingCapital *decimal.Decimal `db:"trading_capital" json:"trading_capital,omitempty"`
	Handle         string           `db:"handle" json:"handle,omitempty"`
	Theme          string           `db:"theme" json:"theme"`
}

// Location resolves Timezone, falling back to UTC when it is empty or
// unknown. Profiles are validated on write, so the fallback only covers
// rows written before validation existed.
func (p Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (p Profile) Validate() error {
	if _, err := ParseCurrency(string(p.Currency)); err != nil {
		return err
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTimezone, p.Timezone)
		}
	}
	if p.TradingCapital != nil && p.TradingCapital.IsNegative() {
		return fmt.Errorf("trading_capital negativo")
	}
	return nil
}
