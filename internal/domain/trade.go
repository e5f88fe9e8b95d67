package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

var (
	ErrEntryNotFound   = errors.New("lançamento não encontrado")
	ErrProfileNotFound = errors.New("perfil não encontrado")
	ErrInvalidEntry    = errors.New("lançamento inválido")
)

// TradeEntry is one logged trading day for one user. Date carries no time
// component: it is always midnight UTC of the calendar day.
type TradeEntry struct {
	ID              string           `db:"id" json:"id"`
	UserID          string           `db:"user_id" json:"user_id"`
	Date            time.Time        `db:"trade_date" json:"date"`
	GrossPnl        decimal.Decimal  `db:"gross_pnl" json:"gross_pnl"`
	Charges         *decimal.Decimal `db:"charges" json:"charges,omitempty"`
	NumTrades       int              `db:"num_trades" json:"num_trades"`
	CapitalDeployed *decimal.Decimal `db:"capital_deployed" json:"capital_deployed,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

func (e TradeEntry) DateKey() string {
	return DateKey(e.Date)
}

// DateOf returns the calendar day as midnight UTC.
func DateOf(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CalendarDay strips the clock from t as seen in its own location.
func CalendarDay(t time.Time) time.Time {
	return DateOf(t.Year(), t.Month(), t.Day())
}

func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("data inválida %q (use YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}
