// Package aggregator derives the daily, weekly and monthly recap card views
// from a user's trade log. Every function here is pure: no I/O, no clock,
// no shared state, so views may be built concurrently per request.
package aggregator

import (
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FinalResult is the canonical P&L of a day: gross minus charges when
// charges are tracked, gross otherwise.
func FinalResult(e domain.TradeEntry) decimal.Decimal {
	if e.Charges != nil {
		return e.GrossPnl.Sub(*e.Charges)
	}
	return e.GrossPnl
}

func IsWin(e domain.TradeEntry) bool {
	return FinalResult(e).IsPositive()
}

func IsLoss(e domain.TradeEntry) bool {
	return FinalResult(e).IsNegative()
}

// roi returns pnl as a percentage of capital, rounded to two places. A nil,
// zero or negative capital yields nil.
func roi(pnl decimal.Decimal, capital *decimal.Decimal) *decimal.Decimal {
	if capital == nil || !capital.IsPositive() {
		return nil
	}
	r := pnl.Div(*capital).Mul(hundred).Round(2)
	return &r
}

// dailyCapital prefers the capital deployed that day over the profile's.
func dailyCapital(e domain.TradeEntry, p domain.Profile) *decimal.Decimal {
	if e.CapitalDeployed != nil {
		return e.CapitalDeployed
	}
	return p.TradingCapital
}

// winRate is wins/(wins+losses) as a whole percentage, rounded half up.
func winRate(wins, losses int) int {
	total := wins + losses
	if total == 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(wins) * 100).
		Div(decimal.NewFromInt(int64(total))).
		Round(0).
		IntPart())
}

type tally struct {
	total  decimal.Decimal
	trades int
	wins   int
	losses int
}

func tallyEntries(entries []domain.TradeEntry) tally {
	t := tally{total: decimal.Zero}
	for _, e := range entries {
		r := FinalResult(e)
		t.total = t.total.Add(r)
		t.trades += e.NumTrades
		switch {
		case r.IsPositive():
			t.wins++
		case r.IsNegative():
			t.losses++
		}
	}
	return t
}

// extremes returns the first strict maximum and minimum in slice order.
// entries must already be sorted by date.
func extremes(entries []domain.TradeEntry) (best, worst *domain.TradeEntry) {
	for i := range entries {
		r := FinalResult(entries[i])
		if best == nil || r.GreaterThan(FinalResult(*best)) {
			best = &entries[i]
		}
		if worst == nil || r.LessThan(FinalResult(*worst)) {
			worst = &entries[i]
		}
	}
	return best, worst
}

func dayResult(e *domain.TradeEntry, c domain.Currency) *domain.DayResult {
	if e == nil {
		return nil
	}
	pnl := FinalResult(*e)
	return &domain.DayResult{
		Date: e.Date,
		Pnl:  pnl,
		Text: FormatMoney(pnl, c),
	}
}
