package aggregator

import (
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/shopspring/decimal"
)

// Opacity range used to shade calendar cells by P&L intensity.
const (
	MinCellOpacity = 0.25
	MaxCellOpacity = 1.0
)

// BuildMonthlyView derives the calendar-month card of the month containing
// anyDateInMonth in the profile's timezone. It returns nil when nothing was
// logged that month.
func BuildMonthlyView(allEntries []domain.TradeEntry, anyDateInMonth time.Time, profile domain.Profile) *domain.MonthlyView {
	start, end := MonthBounds(anyDateInMonth, profile.Location())
	return buildMonth(NewEntryIndex(allEntries), start, end, profile)
}

func buildMonth(idx *EntryIndex, start, end time.Time, profile domain.Profile) *domain.MonthlyView {
	entries := idx.Between(start, end)
	if len(entries) == 0 {
		return nil
	}

	t := tallyEntries(entries)
	rate := winRate(t.wins, t.losses)
	r := roi(t.total, profile.TradingCapital)
	best, worst := extremes(entries)

	maxAbs := decimal.Zero
	for _, e := range entries {
		if a := FinalResult(e).Abs(); a.GreaterThan(maxAbs) {
			maxAbs = a
		}
	}

	return &domain.MonthlyView{
		Month:       start,
		MonthLabel:  monthLabel(start),
		TotalPnl:    t.total,
		TotalTrades: t.trades,
		Wins:        t.wins,
		Losses:      t.losses,
		WinRate:     rate,
		ROI:         r,
		BestDay:     dayResult(best, profile.Currency),
		WorstDay:    dayResult(worst, profile.Currency),
		Grid:        CalendarGrid(idx, start, end),
		MaxAbsPnl:   maxAbs,
		EntryCount:  len(entries),

		TotalPnlText: FormatMoney(t.total, profile.Currency),
		ROIText:      FormatROI(r),
		WinRateText:  formatWinRate(rate),
		WLText:       formatWL(t.wins, t.losses),
		TradesText:   formatTrades(t.trades),
	}
}

// CalendarGrid lays out start..end as Monday-first week rows. Cells before
// the first day and after the last are nil so len(grid) % 7 == 0.
func CalendarGrid(idx *EntryIndex, start, end time.Time) []*domain.CalendarCell {
	lead := mondayOffset(start)
	days := int(end.Sub(start).Hours()/24) + 1
	size := lead + days
	if rem := size % 7; rem != 0 {
		size += 7 - rem
	}

	grid := make([]*domain.CalendarCell, size)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		cell := &domain.CalendarCell{Day: day.Day(), Date: day}
		if e, ok := idx.Get(day); ok {
			pnl := FinalResult(e)
			cell.Pnl = &pnl
		}
		grid[lead+i] = cell
	}
	return grid
}

// Intensity maps |value| / maxAbs linearly into [MinCellOpacity,
// MaxCellOpacity]. A zero maxAbs yields MinCellOpacity.
func Intensity(value, maxAbs decimal.Decimal) float64 {
	if !maxAbs.IsPositive() {
		return MinCellOpacity
	}
	ratio := value.Abs().Div(maxAbs).InexactFloat64()
	if ratio > 1 {
		ratio = 1
	}
	return MinCellOpacity + ratio*(MaxCellOpacity-MinCellOpacity)
}
