package aggregator

import (
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
)

// BuildWeeklyView derives the Monday..Sunday card of the week containing
// anyDateInWeek in the profile's timezone. It returns nil when nothing was
// logged that week: an empty week has no card, which is different from a
// week that summed to zero.
func BuildWeeklyView(allEntries []domain.TradeEntry, anyDateInWeek time.Time, profile domain.Profile) *domain.WeeklyView {
	start, end := WeekBounds(anyDateInWeek, profile.Location())
	return buildWeek(NewEntryIndex(allEntries), start, end, profile)
}

func buildWeek(idx *EntryIndex, start, end time.Time, profile domain.Profile) *domain.WeeklyView {
	entries := idx.Between(start, end)
	if len(entries) == 0 {
		return nil
	}

	t := tallyEntries(entries)
	rate := winRate(t.wins, t.losses)
	r := roi(t.total, profile.TradingCapital)
	best, _ := extremes(entries)

	view := &domain.WeeklyView{
		WeekStart:   start,
		WeekEnd:     end,
		RangeLabel:  rangeLabel(start, end),
		TotalPnl:    t.total,
		TotalTrades: t.trades,
		Wins:        t.wins,
		Losses:      t.losses,
		WinRate:     rate,
		ROI:         r,
		BestDay:     dayResult(best, profile.Currency),
		EntryCount:  len(entries),

		TotalPnlText: FormatMoney(t.total, profile.Currency),
		ROIText:      FormatROI(r),
		WinRateText:  formatWinRate(rate),
		WLText:       formatWL(t.wins, t.losses),
		TradesText:   formatTrades(t.trades),
	}

	for i := range view.Days {
		day := start.AddDate(0, 0, i)
		slot := domain.WeekdaySlot{Weekday: day.Weekday(), Date: day}
		if e, ok := idx.Get(day); ok {
			pnl := FinalResult(e)
			slot.Logged = true
			slot.Pnl = pnl
			slot.IsWin = pnl.IsPositive()
		}
		view.Days[i] = slot
	}

	return view
}
