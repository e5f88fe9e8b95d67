package aggregator

import (
	"github.com/jeovahfialho/pnl-recap/internal/domain"
)

// BuildDailyView derives the daily card of entry. allEntries is the user's
// full log, needed for the streak lookback; entry itself need not be in it.
func BuildDailyView(entry domain.TradeEntry, allEntries []domain.TradeEntry, profile domain.Profile) domain.DailyView {
	net := FinalResult(entry)
	r := roi(net, dailyCapital(entry, profile))

	view := domain.DailyView{
		Date:      entry.Date,
		DateLabel: dateLabel(entry.Date),
		GrossPnl:  entry.GrossPnl,
		Charges:   entry.Charges,
		NetPnl:    net,
		ROI:       r,
		NumTrades: entry.NumTrades,
		Streak:    Streak(entry, NewEntryIndex(allEntries)),
		IsWin:     net.IsPositive(),

		GrossPnlText: FormatMoney(entry.GrossPnl, profile.Currency),
		NetPnlText:   FormatMoney(net, profile.Currency),
		ROIText:      FormatROI(r),
		TradesText:   formatTrades(entry.NumTrades),
	}
	if entry.Charges != nil {
		view.ChargesText = FormatMoney(*entry.Charges, profile.Currency)
	}

	return view
}

// Streak counts consecutive winning days ending at entry.Date, stepping back
// one calendar day at a time. A missing or non-winning day ends the walk.
func Streak(entry domain.TradeEntry, idx *EntryIndex) int {
	if !IsWin(entry) {
		return 0
	}

	streak := 1
	day := entry.Date.AddDate(0, 0, -1)
	for {
		prev, ok := idx.Get(day)
		if !ok || !IsWin(prev) {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}
