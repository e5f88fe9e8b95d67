// Package render turns built views into what an external image renderer
// and link unfurlers consume: flat string parameters and a small metadata
// document. Producing the image itself happens outside this service.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jeovahfialho/pnl-recap/internal/aggregator"
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/shopspring/decimal"
)

// Params is the query-string shaped hand-off to the renderer.
type Params map[string]string

func (p Params) setIf(key, value string) {
	if value != "" {
		p[key] = value
	}
}

func baseParams(profile domain.Profile) Params {
	p := Params{
		"theme":    profile.Theme,
		"currency": profile.Currency.Label(),
	}
	if p["theme"] == "" {
		p["theme"] = "dark"
	}
	p.setIf("handle", profile.Handle)
	return p
}

func DailyParams(view *domain.DailyView, profile domain.Profile) Params {
	p := baseParams(profile)
	p["date"] = view.DateLabel
	p["pnl"] = view.GrossPnlText
	p.setIf("charges", view.ChargesText)
	p["netPnl"] = view.NetPnlText
	p.setIf("roi", view.ROIText)
	p["trades"] = strconv.Itoa(view.NumTrades)
	if view.Streak > 0 {
		p["streak"] = strconv.Itoa(view.Streak)
	}
	return p
}

func WeeklyParams(view *domain.WeeklyView, profile domain.Profile) Params {
	p := baseParams(profile)
	p["range"] = view.RangeLabel
	p["pnl"] = view.TotalPnlText
	p["totalPnl"] = view.TotalPnlText
	p.setIf("roi", view.ROIText)
	p["winRate"] = view.WinRateText
	p["wl"] = view.WLText
	p["totalTrades"] = strconv.Itoa(view.TotalTrades)
	p.setIf("best", dayText(view.BestDay))
	return p
}

func MonthlyParams(view *domain.MonthlyView, profile domain.Profile) Params {
	p := baseParams(profile)
	p["month"] = view.MonthLabel
	p["pnl"] = view.TotalPnlText
	p["totalPnl"] = view.TotalPnlText
	p.setIf("roi", view.ROIText)
	p["winRate"] = view.WinRateText
	p["wl"] = view.WLText
	p["totalTrades"] = strconv.Itoa(view.TotalTrades)
	p.setIf("best", dayText(view.BestDay))
	p.setIf("worst", dayText(view.WorstDay))
	p["calendarGrid"] = EncodeGrid(view.Grid, view.MaxAbsPnl)
	return p
}

// dayText renders a best/worst day as "Jan 14 +3,010".
func dayText(d *domain.DayResult) string {
	if d == nil {
		return ""
	}
	return d.Date.Format("Jan 2") + " " + d.Text
}

// EncodeGrid writes the calendar as comma separated day:value:intensity
// cells. Padding cells are empty strings and days without an entry carry
// neither value nor intensity, e.g. ",,1:-1500:0.48,2::,...".
func EncodeGrid(grid []*domain.CalendarCell, maxAbs decimal.Decimal) string {
	cells := make([]string, len(grid))
	for i, cell := range grid {
		switch {
		case cell == nil:
			cells[i] = ""
		case cell.Pnl == nil:
			cells[i] = fmt.Sprintf("%d::", cell.Day)
		default:
			cells[i] = fmt.Sprintf("%d:%s:%.2f", cell.Day, cell.Pnl.String(), aggregator.Intensity(*cell.Pnl, maxAbs))
		}
	}
	return strings.Join(cells, ",")
}
