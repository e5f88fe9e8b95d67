package render

import (
	"fmt"
	"strings"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
)

// Meta is the document served to link unfurlers.
type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `json:"url,omitempty"`
}

// withSymbol places the currency glyph after the sign: "+₹2,700".
func withSymbol(text string, c domain.Currency) string {
	if text == "" {
		return ""
	}
	return text[:1] + c.Symbol() + text[1:]
}

func describe(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}

func titled(prefix, period, handle string) string {
	title := prefix + " - " + period
	if handle != "" {
		title = "@" + handle + " " + title
	}
	return title
}

func DailyMeta(view *domain.DailyView, profile domain.Profile, image string) Meta {
	var streak, roi string
	if view.Streak > 1 {
		streak = fmt.Sprintf("%d-day win streak", view.Streak)
	}
	if view.ROIText != "" {
		roi = "ROI " + view.ROIText
	}
	return Meta{
		Title: titled("Daily P&L", view.DateLabel, profile.Handle),
		Description: describe(
			"Net "+withSymbol(view.NetPnlText, profile.Currency),
			roi,
			view.TradesText,
			streak,
		),
		Image: image,
	}
}

func WeeklyMeta(view *domain.WeeklyView, profile domain.Profile, image string) Meta {
	var roi, best string
	if view.ROIText != "" {
		roi = "ROI " + view.ROIText
	}
	if view.BestDay != nil {
		best = "Best " + view.BestDay.Date.Format("Jan 2") + " " + withSymbol(view.BestDay.Text, profile.Currency)
	}
	return Meta{
		Title: titled("Weekly P&L", view.RangeLabel, profile.Handle),
		Description: describe(
			"Total "+withSymbol(view.TotalPnlText, profile.Currency),
			view.WLText+" ("+view.WinRateText+")",
			roi,
			best,
		),
		Image: image,
	}
}

func MonthlyMeta(view *domain.MonthlyView, profile domain.Profile, image string) Meta {
	var roi, best, worst string
	if view.ROIText != "" {
		roi = "ROI " + view.ROIText
	}
	if view.BestDay != nil {
		best = "Best " + view.BestDay.Date.Format("Jan 2") + " " + withSymbol(view.BestDay.Text, profile.Currency)
	}
	if view.WorstDay != nil {
		worst = "Worst " + view.WorstDay.Date.Format("Jan 2") + " " + withSymbol(view.WorstDay.Text, profile.Currency)
	}
	return Meta{
		Title: titled("Monthly P&L", view.MonthLabel, profile.Handle),
		Description: describe(
			"Total "+withSymbol(view.TotalPnlText, profile.Currency),
			view.WLText+" ("+view.WinRateText+")",
			roi,
			best,
			worst,
		),
		Image: image,
	}
}
