package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CardKind string

const (
	CardDaily   CardKind = "daily"
	CardWeekly  CardKind = "weekly"
	CardMonthly CardKind = "monthly"
)

// DayResult points at one day inside a period, e.g. the best or worst day.
type DayResult struct {
	Date time.Time       `json:"date"`
	Pnl  decimal.Decimal `json:"pnl"`
	Text string          `json:"text"`
}

type DailyView struct {
	Date      time.Time        `json:"date"`
	DateLabel string           `json:"date_label"`
	GrossPnl  decimal.Decimal  `json:"gross_pnl"`
	Charges   *decimal.Decimal `json:"charges,omitempty"`
	NetPnl    decimal.Decimal  `json:"net_pnl"`
	ROI       *decimal.Decimal `json:"roi,omitempty"`
	NumTrades int              `json:"num_trades"`
	Streak    int              `json:"streak"`
	IsWin     bool             `json:"is_win"`

	GrossPnlText string `json:"gross_pnl_text"`
	ChargesText  string `json:"charges_text,omitempty"`
	NetPnlText   string `json:"net_pnl_text"`
	ROIText      string `json:"roi_text,omitempty"`
	TradesText   string `json:"trades_text"`
}

// WeekdaySlot is one Monday..Friday cell of the weekly breakdown. Logged is
// false for days without an entry; Pnl is then zero and carries no meaning.
type WeekdaySlot struct {
	Weekday time.Weekday    `json:"weekday"`
	Date    time.Time       `json:"date"`
	Logged  bool            `json:"logged"`
	Pnl     decimal.Decimal `json:"pnl"`
	IsWin   bool            `json:"is_win"`
}

type WeeklyView struct {
	WeekStart   time.Time        `json:"week_start"`
	WeekEnd     time.Time        `json:"week_end"`
	RangeLabel  string           `json:"range_label"`
	TotalPnl    decimal.Decimal  `json:"total_pnl"`
	TotalTrades int              `json:"total_trades"`
	Wins        int              `json:"wins"`
	Losses      int              `json:"losses"`
	WinRate     int              `json:"win_rate"`
	ROI         *decimal.Decimal `json:"roi,omitempty"`
	Days        [5]WeekdaySlot   `json:"days"`
	BestDay     *DayResult       `json:"best_day,omitempty"`
	EntryCount  int              `json:"entry_count"`

	TotalPnlText string `json:"total_pnl_text"`
	ROIText      string `json:"roi_text,omitempty"`
	WinRateText  string `json:"win_rate_text"`
	WLText       string `json:"wl_text"`
	TradesText   string `json:"trades_text"`
}

// CalendarCell is a real day of the month grid. Padding cells are nil.
type CalendarCell struct {
	Day  int              `json:"day"`
	Date time.Time        `json:"date"`
	Pnl  *decimal.Decimal `json:"pnl,omitempty"`
}

type MonthlyView struct {
	Month       time.Time        `json:"month"`
	MonthLabel  string           `json:"month_label"`
	TotalPnl    decimal.Decimal  `json:"total_pnl"`
	TotalTrades int              `json:"total_trades"`
	Wins        int              `json:"wins"`
	Losses      int              `json:"losses"`
	WinRate     int              `json:"win_rate"`
	ROI         *decimal.Decimal `json:"roi,omitempty"`
	BestDay     *DayResult       `json:"best_day,omitempty"`
	WorstDay    *DayResult       `json:"worst_day,omitempty"`
	Grid        []*CalendarCell  `json:"grid"`
	MaxAbsPnl   decimal.Decimal  `json:"max_abs_pnl"`
	EntryCount  int              `json:"entry_count"`

	TotalPnlText string `json:"total_pnl_text"`
	ROIText      string `json:"roi_text,omitempty"`
	WinRateText  string `json:"win_rate_text"`
	WLText       string `json:"wl_text"`
	TradesText   string `json:"trades_text"`
}
