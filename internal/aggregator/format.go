package aggregator

import (
	"fmt"
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	indianEnglish = language.MustParse("en-IN")
	usEnglish     = language.AmericanEnglish
)

// printerFor picks the digit grouping of the currency: lakh/crore grouping
// for INR, thousands for USD.
func printerFor(c domain.Currency) *message.Printer {
	if c == domain.CurrencyUSD {
		return message.NewPrinter(usEnglish)
	}
	return message.NewPrinter(indianEnglish)
}

func signOf(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-"
	}
	return "+"
}

// FormatMoney renders an amount with an explicit sign, locale grouping and
// at most two fraction digits. The currency symbol is left to the caller.
func FormatMoney(d decimal.Decimal, c domain.Currency) string {
	r := d.Round(2)
	// Passed as a string so large amounts keep their cents.
	return signOf(r) + printerFor(c).Sprint(number.Decimal(r.Abs().String(), number.MaxFractionDigits(2)))
}

// FormatROI renders a percentage with an explicit sign and two decimals.
// A nil ROI renders as the empty string.
func FormatROI(r *decimal.Decimal) string {
	if r == nil {
		return ""
	}
	v := r.Round(2)
	return signOf(v) + v.Abs().StringFixed(2) + "%"
}

func formatTrades(n int) string {
	if n == 1 {
		return "1 trade"
	}
	return fmt.Sprintf("%d trades", n)
}

func formatWinRate(rate int) string {
	return fmt.Sprintf("%d%%", rate)
}

func formatWL(wins, losses int) string {
	return fmt.Sprintf("%dW / %dL", wins, losses)
}

func dateLabel(d time.Time) string {
	return d.Format("Jan 2, 2006")
}

func rangeLabel(start, end time.Time) string {
	if start.Year() != end.Year() {
		return start.Format("Jan 2, 2006") + " - " + end.Format("Jan 2, 2006")
	}
	return start.Format("Jan 2") + " - " + end.Format("Jan 2, 2006")
}

func monthLabel(d time.Time) string {
	return d.Format("January 2006")
}
