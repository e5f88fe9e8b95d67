package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/aggregator"
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/shopspring/decimal"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func entry(date, gross string, charges *decimal.Decimal) domain.TradeEntry {
	d, err := domain.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return domain.TradeEntry{
		ID:        "e-" + date,
		UserID:    "u1",
		Date:      d,
		GrossPnl:  decimal.RequireFromString(gross),
		Charges:   charges,
		NumTrades: 4,
	}
}

func januaryWeek() []domain.TradeEntry {
	return []domain.TradeEntry{
		entry("2026-01-13", "-1400", decPtr("100")),
		entry("2026-01-14", "3200", decPtr("190")),
		entry("2026-01-15", "2250", nil),
		entry("2026-01-16", "2800", decPtr("100")),
		entry("2026-01-17", "-1000", decPtr("100")),
	}
}

var profile = domain.Profile{
	UserID:         "u1",
	Currency:       domain.CurrencyUSD,
	Timezone:       "UTC",
	TradingCapital: decPtr("100000"),
	Handle:         "trader",
	Theme:          "light",
}

func TestDailyParams(t *testing.T) {
	entries := januaryWeek()
	view := aggregator.BuildDailyView(entries[3], entries, profile)

	p := DailyParams(&view, profile)
	want := Params{
		"date":     "Jan 16, 2026",
		"pnl":      "+2,800",
		"charges":  "+100",
		"netPnl":   "+2,700",
		"roi":      "+2.70%",
		"trades":   "4",
		"streak":   "3",
		"handle":   "trader",
		"theme":    "light",
		"currency": "$",
	}
	assertParams(t, p, want)
}

func TestDailyParamsOmitsAbsentFields(t *testing.T) {
	noCapital := profile
	noCapital.TradingCapital = nil
	noCapital.Handle = ""
	noCapital.Theme = ""

	entries := januaryWeek()
	view := aggregator.BuildDailyView(entries[0], entries, noCapital)

	p := DailyParams(&view, noCapital)
	for _, key := range []string{"roi", "streak", "handle"} {
		if _, ok := p[key]; ok {
			t.Errorf("unexpected %s = %q", key, p[key])
		}
	}
	if p["theme"] != "dark" {
		t.Errorf("theme = %q, want dark default", p["theme"])
	}
}

func TestWeeklyParams(t *testing.T) {
	view := aggregator.BuildWeeklyView(januaryWeek(), time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC), profile)
	if view == nil {
		t.Fatal("expected weekly view")
	}

	p := WeeklyParams(view, profile)
	want := Params{
		"range":       "Jan 12 - Jan 18, 2026",
		"pnl":         "+5,360",
		"totalPnl":    "+5,360",
		"roi":         "+5.36%",
		"winRate":     "60%",
		"wl":          "3W / 2L",
		"totalTrades": "20",
		"best":        "Jan 14 +3,010",
		"handle":      "trader",
		"theme":       "light",
		"currency":    "$",
	}
	assertParams(t, p, want)
}

func TestMonthlyParamsGrid(t *testing.T) {
	view := aggregator.BuildMonthlyView(januaryWeek(), time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC), profile)
	if view == nil {
		t.Fatal("expected monthly view")
	}

	p := MonthlyParams(view, profile)
	if p["month"] != "January 2026" || p["worst"] != "Jan 13 -1,500" || p["best"] != "Jan 14 +3,010" {
		t.Errorf("params = %v", p)
	}

	cells := strings.Split(p["calendarGrid"], ",")
	if len(cells)%7 != 0 {
		t.Fatalf("grid has %d cells", len(cells))
	}
	// January 2026 starts on a Thursday.
	if cells[0] != "" || cells[2] != "" || cells[3] != "1::" {
		t.Errorf("leading cells = %q", cells[:4])
	}
	if cells[3+12] != "13:-1500:0.62" {
		t.Errorf("Jan 13 cell = %q", cells[3+12])
	}
	if cells[3+13] != "14:3010:1.00" {
		t.Errorf("Jan 14 cell = %q", cells[3+13])
	}
	if cells[len(cells)-1] != "" {
		t.Errorf("last cell = %q, want padding", cells[len(cells)-1])
	}
}

func TestMeta(t *testing.T) {
	entries := januaryWeek()
	daily := aggregator.BuildDailyView(entries[3], entries, profile)

	m := DailyMeta(&daily, profile, "https://img/daily")
	if m.Title != "@trader Daily P&L - Jan 16, 2026" {
		t.Errorf("Title = %q", m.Title)
	}
	if m.Description != "Net +$2,700 | ROI +2.70% | 4 trades | 3-day win streak" {
		t.Errorf("Description = %q", m.Description)
	}
	if m.Image != "https://img/daily" {
		t.Errorf("Image = %q", m.Image)
	}

	inr := profile
	inr.Currency = domain.CurrencyINR
	inr.Handle = ""
	weekly := aggregator.BuildWeeklyView(entries, time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC), inr)
	wm := WeeklyMeta(weekly, inr, "")
	if wm.Title != "Weekly P&L - Jan 12 - Jan 18, 2026" {
		t.Errorf("Title = %q", wm.Title)
	}
	if !strings.HasPrefix(wm.Description, "Total +₹5,360 | 3W / 2L (60%)") {
		t.Errorf("Description = %q", wm.Description)
	}
}

func TestImageURLIsStable(t *testing.T) {
	c := NewClient("http://renderer/api/og/", time.Second)
	p := Params{"pnl": "+5,360", "theme": "dark", "currency": "Rs."}

	got := c.ImageURL(domain.CardWeekly, p)
	want := "http://renderer/api/og/weekly?currency=Rs.&pnl=%2B5%2C360&theme=dark"
	if got != want {
		t.Errorf("ImageURL = %q, want %q", got, want)
	}
	if again := c.ImageURL(domain.CardWeekly, p); again != got {
		t.Errorf("ImageURL not stable: %q vs %q", again, got)
	}
}

func TestDownload(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/daily" || r.URL.Query().Get("netPnl") != "+2,700" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL, time.Second)

	path, err := c.Download(context.Background(), domain.CardDaily, Params{"netPnl": "+2,700"}, dir, "u1-2026-01-16")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "u1-2026-01-16.png") {
		t.Errorf("path = %q", path)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != string(png) {
		t.Errorf("file = %q, %v", got, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	if _, err := c.Download(context.Background(), domain.CardDaily, Params{}, dir, "bad"); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func assertParams(t *testing.T, got, want Params) {
	t.Helper()
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
	for k := range got {
		if _, ok := want[k]; !ok {
			t.Errorf("unexpected key %s = %q", k, got[k])
		}
	}
}
