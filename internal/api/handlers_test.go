package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jeovahfialho/pnl-recap/internal/config"
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/internal/render"
	"github.com/jeovahfialho/pnl-recap/internal/service"
	"github.com/shopspring/decimal"
)

type stubEntries struct {
	entries []domain.TradeEntry
}

func (s stubEntries) ListEntries(ctx context.Context, userID string) ([]domain.TradeEntry, error) {
	if userID != "u1" {
		return nil, nil
	}
	return s.entries, nil
}

type stubProfiles struct{}

func (stubProfiles) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if userID != "u1" {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	capital := decimal.NewFromInt(100000)
	return domain.Profile{
		UserID:         "u1",
		Currency:       domain.CurrencyUSD,
		Timezone:       "Asia/Kolkata",
		TradingCapital: &capital,
		Handle:         "trader",
		Theme:          "dark",
	}, nil
}

type stubImporter struct {
	err error
}

func (s stubImporter) ImportFile(ctx context.Context, userID, filePath string) (*service.ImportResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.ImportResult{JobID: "job-1", UserID: userID, FilePath: filePath, RecordsCount: 7}, nil
}

type stubCheck struct {
	err error
}

func (s stubCheck) HealthCheck(ctx context.Context) error {
	return s.err
}

func testEntry(date, gross string) domain.TradeEntry {
	d, err := domain.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return domain.TradeEntry{
		ID:        "e-" + date,
		UserID:    "u1",
		Date:      d,
		GrossPnl:  decimal.RequireFromString(gross),
		NumTrades: 2,
	}
}

func newTestApp(t *testing.T, importer Importer, checks map[string]HealthChecker) (*fiber.App, *Handler) {
	t.Helper()

	entries := stubEntries{entries: []domain.TradeEntry{
		testEntry("2026-01-13", "-1500"),
		testEntry("2026-01-14", "3010"),
		testEntry("2026-01-15", "2250"),
		testEntry("2026-01-16", "2700"),
		testEntry("2026-01-17", "-1100"),
	}}
	defaults := domain.Profile{Currency: domain.CurrencyINR, Timezone: "Asia/Kolkata", Theme: "dark"}
	cards := service.NewCardService(entries, stubProfiles{}, nil, defaults)

	handler := NewHandler(cards, importer, render.NewClient("http://renderer/og", time.Second),
		checks, nil, "https://cards.example.com/")
	handler.now = func() time.Time {
		return time.Date(2026, 1, 16, 20, 0, 0, 0, time.UTC)
	}

	cfg := &config.Config{APIRateLimit: 1000, AdminToken: "secret"}

	app := fiber.New()
	SetupRoutes(app, handler, cfg)
	return app, handler
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestGetWeeklyCard(t *testing.T) {
	app, _ := newTestApp(t, stubImporter{}, nil)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/cards/weekly/2026-01-15", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	var card struct {
		Kind     string            `json:"kind"`
		Params   map[string]string `json:"params"`
		ImageURL string            `json:"image_url"`
		View     struct {
			WinRate int `json:"win_rate"`
		} `json:"view"`
	}
	if err := json.Unmarshal(body, &card); err != nil {
		t.Fatal(err)
	}
	if card.Kind != "weekly" || card.View.WinRate != 60 {
		t.Errorf("card = %+v", card)
	}
	if card.Params["totalPnl"] != "+5,360" || card.Params["best"] != "Jan 14 +3,010" {
		t.Errorf("params = %v", card.Params)
	}
	if !strings.HasPrefix(card.ImageURL, "http://renderer/og/weekly?") {
		t.Errorf("ImageURL = %q", card.ImageURL)
	}
}

func TestEmptyPeriodIsNotFound(t *testing.T) {
	app, _ := newTestApp(t, stubImporter{}, nil)

	for _, path := range []string{
		"/api/v1/users/u1/cards/weekly/2026-02-04",
		"/api/v1/users/u1/cards/monthly/2026-03-01",
		"/api/v1/users/u1/cards/daily/2026-01-12",
		"/api/v1/users/u2/cards/monthly/2026-01-12",
	} {
		resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status = %d", path, resp.StatusCode)
			continue
		}
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			t.Fatal(err)
		}
		if errResp.Code != http.StatusNotFound || errResp.RequestID == "" {
			t.Errorf("%s: error = %+v", path, errResp)
		}
	}
}

func TestInvalidDate(t *testing.T) {
	app, _ := newTestApp(t, stubImporter{}, nil)

	resp, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/cards/daily/16-01-2026", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDailyTodayUsesProfileTimezone(t *testing.T) {
	app, _ := newTestApp(t, stubImporter{}, nil)

	// 20:00 UTC on Jan 16 is already Jan 17 in Asia/Kolkata.
	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/cards/daily/today", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	var card struct {
		Params map[string]string `json:"params"`
	}
	if err := json.Unmarshal(body, &card); err != nil {
		t.Fatal(err)
	}
	if card.Params["date"] != "Jan 17, 2026" || card.Params["netPnl"] != "-1,100" {
		t.Errorf("params = %v", card.Params)
	}
}

func TestMonthlyMeta(t *testing.T) {
	app, _ := newTestApp(t, stubImporter{}, nil)

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/cards/monthly/2026-01-01/meta", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	var meta render.Meta
	if err := json.Unmarshal(body, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Title != "@trader Monthly P&L - January 2026" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.URL != "https://cards.example.com/api/v1/users/u1/cards/monthly/2026-01-01" {
		t.Errorf("URL = %q", meta.URL)
	}
	if !strings.HasPrefix(meta.Image, "http://renderer/og/monthly?") {
		t.Errorf("Image = %q", meta.Image)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	app, _ := newTestApp(t, stubImporter{}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/cache/u1", nil)
	if resp, _ := doRequest(t, app, req); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/admin/cache/u1", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, body := doRequest(t, app, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	var inv InvalidateResponse
	if err := json.Unmarshal(body, &inv); err != nil {
		t.Fatal(err)
	}
	if inv.UserID != "u1" || inv.Status != "success" {
		t.Errorf("response = %+v", inv)
	}
}

func TestImportFile(t *testing.T) {
	app, _ := newTestApp(t, stubImporter{}, nil)

	post := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/import", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer secret")
		return req
	}

	if resp, _ := doRequest(t, app, post(`{"file_path":"/data/log.csv"}`)); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing user_id: status = %d, want 400", resp.StatusCode)
	}

	resp, body := doRequest(t, app, post(`{"user_id":"u1","file_path":"/data/log.csv"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.StatusCode, body)
	}
	var res ImportResponse
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Status != "completed" || res.RecordsCount != 7 || res.JobID != "job-1" {
		t.Errorf("response = %+v", res)
	}

	resp, _ = doRequest(t, app, post(`{"user_id":"u1","file_path":"/data/log.csv","async":true}`))
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("async: status = %d, want 202", resp.StatusCode)
	}
}

func TestImportFileFailure(t *testing.T) {
	app, _ := newTestApp(t, stubImporter{err: errors.New("boom")}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/import",
		bytes.NewBufferString(`{"user_id":"u1","file_path":"/data/log.csv"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret")

	if resp, _ := doRequest(t, app, req); resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestReadinessCheck(t *testing.T) {
	app, _ := newTestApp(t, stubImporter{}, map[string]HealthChecker{
		"database": stubCheck{},
		"redis":    stubCheck{err: errors.New("connection refused")},
	})

	resp, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatal(err)
	}
	if health.Services["database"].Status != "healthy" || health.Services["redis"].Status != "unhealthy" {
		t.Errorf("services = %+v", health.Services)
	}

	resp, _ = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}
}
