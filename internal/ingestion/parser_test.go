package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/shopspring/decimal"
)

func TestParseFileSemicolonWithDecimalComma(t *testing.T) {
	csvData := "date;gross_pnl;charges;num_trades;capital_deployed\n" +
		"2026-01-14;3.200,50;190,25;4;150000\n" +
		"2026-01-13;-1400;;2;\n"

	res, err := NewParser(100, 2).ParseFile(context.Background(), "u1", strings.NewReader(csvData))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(res.Entries))
	}

	first, second := res.Entries[0], res.Entries[1]
	if first.DateKey() != "2026-01-13" || second.DateKey() != "2026-01-14" {
		t.Errorf("entries not ordered by date: %s, %s", first.DateKey(), second.DateKey())
	}
	if first.Charges != nil || first.CapitalDeployed != nil {
		t.Errorf("empty columns must be absent, got %v / %v", first.Charges, first.CapitalDeployed)
	}
	if !second.GrossPnl.Equal(decimal.RequireFromString("3200.50")) {
		t.Errorf("GrossPnl = %s, want 3200.50", second.GrossPnl)
	}
	if second.Charges == nil || !second.Charges.Equal(decimal.RequireFromString("190.25")) {
		t.Errorf("Charges = %v, want 190.25", second.Charges)
	}
	if second.UserID != "u1" || second.NumTrades != 4 {
		t.Errorf("entry = %+v", second)
	}
}

func TestParseDecimalThousandsWithoutComma(t *testing.T) {
	tests := []struct {
		in           string
		decimalComma bool
		want         string
	}{
		{"1.234", true, "1234"},
		{"-12.500.000", true, "-12500000"},
		{"1.234,5", true, "1234.5"},
		{"2.5", true, "2.5"},
		{"0.125", true, "0.125"},
		{"1234.56", true, "1234.56"},
		{"1.234", false, "1.234"},
	}

	for _, tt := range tests {
		got, err := parseDecimal(tt.in, tt.decimalComma)
		if err != nil {
			t.Errorf("parseDecimal(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("parseDecimal(%q, %v) = %s, want %s", tt.in, tt.decimalComma, got, tt.want)
		}
	}
}

func TestParseFileCommaDelimited(t *testing.T) {
	csvData := "Date,Gross_PnL,Num_Trades\n" +
		"15/01/2026,2250.75,3\n"

	res, err := NewParser(10, 1).ParseFile(context.Background(), "u1", strings.NewReader(csvData))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("got %d entries, errors %v", len(res.Entries), res.Errors)
	}
	e := res.Entries[0]
	if e.DateKey() != "2026-01-15" || !e.GrossPnl.Equal(decimal.RequireFromString("2250.75")) {
		t.Errorf("entry = %+v", e)
	}
}

func TestParseFileRejectsInvalidRows(t *testing.T) {
	csvData := "date;gross_pnl;charges;num_trades;capital_deployed\n" +
		"2026-01-12;100;0;1;\n" +
		"2026-01-13;100;-5;1;\n" +
		"2026-01-14;100;;0;\n" +
		"2026-01-15;100;;1;0\n" +
		"not-a-date;100;;1;\n" +
		"2026-01-16;;;1;\n" +
		"2026-01-17;abc;;1;\n"

	res, err := NewParser(10, 3).ParseFile(context.Background(), "u1", strings.NewReader(csvData))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Entries) != 1 || res.Entries[0].DateKey() != "2026-01-12" {
		t.Fatalf("entries = %+v, want only 2026-01-12", res.Entries)
	}
	if len(res.Errors) != 6 {
		t.Fatalf("got %d errors, want 6: %v", len(res.Errors), res.Errors)
	}

	wantLines := []int{3, 4, 5, 6, 7, 8}
	for i, err := range res.Errors {
		var lineErr *LineError
		if !errors.As(err, &lineErr) {
			t.Fatalf("error %v is not a LineError", err)
		}
		if lineErr.Line != wantLines[i] {
			t.Errorf("error %d on line %d, want %d", i, lineErr.Line, wantLines[i])
		}
	}
	for _, i := range []int{0, 1, 2} {
		if !errors.Is(res.Errors[i], domain.ErrInvalidEntry) {
			t.Errorf("error %v should wrap ErrInvalidEntry", res.Errors[i])
		}
	}
}

func TestParseFileLaterRowWins(t *testing.T) {
	csvData := "date;gross_pnl;num_trades\n" +
		"2026-01-14;100;1\n" +
		"2026-01-15;200;1\n" +
		"2026-01-14;300;2\n"

	res, err := NewParser(1, 4).ParseFile(context.Background(), "u1", strings.NewReader(csvData))
	if err != nil {
		t.Fatal(err)
	}
	if res.Duplicates != 1 || len(res.Entries) != 2 {
		t.Fatalf("duplicates = %d entries = %d", res.Duplicates, len(res.Entries))
	}
	if !res.Entries[0].GrossPnl.Equal(decimal.NewFromInt(300)) || res.Entries[0].NumTrades != 2 {
		t.Errorf("kept %+v, want the later row", res.Entries[0])
	}
}

func TestParseFileMissingColumn(t *testing.T) {
	_, err := NewParser(10, 1).ParseFile(context.Background(), "u1", strings.NewReader("date;charges\n2026-01-14;1\n"))
	if err == nil || !strings.Contains(err.Error(), "gross_pnl") {
		t.Fatalf("err = %v, want missing gross_pnl", err)
	}

	if _, err := NewParser(10, 1).ParseFile(context.Background(), "u1", strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestSplitIntoChunks(t *testing.T) {
	entries := generateTestEntries(25)
	chunks := splitIntoChunks(entries, 10)
	if len(chunks) != 3 || len(chunks[2]) != 5 {
		t.Fatalf("chunks = %d, last = %d", len(chunks), len(chunks[len(chunks)-1]))
	}
	if splitIntoChunks(nil, 10) != nil {
		t.Error("expected no chunks for no entries")
	}
}

type recordingLoader struct {
	mu     sync.Mutex
	loaded []domain.TradeEntry
}

func (l *recordingLoader) LoadEntriesConcurrent(ctx context.Context, entries []domain.TradeEntry) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = append(l.loaded, entries...)
	return int64(len(entries)), nil
}

func TestWorkerPool(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, body := range []string{
		"date;gross_pnl;num_trades\n2026-01-13;100;1\n2026-01-14;-50;1\n",
		"date;gross_pnl;num_trades\n2026-02-02;75;2\nbad;1;1\n",
	} {
		path := filepath.Join(dir, fmt.Sprintf("log%d.csv", i))
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	paths = append(paths, filepath.Join(dir, "missing.csv"))

	loader := &recordingLoader{}
	pool := NewWorkerPool(2, NewParser(10, 1), loader)

	ctx := context.Background()
	pool.Start(ctx)

	results := make(chan JobResult, len(paths))
	for _, p := range paths {
		pool.Submit(Job{UserID: "u1", FilePath: p, Result: results})
	}

	byFile := make(map[string]JobResult)
	for range paths {
		r := <-results
		byFile[filepath.Base(r.FilePath)] = r
	}
	pool.Stop()

	if r := byFile["log0.csv"]; r.Error != nil || r.RecordsCount != 2 {
		t.Errorf("log0 = %+v", r)
	}
	if r := byFile["log1.csv"]; r.Error != nil || r.RecordsCount != 1 || len(r.Rejected) != 1 {
		t.Errorf("log1 = %+v", r)
	}
	if r := byFile["missing.csv"]; r.Error == nil {
		t.Error("expected error for missing file")
	}
	if len(loader.loaded) != 3 {
		t.Errorf("loaded %d entries, want 3", len(loader.loaded))
	}
}

func BenchmarkParser(b *testing.B) {

	csvData := generateTestCSV(100000)

	benchmarks := []struct {
		name      string
		batchSize int
		workers   int
	}{
		{"SingleWorker", 1000, 1},
		{"FourWorkers", 1000, 4},
		{"EightWorkers", 1000, 8},
		{"LargeBatch", 10000, 4},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			parser := NewParser(bm.batchSize, bm.workers)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				reader := bytes.NewReader([]byte(csvData))
				ctx := context.Background()

				_, err := parser.ParseFile(ctx, "bench", reader)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func generateTestCSV(lines int) string {
	var sb strings.Builder
	sb.WriteString("date;gross_pnl;charges;num_trades;capital_deployed\n")

	start := domain.DateOf(2000, time.January, 1)

	for i := 0; i < lines; i++ {
		date := start.AddDate(0, 0, i).Format(domain.DateLayout)
		pnl := fmt.Sprintf("%d,%02d", i%5000-2500, i%100)
		charges := fmt.Sprintf("%d", 20+i%50)

		sb.WriteString(fmt.Sprintf(
			"%s;%s;%s;%d;100000\n",
			date, pnl, charges, 1+i%10,
		))
	}

	return sb.String()
}

func generateTestEntries(n int) []domain.TradeEntry {
	start := domain.DateOf(2026, time.January, 1)
	entries := make([]domain.TradeEntry, n)
	for i := range entries {
		entries[i] = domain.TradeEntry{
			UserID:    "u1",
			Date:      start.AddDate(0, 0, i),
			GrossPnl:  decimal.NewFromInt(int64(i * 10)),
			NumTrades: 1,
		}
	}
	return entries
}
