package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	colDate     = "date"
	colGrossPnl = "gross_pnl"
	colCharges  = "charges"
	colTrades   = "num_trades"
	colCapital  = "capital_deployed"
)

var requiredColumns = []string{colDate, colGrossPnl, colTrades}

// Accepted date layouts, tried in order.
var dateLayouts = []string{domain.DateLayout, "02/01/2006"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// entryRecord is one CSV row after type conversion, before it becomes a
// domain.TradeEntry.
type entryRecord struct {
	Date            time.Time        `validate:"required"`
	GrossPnl        decimal.Decimal  `validate:"-"`
	Charges         *decimal.Decimal `validate:"omitempty,gte=0"`
	NumTrades       int              `validate:"gte=1"`
	CapitalDeployed *decimal.Decimal `validate:"omitempty,gt=0"`
}

// LineError ties a rejected record to its line in the source file.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("linha %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

type Parser struct {
	batchSize int
	workers   int
}

func NewParser(batchSize, workers int) *Parser {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if workers <= 0 {
		workers = 1
	}
	return &Parser{
		batchSize: batchSize,
		workers:   workers,
	}
}

type ParseResult struct {
	Entries []domain.TradeEntry
	Errors  []error
	// Duplicates counts rows dropped because a later row logged the same day.
	Duplicates int
}

type parsedEntry struct {
	line  int
	entry domain.TradeEntry
}

type job struct {
	line   int
	record []string
	err    error
}

type batch struct {
	entries []parsedEntry
	errors  []error
}

// ParseFile reads a trade log for userID. Rows that fail to parse or
// validate are reported in ParseResult.Errors and skipped; an error is
// returned only when the file itself is unusable.
func (p *Parser) ParseFile(ctx context.Context, userID string, reader io.Reader) (*ParseResult, error) {
	br := bufio.NewReader(reader)

	csvReader := csv.NewReader(br)
	csvReader.Comma = detectDelimiter(br)
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("arquivo vazio")
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao ler cabeçalho: %w", err)
	}

	columns, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	decimalComma := csvReader.Comma == ';'

	jobs := make(chan job, p.workers*2)
	results := make(chan *batch, p.workers)

	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go p.worker(ctx, userID, columns, decimalComma, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)

		for {
			record, err := csvReader.Read()
			if err == io.EOF {
				return
			}

			j := job{record: record}
			if err != nil {
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					j.line = parseErr.StartLine
				}
				j.err = err
			} else {
				j.line, _ = csvReader.FieldPos(0)
			}

			select {
			case <-ctx.Done():
				return
			case jobs <- j:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var parsed []parsedEntry
	finalResult := &ParseResult{
		Errors: make([]error, 0),
	}

	for result := range results {
		parsed = append(parsed, result.entries...)
		finalResult.Errors = append(finalResult.Errors, result.errors...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	finalResult.Entries, finalResult.Duplicates = dedupe(parsed)

	sort.Slice(finalResult.Errors, func(i, j int) bool {
		return lineOf(finalResult.Errors[i]) < lineOf(finalResult.Errors[j])
	})

	return finalResult, nil
}

func (p *Parser) worker(ctx context.Context, userID string, columns map[string]int, decimalComma bool,
	jobs <-chan job, results chan<- *batch, wg *sync.WaitGroup) {

	defer wg.Done()

	current := &batch{
		entries: make([]parsedEntry, 0, p.batchSize),
	}

	for {
		select {
		case <-ctx.Done():
			if len(current.entries) > 0 || len(current.errors) > 0 {
				results <- current
			}
			return

		case j, ok := <-jobs:
			if !ok {
				if len(current.entries) > 0 || len(current.errors) > 0 {
					results <- current
				}
				return
			}

			if j.err != nil {
				current.errors = append(current.errors, &LineError{Line: j.line, Err: j.err})
				continue
			}

			entry, err := parseRecord(j.record, columns, decimalComma)
			if err != nil {
				current.errors = append(current.errors, &LineError{Line: j.line, Err: err})
				continue
			}
			entry.UserID = userID

			current.entries = append(current.entries, parsedEntry{line: j.line, entry: entry})

			if len(current.entries) >= p.batchSize {
				results <- current
				current = &batch{
					entries: make([]parsedEntry, 0, p.batchSize),
				}
			}
		}
	}
}

func parseRecord(record []string, columns map[string]int, decimalComma bool) (domain.TradeEntry, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var rec entryRecord
	var err error

	if rec.Date, err = parseDate(field(colDate)); err != nil {
		return domain.TradeEntry{}, err
	}

	raw := field(colGrossPnl)
	if raw == "" {
		return domain.TradeEntry{}, fmt.Errorf("%w: gross_pnl ausente", domain.ErrInvalidEntry)
	}
	if rec.GrossPnl, err = parseDecimal(raw, decimalComma); err != nil {
		return domain.TradeEntry{}, fmt.Errorf("gross_pnl inválido: %w", err)
	}

	if rec.Charges, err = parseOptionalDecimal(field(colCharges), decimalComma); err != nil {
		return domain.TradeEntry{}, fmt.Errorf("charges inválido: %w", err)
	}

	if rec.NumTrades, err = strconv.Atoi(field(colTrades)); err != nil {
		return domain.TradeEntry{}, fmt.Errorf("num_trades inválido: %w", err)
	}

	if rec.CapitalDeployed, err = parseOptionalDecimal(field(colCapital), decimalComma); err != nil {
		return domain.TradeEntry{}, fmt.Errorf("capital_deployed inválido: %w", err)
	}

	if err := validate.Struct(rec); err != nil {
		return domain.TradeEntry{}, fmt.Errorf("%w: %s", domain.ErrInvalidEntry, describeValidation(err))
	}

	return domain.TradeEntry{
		Date:            rec.Date,
		GrossPnl:        rec.GrossPnl,
		Charges:         rec.Charges,
		NumTrades:       rec.NumTrades,
		CapitalDeployed: rec.CapitalDeployed,
	}, nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s deve ser %s %s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s é %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("data inválida: %q", s)
}

// dotThousands matches amounts grouped only with dots, such as "1.234" or
// "-12.500.000".
var dotThousands = regexp.MustCompile(`^[+-]?[1-9][0-9]{0,2}(\.[0-9]{3})+$`)

// parseDecimal accepts "1234.56" and, for semicolon files, "1.234,56".
// In semicolon files a value without a comma whose dots group digits in
// threes ("1.234") is read as thousands; "2.5" or "0.125" stay fractions.
func parseDecimal(s string, decimalComma bool) (decimal.Decimal, error) {
	if decimalComma {
		switch {
		case strings.Contains(s, ","):
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		case dotThousands.MatchString(s):
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return decimal.NewFromString(s)
}

func parseOptionalDecimal(s string, decimalComma bool) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := parseDecimal(s, decimalComma)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func indexColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("coluna obrigatória ausente: %s", name)
		}
	}
	return columns, nil
}

// detectDelimiter picks ';' when the header line contains one, ',' otherwise.
func detectDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.IndexByte(head, ';') >= 0 {
		return ';'
	}
	return ','
}

// dedupe keeps the last row logged for each day and returns the entries
// ordered by date.
func dedupe(parsed []parsedEntry) ([]domain.TradeEntry, int) {
	sort.Slice(parsed, func(i, j int) bool {
		return parsed[i].line < parsed[j].line
	})

	byDay := make(map[string]int, len(parsed))
	entries := make([]domain.TradeEntry, 0, len(parsed))
	duplicates := 0

	for _, p := range parsed {
		key := p.entry.DateKey()
		if idx, ok := byDay[key]; ok {
			entries[idx] = p.entry
			duplicates++
			continue
		}
		byDay[key] = len(entries)
		entries = append(entries, p.entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	return entries, duplicates
}

func lineOf(err error) int {
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		return lineErr.Line
	}
	return 0
}
