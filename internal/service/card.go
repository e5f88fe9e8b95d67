package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/aggregator"
	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/internal/storage/cache"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
	"github.com/jeovahfialho/pnl-recap/pkg/metrics"
	"github.com/jeovahfialho/pnl-recap/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type EntryReader interface {
	ListEntries(ctx context.Context, userID string) ([]domain.TradeEntry, error)
}

type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
}

// ViewCache stores built views as JSON. *cache.RedisCache implements it.
type ViewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl ...time.Duration) error
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

type CardService struct {
	entries  EntryReader
	profiles ProfileReader
	cache    ViewCache
	defaults domain.Profile
}

// NewCardService wires the stores. viewCache may be nil, in which case
// every call rebuilds the view. defaults supplies currency and timezone for
// users that never saved a profile.
func NewCardService(entries EntryReader, profiles ProfileReader, viewCache ViewCache, defaults domain.Profile) *CardService {
	return &CardService{
		entries:  entries,
		profiles: profiles,
		cache:    viewCache,
		defaults: defaults,
	}
}

// Daily returns the recap of the day logged on date. It returns
// domain.ErrEntryNotFound when nothing was logged that day.
func (s *CardService) Daily(ctx context.Context, userID string, date time.Time) (*domain.DailyView, error) {
	ctx, span := tracing.StartSpan(ctx, "CardService.Daily",
		attribute.String("user_id", userID),
		attribute.String("date", domain.DateKey(date)))
	defer span.End()

	day := domain.CalendarDay(date)
	key := cache.CardKey(userID, string(domain.CardDaily), domain.DateKey(day))

	var cached domain.DailyView
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CardBuildDuration.WithLabelValues(string(domain.CardDaily)))

	profile, entries, err := s.load(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	idx := aggregator.NewEntryIndex(entries)
	entry, ok := idx.Get(day)
	if !ok {
		metrics.RecordCardBuilt(string(domain.CardDaily), true)
		return nil, domain.ErrEntryNotFound
	}

	view := aggregator.BuildDailyView(entry, entries, profile)
	metrics.RecordCardBuilt(string(domain.CardDaily), false)

	s.toCache(ctx, key, view)
	return &view, nil
}

// Weekly returns the Monday..Sunday recap of the week containing date, or
// nil when that week has no entries.
func (s *CardService) Weekly(ctx context.Context, userID string, date time.Time) (*domain.WeeklyView, error) {
	ctx, span := tracing.StartSpan(ctx, "CardService.Weekly",
		attribute.String("user_id", userID),
		attribute.String("date", domain.DateKey(date)))
	defer span.End()

	profile, err := s.Profile(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("erro ao buscar perfil: %w", err)
	}

	ref := referenceInstant(date, profile)
	start, _ := aggregator.WeekBounds(ref, profile.Location())
	key := cache.CardKey(userID, string(domain.CardWeekly), domain.DateKey(start))

	var cached domain.WeeklyView
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CardBuildDuration.WithLabelValues(string(domain.CardWeekly)))

	entries, err := s.entries.ListEntries(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("erro ao buscar lançamentos: %w", err)
	}

	view := aggregator.BuildWeeklyView(entries, ref, profile)
	metrics.RecordCardBuilt(string(domain.CardWeekly), view == nil)
	if view == nil {
		return nil, nil
	}

	s.toCache(ctx, key, view)
	return view, nil
}

// Monthly returns the recap of the calendar month containing date, or nil
// when that month has no entries.
func (s *CardService) Monthly(ctx context.Context, userID string, date time.Time) (*domain.MonthlyView, error) {
	ctx, span := tracing.StartSpan(ctx, "CardService.Monthly",
		attribute.String("user_id", userID),
		attribute.String("date", domain.DateKey(date)))
	defer span.End()

	profile, err := s.Profile(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("erro ao buscar perfil: %w", err)
	}

	ref := referenceInstant(date, profile)
	start, _ := aggregator.MonthBounds(ref, profile.Location())
	key := cache.CardKey(userID, string(domain.CardMonthly), start.Format("2006-01"))

	var cached domain.MonthlyView
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CardBuildDuration.WithLabelValues(string(domain.CardMonthly)))

	entries, err := s.entries.ListEntries(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("erro ao buscar lançamentos: %w", err)
	}

	view := aggregator.BuildMonthlyView(entries, ref, profile)
	metrics.RecordCardBuilt(string(domain.CardMonthly), view == nil)
	if view == nil {
		return nil, nil
	}

	s.toCache(ctx, key, view)
	return view, nil
}

// Profile returns the stored profile of userID, or the service defaults
// when none was saved.
func (s *CardService) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		p = s.defaults
		p.UserID = userID
		return p, nil
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

// Warm builds and caches the previous full week and the previous month as
// seen from now in the profile's timezone. It returns how many views were
// stored.
func (s *CardService) Warm(ctx context.Context, profile domain.Profile, now time.Time) (int, error) {
	if s.cache == nil {
		return 0, nil
	}

	entries, err := s.entries.ListEntries(ctx, profile.UserID)
	if err != nil {
		return 0, fmt.Errorf("erro ao buscar lançamentos: %w", err)
	}

	loc := profile.Location()
	stored := 0

	thisWeek, _ := aggregator.WeekBounds(now, loc)
	weekStart := thisWeek.AddDate(0, 0, -7)
	if view := aggregator.BuildWeeklyView(entries, referenceInstant(weekStart, profile), profile); view != nil {
		key := cache.CardKey(profile.UserID, string(domain.CardWeekly), domain.DateKey(weekStart))
		if err := s.cache.Set(ctx, key, view); err != nil {
			return stored, err
		}
		stored++
	}

	thisMonth, _ := aggregator.MonthBounds(now, loc)
	monthStart := thisMonth.AddDate(0, -1, 0)
	if view := aggregator.BuildMonthlyView(entries, referenceInstant(monthStart, profile), profile); view != nil {
		key := cache.CardKey(profile.UserID, string(domain.CardMonthly), monthStart.Format("2006-01"))
		if err := s.cache.Set(ctx, key, view); err != nil {
			return stored, err
		}
		stored++
	}

	return stored, nil
}

// InvalidateUser drops every cached view of userID.
func (s *CardService) InvalidateUser(ctx context.Context, userID string) (int, error) {
	if s.cache == nil {
		return 0, nil
	}

	removed, err := s.cache.DeletePattern(ctx, cache.UserPattern(userID))
	if err != nil {
		return 0, fmt.Errorf("erro ao invalidar cache: %w", err)
	}

	logger.Debug("cache invalidado",
		zap.String("user_id", userID),
		zap.Int("keys", removed))

	return removed, nil
}

func (s *CardService) load(ctx context.Context, userID string) (domain.Profile, []domain.TradeEntry, error) {
	var (
		profile domain.Profile
		entries []domain.TradeEntry
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.Profile(gctx, userID)
		if err != nil {
			return fmt.Errorf("erro ao buscar perfil: %w", err)
		}
		profile = p
		return nil
	})

	g.Go(func() error {
		e, err := s.entries.ListEntries(gctx, userID)
		if err != nil {
			return fmt.Errorf("erro ao buscar lançamentos: %w", err)
		}
		entries = e
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.Profile{}, nil, err
	}

	return profile, entries, nil
}

func (s *CardService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}

	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		metrics.RecordCacheHit()
		return true
	}

	metrics.RecordCacheMiss()
	if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("erro ao ler cache", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *CardService) toCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, key, value); err != nil {
		logger.Warn("erro ao salvar no cache", zap.String("key", key), zap.Error(err))
	}
}

// referenceInstant turns a calendar day into noon of that day in the
// profile's timezone, so projecting it back into that zone yields the same
// day.
func referenceInstant(day time.Time, profile domain.Profile) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, profile.Location())
}
