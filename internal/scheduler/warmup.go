package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jeovahfialho/pnl-recap/internal/domain"
	"github.com/jeovahfialho/pnl-recap/pkg/logger"
	"github.com/jeovahfialho/pnl-recap/pkg/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UserLister returns every user with at least one logged entry.
// *postgres.EntryStore implements it.
type UserLister interface {
	ListActiveUsers(ctx context.Context) ([]string, error)
}

// Warmer resolves a user's profile, falling back to defaults when none was
// saved, and builds and caches the recent periods of that user.
// *service.CardService implements it.
type Warmer interface {
	Profile(ctx context.Context, userID string) (domain.Profile, error)
	Warm(ctx context.Context, profile domain.Profile, now time.Time) (int, error)
}

// Scheduler refreshes last week's and last month's cards on a cron spec so
// links shared on Monday morning load from cache.
type Scheduler struct {
	cron     *cron.Cron
	users    UserLister
	warmer   Warmer
	workers  int
	now      func() time.Time
	ctx      context.Context
	log      *zap.Logger
}

func New(ctx context.Context, users UserLister, warmer Warmer, workers int) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		users:    users,
		warmer:   warmer,
		workers:  workers,
		now:      time.Now,
		ctx:      ctx,
		log:      logger.Component("scheduler"),
	}
}

// Register adds the warm-up job. spec uses the six-field format with
// seconds, e.g. "0 30 0 * * 1".
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.warmupTask); err != nil {
		return fmt.Errorf("erro ao registrar warm-up: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler iniciado", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler parado")
}

func (s *Scheduler) warmupTask() {
	if _, err := s.RunNow(s.ctx); err != nil {
		s.log.Error("erro no warm-up", zap.Error(err))
	}
}

// RunNow warms every active user, with or without a saved profile, and
// returns how many views were cached. A failure for one user is logged and
// does not stop the others.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	start := s.now()

	users, err := s.users.ListActiveUsers(ctx)
	if err != nil {
		metrics.WarmupRuns.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("erro ao listar usuários: %w", err)
	}

	var stored, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			n, err := s.warmUser(gctx, userID, start)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				s.log.Warn("erro ao aquecer cache",
					zap.String("user_id", userID),
					zap.Error(err))
				return nil
			}
			atomic.AddInt64(&stored, int64(n))
			return nil
		})
	}
	_ = g.Wait()

	status := "success"
	if failed > 0 {
		status = "partial"
	}
	metrics.WarmupRuns.WithLabelValues(status).Inc()

	s.log.Info("warm-up concluído",
		zap.Int("users", len(users)),
		zap.Int64("views", stored),
		zap.Int64("failed", failed),
		zap.Duration("duration", time.Since(start)))

	return int(stored), nil
}

func (s *Scheduler) warmUser(ctx context.Context, userID string, now time.Time) (int, error) {
	profile, err := s.warmer.Profile(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("erro ao buscar perfil: %w", err)
	}
	return s.warmer.Warm(ctx, profile, now)
}
