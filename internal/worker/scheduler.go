package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

const jobTimeout = time.Minute

type Completer interface {
	CompleteDepartedBookings(ctx context.Context, now time.Time) ([]domain.Booking, error)
}

// Scheduler runs the periodic completion sweep.
type Scheduler struct {
	cron      *cron.Cron
	completer Completer
	now       func() time.Time
	log       *zap.Logger
}

func NewScheduler(completer Completer, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		completer: completer,
		now:       time.Now,
		log:       log,
	}
}

// Start schedules the sweep with a standard cron spec or descriptor such as "@every 5m".
// Jobs run with ctx as parent.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.CompleteDeparted(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule completion sweep %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Info("completion sweep scheduled", zap.String("schedule", spec))
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) CompleteDeparted(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := s.now()
	completed, err := s.completer.CompleteDepartedBookings(ctx, start)
	if err != nil {
		s.log.Error("completion sweep failed", zap.Error(err))
		return
	}
	s.log.Debug("completion sweep finished",
		zap.Int("completed", len(completed)),
		zap.Duration("took", s.now().Sub(start)))
}
