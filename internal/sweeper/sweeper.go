// Package sweeper releases reservations that stayed active past their
// expiry. Without it an expired hold would lock stock forever, since no
// upstream event releases it.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"orderflow/internal/pkg/errs"

	"github.com/robfig/cron/v3"
)

// ReservationReaper is the slice of the Inventory participant the
// sweeper needs.
type ReservationReaper interface {
	ReleaseExpired(ctx context.Context) (int, error)
}

type Sweeper struct {
	reaper   ReservationReaper
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
}

func New(reaper ReservationReaper, schedule string, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		reaper:   reaper,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}
}

func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweep)
	if err != nil {
		return errs.Wrapf(err, "invalid sweep schedule %q", s.schedule)
	}
	s.cron.Start()
	s.logger.Info("reservation sweeper started", "schedule", s.schedule)
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	released, err := s.reaper.ReleaseExpired(ctx)
	if err != nil {
		s.logger.Error("reservation sweep failed", "error", err.Error())
		return
	}
	if released > 0 {
		s.logger.Info("released expired reservations", "count", released)
	}
}
