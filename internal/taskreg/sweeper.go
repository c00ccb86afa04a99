package taskreg

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"cadmcp/pkg/logg"
)

// Sweeper evicts old finished records on a cron schedule.
type Sweeper struct {
	reg      *Registry
	cron     *cron.Cron
	schedule string
	logger   *zap.Logger
}

func NewSweeper(reg *Registry, schedule string, logger *zap.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		reg:      reg,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger.With(zap.String(logg.Layer, "TaskSweeper")),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) sweep() {
	removed := s.reg.Sweep(s.reg.Now())
	s.logger.Debug("Sweep finished", zap.Int("removed", removed))
}

func (s *Sweeper) Start() {
	s.logger.Info("Starting task sweeper", zap.String("schedule", s.schedule))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
