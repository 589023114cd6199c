package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/esusu-circle-engine/internal/config"
	"github.com/esusu-circle-engine/internal/engine/orchestrator"
	"github.com/robfig/cron/v3"
)

// EngineScheduler drives the three periodic sweeps on their cron specs.
// Each job gets its own bounded context so a stuck sweep cannot pile up
// behind the next tick.
type EngineScheduler struct {
	cronEngine *cron.Cron
	orch       *orchestrator.Orchestrator
	cfg        *config.EngineConfig
	logger     *slog.Logger
}

func NewEngineScheduler(
	logger *slog.Logger,
	cfg *config.EngineConfig,
	location *time.Location,
	orch *orchestrator.Orchestrator,
) *EngineScheduler {
	return &EngineScheduler{
		cronEngine: cron.New(cron.WithLocation(location)),
		orch:       orch,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start registers the sweep jobs and launches the cron engine. When
// RunOnStart is set, every sweep also runs once immediately, so a restarted
// engine catches up without waiting for the next tick.
func (s *EngineScheduler) Start() error {
	jobs := []struct {
		name    string
		spec    string
		timeout time.Duration
		run     func(context.Context) error
	}{
		{"activation", s.cfg.ActivationCronSpec, 2 * time.Minute, s.orch.RunActivationSweep},
		{"payout", s.cfg.PayoutCronSpec, 10 * time.Minute, s.orch.RunPayoutSweep},
		{"overdue", s.cfg.OverdueCronSpec, 10 * time.Minute, s.orch.RunOverdueSweep},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cronEngine.AddFunc(job.spec, func() {
			s.runSweep(job.name, job.timeout, job.run)
		})
		if err != nil {
			return fmt.Errorf("failed to register %s sweep with spec %q: %w", job.name, job.spec, err)
		}
	}

	s.cronEngine.Start()
	s.logger.Info("engine scheduler started",
		"activation_spec", s.cfg.ActivationCronSpec,
		"payout_spec", s.cfg.PayoutCronSpec,
		"overdue_spec", s.cfg.OverdueCronSpec)

	if s.cfg.RunOnStart {
		s.logger.Info("running all sweeps once at startup")
		for _, job := range jobs {
			s.runSweep(job.name, job.timeout, job.run)
		}
	}
	return nil
}

func (s *EngineScheduler) runSweep(name string, timeout time.Duration, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()
	if err := run(ctx); err != nil {
		s.logger.Error("sweep failed", "sweep", name, "error", err)
		return
	}
	s.logger.Info("sweep finished", "sweep", name, "duration", time.Since(started).String())
}

// Stop halts the cron engine and waits for any running sweep to finish
func (s *EngineScheduler) Stop() {
	s.logger.Info("stopping engine scheduler")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("engine scheduler stopped")
}
