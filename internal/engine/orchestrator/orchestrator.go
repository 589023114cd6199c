// Package orchestrator drives the periodic sweeps over all groups: activating
// those whose starting date arrived, running the payout gate for active ones,
// and surfacing overdue contributions. Groups are evaluated independently on
// a worker pool; one group's fault is logged and skipped, never allowed to
// abort the rest of the batch.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/esusu-circle-engine/internal/domain/alert"
	"github.com/esusu-circle-engine/internal/domain/group"
	"github.com/esusu-circle-engine/internal/domain/shared"
	"github.com/esusu-circle-engine/internal/engine/compliance"
	"github.com/esusu-circle-engine/internal/engine/cycle"
	"github.com/esusu-circle-engine/internal/engine/ledger"
	"github.com/esusu-circle-engine/internal/engine/payout"
	"github.com/panjf2000/ants/v2"
)

// Orchestrator owns the group-lifecycle sweeps
type Orchestrator struct {
	groups    group.Repository
	reader    *ledger.Reader
	evaluator *compliance.Evaluator
	gate      *payout.Gate
	alerts    alert.Repository
	events    payout.EventPublisher
	locker    *groupLocker
	pool      *ants.Pool
	logger    *slog.Logger
	location  *time.Location
	now       func() time.Time
}

// NewOrchestrator creates the sweep driver with a worker pool of the given size
func NewOrchestrator(
	logger *slog.Logger,
	poolSize int,
	location *time.Location,
	groups group.Repository,
	reader *ledger.Reader,
	evaluator *compliance.Evaluator,
	gate *payout.Gate,
	alerts alert.Repository,
	events payout.EventPublisher,
) (*Orchestrator, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep worker pool: %w", err)
	}
	if location == nil {
		location = time.UTC
	}

	o := &Orchestrator{
		groups:    groups,
		reader:    reader,
		evaluator: evaluator,
		gate:      gate,
		alerts:    alerts,
		events:    events,
		locker:    newGroupLocker(),
		pool:      pool,
		logger:    logger,
		location:  location,
	}
	o.now = func() time.Time { return time.Now().In(location) }
	return o, nil
}

// Shutdown releases the worker pool
func (o *Orchestrator) Shutdown() {
	o.logger.Info("shutting down sweep worker pool", "running_workers", o.pool.Running())
	o.pool.Release()
}

// RunActivationSweep transitions Pending groups whose starting date has been
// reached to Active. Idempotent: a group already advanced by a concurrent
// sweep is skipped.
func (o *Orchestrator) RunActivationSweep(ctx context.Context) error {
	now := o.now()
	o.logger.Info("activation sweep started")

	pending, err := o.groups.ListByStatus(ctx, group.StatusPending)
	if err != nil {
		return fmt.Errorf("activation sweep failed to list pending groups: %w", err)
	}

	o.forEachGroup(ctx, pending, func(ctx context.Context, g *group.Group) error {
		if !g.Activate(now) {
			return nil
		}
		if err := o.groups.UpdateStatus(ctx, g.ID, group.StatusPending, group.StatusActive); err != nil {
			if errors.Is(err, group.ErrStaleStatus{}) {
				// Another sweep got there first
				o.logger.Debug("group already activated elsewhere", "group_id", g.ID.String())
				return nil
			}
			return err
		}
		o.logger.Info("group activated", "group_id", g.ID.String(), "group_name", g.Name)
		o.publishEvent(ctx, shared.NewEngineEvent(shared.EngineEventGroupActivated, g.ID,
			fmt.Sprintf("Group %q is now active", g.Name)))
		return nil
	})

	o.logger.Info("activation sweep finished", "groups_checked", len(pending))
	return nil
}

// RunPayoutSweep runs every Active group through the payout gate. The whole
// evaluate-then-append sequence holds the group's lock, so overlapping sweeps
// cannot both decide GO for the same cycle.
func (o *Orchestrator) RunPayoutSweep(ctx context.Context) error {
	now := o.now()
	o.logger.Info("payout sweep started")

	active, err := o.groups.ListByStatus(ctx, group.StatusActive)
	if err != nil {
		return fmt.Errorf("payout sweep failed to list active groups: %w", err)
	}

	o.forEachGroup(ctx, active, func(ctx context.Context, g *group.Group) error {
		unlock := o.locker.Lock(g.ID)
		defer unlock()

		outcome, err := o.gate.Evaluate(ctx, g, now)
		if err != nil {
			var conflict shared.ConflictError
			if errors.As(err, &conflict) {
				// Lost the append race; the next sweep sees the new count
				o.logger.Warn("payout race lost, will re-evaluate next sweep",
					"group_id", g.ID.String(), "reason", conflict.Reason)
				return nil
			}
			return err
		}

		if outcome.Decision == payout.DecisionAlreadyComplete {
			if err := o.completeGroup(ctx, g); err != nil {
				return err
			}
		}
		return nil
	})

	o.logger.Info("payout sweep finished", "groups_checked", len(active))
	return nil
}

func (o *Orchestrator) completeGroup(ctx context.Context, g *group.Group) error {
	if err := o.groups.UpdateStatus(ctx, g.ID, group.StatusActive, group.StatusCompleted); err != nil {
		if errors.Is(err, group.ErrStaleStatus{}) {
			return nil
		}
		return fmt.Errorf("failed to mark group %s completed: %w", g.ID, err)
	}
	o.logger.Info("group completed", "group_id", g.ID.String(), "group_name", g.Name)
	o.publishEvent(ctx, shared.NewEngineEvent(shared.EngineEventGroupCompleted, g.ID,
		fmt.Sprintf("Group %q completed its rotation", g.Name)))
	return nil
}

// forEachGroup fans the groups out over the worker pool and waits. Errors are
// isolated per group: integrity faults and evaluation failures are logged and
// the batch continues.
func (o *Orchestrator) forEachGroup(ctx context.Context, groups []*group.Group, fn func(context.Context, *group.Group) error) {
	var wg sync.WaitGroup
	for _, g := range groups {
		g := g
		wg.Add(1)
		submitErr := o.pool.Submit(func() {
			defer wg.Done()
			if err := fn(ctx, g); err != nil {
				var fault shared.DataIntegrityFault
				if errors.As(err, &fault) {
					o.logger.Error("DATA INTEGRITY FAULT, group skipped",
						"group_id", g.ID.String(), "detail", fault.Detail)
					return
				}
				o.logger.Error("group evaluation failed, continuing batch",
					"group_id", g.ID.String(), "error", err)
			}
		})
		if submitErr != nil {
			wg.Done()
			o.logger.Error("failed to submit group to worker pool",
				"group_id", g.ID.String(), "error", submitErr)
		}
	}
	wg.Wait()
}

// publishEvent pushes to the event stream, swallowing failures
func (o *Orchestrator) publishEvent(ctx context.Context, event *shared.EngineEvent) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, event); err != nil {
		o.logger.Warn("failed to publish engine event", "type", string(event.Type), "error", err)
	}
}

// currentCycle resolves the live cycle of a group from its executed payouts
func (o *Orchestrator) currentCycle(ctx context.Context, g *group.Group) (cycle.Schedule, int, error) {
	sched := cycle.ForGroup(g)
	if err := sched.Validate(); err != nil {
		return cycle.Schedule{}, 0, err
	}
	executed, err := o.reader.ExecutedPayoutCount(ctx, g.ID)
	if err != nil {
		return cycle.Schedule{}, 0, err
	}
	return sched, sched.CycleNumber(executed), nil
}
