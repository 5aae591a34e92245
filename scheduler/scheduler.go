// Package scheduler implements the C9 Scheduler: a minute-tick loop
// that evaluates scheduleTrigger nodes across every registered workflow
// and initiates a run for the first one whose cron expression matches.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/flowloom/rivulet/cron"
	"github.com/flowloom/rivulet/engine"
	"github.com/flowloom/rivulet/model"
)

const tick = 2 * time.Second

// WorkflowSource supplies the set of workflows the scheduler scans each
// tick. workflowstore.Collection satisfies this via its List method.
type WorkflowSource interface {
	List() []model.Workflow
}

// Scheduler ticks every ~2s, computing the current absolute minute
// (floor(epochSeconds/60)); on the first tick to observe a new minute it
// scans every scheduleTrigger node across every workflow and runs the
// first one whose cron expression matches and whose node.data.enabled is
// true. Deduplication is minute-granular across the whole scheduler, not
// per-node or per-workflow (§9 Design Note) — the last-processed minute
// advances unconditionally after the scan either way, so a minute with
// no match is never revisited.
type Scheduler struct {
	source WorkflowSource
	eng    *engine.Engine
	onFire func(wf model.Workflow, nodeID model.ID)
	logger *zap.Logger

	mu         sync.Mutex
	lastMinute int64
	haveLast   bool
}

func New(source WorkflowSource, eng *engine.Engine) *Scheduler {
	return &Scheduler{source: source, eng: eng, logger: zap.NewNop()}
}

// OnFire installs an optional callback invoked with the workflow and
// node id that triggered a run, for logging/observability; it runs
// synchronously before the run starts.
func (s *Scheduler) OnFire(f func(wf model.Workflow, nodeID model.ID)) {
	s.onFire = f
}

// SetLogger wires process-level operational logging for tick scans and
// fire decisions; nil is ignored, leaving the no-op default in place.
func (s *Scheduler) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Run blocks until ctx is cancelled, ticking the scheduler loop.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	minute := now.Unix() / 60

	s.mu.Lock()
	if s.haveLast && minute <= s.lastMinute {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.logger.Debug("scheduler scanning minute", zap.Int64("minute", minute))
	fired := s.scanAndFire(ctx, now)

	s.mu.Lock()
	s.lastMinute = minute
	s.haveLast = true
	s.mu.Unlock()

	if !fired {
		s.logger.Debug("scheduler scan found no match", zap.Int64("minute", minute))
	}
}

// scanAndFire implements the first-match-wins scan: it stops at the
// first scheduleTrigger node (in workflow order, then node order) whose
// cron expression matches now, and runs that workflow.
func (s *Scheduler) scanAndFire(ctx context.Context, now time.Time) bool {
	for _, wf := range s.source.List() {
		for _, n := range wf.Nodes {
			if n.Type != model.NodeScheduleTrigger {
				continue
			}
			if enabled, ok := n.Data["enabled"].(bool); !ok || !enabled {
				continue
			}
			expr, ok := n.Data["cronExpression"].(string)
			if !ok {
				continue
			}
			if !cron.Matches(expr, now) {
				continue
			}
			s.logger.Info("firing scheduled workflow",
				zap.String("workflow", string(wf.ID)), zap.String("node", string(n.ID)), zap.String("cron", expr))
			if s.onFire != nil {
				s.onFire(wf, n.ID)
			}
			go s.eng.Run(ctx, wf)
			return true
		}
	}
	return false
}
