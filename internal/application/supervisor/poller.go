package supervisor

import (
	"context"
	"time"

	"github.com/helmware/deckhand/internal/infrastructure/logging"
)

// DefaultPollInterval is the period between poll ticks.
const DefaultPollInterval = 3 * time.Second

// Observer is notified after each completed poll tick, once all statuses are
// recomputed and slot positions reconciled. Callbacks run outside the
// supervisor lock.
type Observer func()

// Poller drives status detection and reconciliation across the registry on a
// fixed interval. It is the only background mutator; everything else is a
// user-triggered operation.
type Poller struct {
	supervisor *Supervisor
	interval   time.Duration
	observers  []Observer
}

// NewPoller creates a poller over sup. A non-positive interval selects the
// default.
func NewPoller(sup *Supervisor, interval time.Duration, observers ...Observer) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		supervisor: sup,
		interval:   interval,
		observers:  observers,
	}
}

// Run ticks until ctx is cancelled. The first tick fires after one interval,
// not immediately; launch and kill already reconcile synchronously.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one poll pass: detect every workspace's status, reconcile slot
// positions, then notify observers. The ordering is fixed so observers never
// read half-updated state. Ticks are idempotent modulo timestamp freshness.
func (p *Poller) Tick(ctx context.Context) {
	start := time.Now()
	s := p.supervisor

	ctx, span := s.tracer.StartTickSpan(ctx)

	s.mu.Lock()
	now := time.Now()
	terminal := 0
	total := 0
	for _, ws := range s.registry.AllOrdered() {
		total++
		before := ws.Status
		after := s.detector.Detect(ctx, ws, now)
		if after != before {
			logging.LogStatusChange(ctx, s.logger, ws.Name, string(before), string(after))
			s.persist(ctx, ws)
		}
		if after.IsTerminal() {
			terminal++
		}
	}
	orphans := s.reconcile(ctx)
	s.mu.Unlock()

	span.SetCounts(total, orphans, terminal)
	span.End()
	logging.LogPollTick(ctx, s.logger, total, orphans, time.Since(start))

	for _, observe := range p.observers {
		observe()
	}
}
