/*
auditor.go - Periodic tariff continuity audit

PURPOSE:
  Periodically walks every lease and reports tariff timelines with gaps
  (days between the lease start and the last period not covered by any
  tariff). Gaps are advisory: the audit logs them and never modifies data.
  A calculation that later hits a gap fails with a missing-tariff error.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start
  - One warning line per lease with gaps, one summary line per run

CONFIGURATION:
  - Interval: How often to check (audit.interval, default: 1 hour)
  - Enabled:  Whether the auditor is active (default: true)

USAGE:
  auditor := NewContinuityAuditor(store, log)
  auditor.Start()
  // ... later
  auditor.Stop()

SEE ALSO:
  - handlers.go: GetContinuity endpoint (single lease, on demand)
  - lease/timeline.go: Timeline.Audit
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/lease-engine/lease"
)

// ContinuityAuditor audits every lease's tariff timeline on a ticker.
type ContinuityAuditor struct {
	Store    lease.Store
	Log      zerolog.Logger
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewContinuityAuditor creates an auditor with a one-hour interval.
func NewContinuityAuditor(store lease.Store, log zerolog.Logger) *ContinuityAuditor {
	return &ContinuityAuditor{
		Store:    store,
		Log:      log.With().Str("component", "continuity_auditor").Logger(),
		Interval: time.Hour,
		Enabled:  true,
	}
}

// Start begins the periodic audit.
func (a *ContinuityAuditor) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.Enabled {
		a.Log.Info().Msg("disabled, not starting")
		return
	}
	if a.ticker != nil {
		return
	}

	a.ticker = time.NewTicker(a.Interval)
	a.stop = make(chan struct{})
	a.wg.Add(1)
	go a.run(a.ticker, a.stop)

	a.Log.Info().Dur("interval", a.Interval).Msg("started")
}

// Stop stops the auditor and waits for a running audit to finish.
func (a *ContinuityAuditor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticker == nil {
		return
	}
	a.ticker.Stop()
	close(a.stop)
	a.wg.Wait()
	a.ticker = nil
	a.Log.Info().Msg("stopped")
}

func (a *ContinuityAuditor) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer a.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	a.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			a.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow audits every lease once and returns the warnings found. Leases
// whose tariffs cannot be loaded are logged and skipped.
func (a *ContinuityAuditor) RunNow(ctx context.Context) []*lease.ContinuityWarning {
	leases, err := a.Store.Leases(ctx)
	if err != nil {
		a.Log.Error().Err(err).Msg("failed to list leases")
		return nil
	}

	var warnings []*lease.ContinuityWarning
	for _, l := range leases {
		periods, err := a.Store.Tariffs(ctx, l.ID)
		if err != nil {
			a.Log.Error().Err(err).Str("lease_id", string(l.ID)).Msg("failed to load tariffs")
			continue
		}
		w := lease.NewTimeline(l, periods).Audit()
		if w == nil {
			continue
		}
		warnings = append(warnings, w)

		days := 0
		for _, g := range w.Gaps {
			days += g.Days
		}
		a.Log.Warn().
			Str("lease_id", string(l.ID)).
			Str("local_id", string(l.LocalID)).
			Bool("no_tariff", w.NoTariff).
			Int("gaps", len(w.Gaps)).
			Int("uncovered_days", days).
			Msg(w.Error())
	}

	a.Log.Info().
		Int("leases", len(leases)).
		Int("with_gaps", len(warnings)).
		Msg("continuity audit completed")
	return warnings
}
