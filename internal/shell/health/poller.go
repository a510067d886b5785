// Package health implements the bounded-retry health poller. The shell
// half of the health check: it issues HTTP probes and sleeps, while the
// retry decisions come from the pure internal/core/health package.
package health

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	corehealth "github.com/shipward/shipward/internal/core/health"
	"github.com/shipward/shipward/internal/core/pipeline"
)

// DefaultProbeTimeout bounds a single probe (connection + response) so a
// hung request cannot stall the loop beyond one attempt.
const DefaultProbeTimeout = 3 * time.Second

// =============================================================================
// Errors
// =============================================================================

// ExhaustedError reports that the poller spent its full retry budget
// without a 2xx response.
type ExhaustedError struct {
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("health check exhausted after %d attempts", e.Attempts)
}

func (e *ExhaustedError) Unwrap() error {
	return pipeline.ErrHealthCheckExhausted
}

// =============================================================================
// Poller
// =============================================================================

// Report summarizes one poll: every attempt in order, plus totals.
type Report struct {
	Attempts []corehealth.Attempt
	Probes   int
	Delays   int
	Healthy  bool
}

// Poller probes an HTTP endpoint until it answers 2xx or the budget is
// spent. One probe is in flight at a time; the only suspension point is
// the inter-attempt delay.
type Poller struct {
	url    string
	budget corehealth.Budget
	client *http.Client
	logger *slog.Logger

	// sleep is swapped out in tests to observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a poller for url. A zero probeTimeout falls back to
// DefaultProbeTimeout.
func NewPoller(url string, budget corehealth.Budget, probeTimeout time.Duration, logger *slog.Logger) *Poller {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		url:    url,
		budget: budget,
		client: &http.Client{Timeout: probeTimeout},
		logger: logger.With("component", "health"),
		sleep:  sleepCtx,
	}
}

// Poll runs the retry loop. It returns the report together with nil on
// success, an *ExhaustedError once the budget is spent, or a
// cancellation error when ctx aborts the loop early. Success on probe k
// means exactly k probes and k-1 delays were performed.
func (p *Poller) Poll(ctx context.Context) (Report, error) {
	var report Report

	healthy := false
	for {
		switch corehealth.NextAction(report.Probes, healthy, p.budget) {
		case corehealth.ActionStopSuccess:
			report.Healthy = true
			p.logger.Info("endpoint healthy", "url", p.url, "attempts", report.Probes)
			return report, nil

		case corehealth.ActionStopExhausted:
			p.logger.Error("health check exhausted", "url", p.url, "attempts", report.Probes)
			return report, &ExhaustedError{Attempts: report.Probes}

		case corehealth.ActionDelayThenProbe:
			if err := p.sleep(ctx, p.budget.Delay); err != nil {
				return report, fmt.Errorf("health check cancelled: %w", err)
			}
			report.Delays++
		}

		attempt := p.probe(ctx, report.Probes+1)
		report.Attempts = append(report.Attempts, attempt)
		report.Probes++
		healthy = attempt.Healthy

		if err := ctx.Err(); err != nil && !healthy {
			return report, fmt.Errorf("health check cancelled: %w", err)
		}
	}
}

// probe issues a single GET. Transport errors and non-2xx statuses are
// the same failed attempt for the retry decision; they differ only in
// the logged diagnostics.
func (p *Poller) probe(ctx context.Context, seq int) corehealth.Attempt {
	attempt := corehealth.Attempt{Seq: seq, At: time.Now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		attempt.Err = err.Error()
		p.logger.Warn("probe failed", "attempt", seq, "error", err)
		return attempt
	}

	resp, err := p.client.Do(req)
	if err != nil {
		attempt.Err = err.Error()
		p.logger.Warn("probe failed", "attempt", seq, "error", err)
		return attempt
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	attempt.StatusCode = resp.StatusCode
	attempt.Healthy = corehealth.Healthy(resp.StatusCode)
	if attempt.Healthy {
		p.logger.Debug("probe succeeded", "attempt", seq, "status", resp.StatusCode)
	} else {
		p.logger.Warn("probe unhealthy", "attempt", seq, "status", resp.StatusCode)
	}
	return attempt
}

// sleepCtx pauses for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
