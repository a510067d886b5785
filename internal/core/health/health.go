// Package health contains the pure retry-decision logic for the health
// check. Following the core/shell split, this package does no I/O: the
// shell performs HTTP probes and sleeps, this package decides what to do
// next given what has happened so far.
package health

import "time"

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultMaxRetries is the default probe budget.
	DefaultMaxRetries = 15
	// DefaultRetryDelay is the default pause between failed probes.
	DefaultRetryDelay = 5 * time.Second
)

// =============================================================================
// Types
// =============================================================================

// Budget bounds the retry loop: at most MaxRetries probes, with Delay
// between a failed probe and the next one.
type Budget struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultBudget returns the default retry budget.
func DefaultBudget() Budget {
	return Budget{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultRetryDelay,
	}
}

// Attempt records a single probe. Attempts are numbered 1..MaxRetries and
// exist only for the duration of one poll; nothing persists them.
type Attempt struct {
	Seq        int
	Healthy    bool
	StatusCode int
	Err        string
	At         time.Time
}

// Action is the next step of the retry state machine.
type Action int

const (
	// ActionProbe issues the next probe immediately.
	ActionProbe Action = iota
	// ActionDelayThenProbe pauses for Budget.Delay, then probes.
	ActionDelayThenProbe
	// ActionStopSuccess terminates the loop: the endpoint answered 2xx.
	ActionStopSuccess
	// ActionStopExhausted terminates the loop: the budget is spent.
	ActionStopExhausted
)

// =============================================================================
// Decision Functions
// =============================================================================

// Healthy reports whether a probe outcome counts as success. Only a 2xx
// status does; transport errors arrive as statusCode 0 and fall through
// with every other status. The retry decision deliberately does not
// distinguish "reachable but unhealthy" from "unreachable" - that split
// exists only in diagnostic logging.
func Healthy(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// NextAction decides the next step given the number of attempts already
// made and whether the most recent one succeeded. A zero budget exhausts
// immediately, before any probe. A success stops the loop with no
// trailing delay.
func NextAction(attemptsMade int, healthy bool, b Budget) Action {
	if healthy {
		return ActionStopSuccess
	}
	if attemptsMade >= b.MaxRetries {
		return ActionStopExhausted
	}
	if attemptsMade == 0 {
		return ActionProbe
	}
	return ActionDelayThenProbe
}
