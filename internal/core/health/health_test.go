package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Healthy Tests
// =============================================================================

func TestHealthy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"200 OK", 200, true},
		{"201 Created", 201, true},
		{"204 No Content", 204, true},
		{"299 edge", 299, true},
		{"300 redirect", 300, false},
		{"404 not found", 404, false},
		{"500 server error", 500, false},
		{"503 unavailable", 503, false},
		{"0 transport error", 0, false},
		{"199 informational", 199, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Healthy(tt.status))
		})
	}
}

// =============================================================================
// NextAction Tests
// =============================================================================

func TestNextAction_SuccessStopsImmediately(t *testing.T) {
	b := Budget{MaxRetries: 15, Delay: 5 * time.Second}

	// Success short-circuits regardless of remaining budget.
	assert.Equal(t, ActionStopSuccess, NextAction(1, true, b))
	assert.Equal(t, ActionStopSuccess, NextAction(15, true, b))
}

func TestNextAction_ZeroBudgetExhaustsBeforeAnyProbe(t *testing.T) {
	b := Budget{MaxRetries: 0, Delay: 5 * time.Second}

	assert.Equal(t, ActionStopExhausted, NextAction(0, false, b))
}

func TestNextAction_FirstProbeHasNoDelay(t *testing.T) {
	b := Budget{MaxRetries: 15, Delay: 5 * time.Second}

	assert.Equal(t, ActionProbe, NextAction(0, false, b))
}

func TestNextAction_FailedProbeDelaysWhenBudgetRemains(t *testing.T) {
	b := Budget{MaxRetries: 15, Delay: 5 * time.Second}

	assert.Equal(t, ActionDelayThenProbe, NextAction(1, false, b))
	assert.Equal(t, ActionDelayThenProbe, NextAction(14, false, b))
}

func TestNextAction_ExhaustsAtBudget(t *testing.T) {
	b := Budget{MaxRetries: 15, Delay: 5 * time.Second}

	assert.Equal(t, ActionStopExhausted, NextAction(15, false, b))
}

func TestNextAction_SingleRetryBudget(t *testing.T) {
	b := Budget{MaxRetries: 1, Delay: time.Second}

	assert.Equal(t, ActionProbe, NextAction(0, false, b))
	assert.Equal(t, ActionStopExhausted, NextAction(1, false, b))
}

// =============================================================================
// Defaults Tests
// =============================================================================

func TestDefaultBudget(t *testing.T) {
	b := DefaultBudget()

	assert.Equal(t, 15, b.MaxRetries)
	assert.Equal(t, 5*time.Second, b.Delay)
}
