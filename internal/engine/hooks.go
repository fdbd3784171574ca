package engine

import (
	"strings"
	"time"

	"github.com/nordvale/planline-backend/internal/observability"
)

// Hooks captures engine-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	IncCascadeWarning(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) IncCascadeWarning(string)                       {}

type observabilityHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks creates engine hooks backed by observability metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{metrics: metrics}
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.ObserveEngineOperation(strings.TrimSpace(name), strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncEngineConflict(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncRetry(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncEngineRetry(strings.TrimSpace(name))
}

func (h *observabilityHooks) IncCascadeWarning(name string) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.IncCascadeWarning(strings.TrimSpace(name))
}
