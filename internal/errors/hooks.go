// Package errors - reporting hooks
package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook is called for every error built while reporting is active.
type ErrorHook func(ee *EnhancedError)

var (
	hooksMu    sync.RWMutex
	errorHooks []ErrorHook

	// hasActiveReporting is true when a hook or an enabled telemetry reporter
	// is installed. Build skips stack walking while it is false.
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook invoked on every built error.
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	hooksMu.Lock()
	errorHooks = append(errorHooks, hook)
	hooksMu.Unlock()
	updateReportingState()
}

// ClearErrorHooks removes all registered hooks.
func ClearErrorHooks() {
	hooksMu.Lock()
	errorHooks = nil
	hooksMu.Unlock()
	updateReportingState()
}

func updateReportingState() {
	hooksMu.RLock()
	active := len(errorHooks) > 0
	hooksMu.RUnlock()

	if reporter := GetTelemetryReporter(); reporter != nil && reporter.IsEnabled() {
		active = true
	}
	hasActiveReporting.Store(active)
}

// reportToTelemetry runs hooks and forwards storage failures to the reporter.
func reportToTelemetry(ee *EnhancedError) {
	if !hasActiveReporting.Load() {
		return
	}

	hooksMu.RLock()
	hooks := make([]ErrorHook, len(errorHooks))
	copy(hooks, errorHooks)
	hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}

	// caller errors describe bad input, not system faults
	if IsCallerError(ee) {
		return
	}

	if reporter := GetTelemetryReporter(); reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}
