package medguard

import (
	"context"

	"github.com/medguardlabs/medguard/internal/anomaly"
)

// DetectAnomalies describes the detectanomalies operation and its observable behavior.
//
// DetectAnomalies may return an error when input validation, dependency calls, or security checks fail.
// DetectAnomalies does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// It evaluates the fixed threshold rules over the account's audit entries in
// the configured trailing window and returns every applicable reason. The
// evaluation itself has no side effects; callers decide whether to mark
// entries suspicious or alert based on the result.
func (e *Engine) DetectAnomalies(ctx context.Context, accountID string) ([]string, error) {
	if e == nil || e.auditStore == nil {
		return nil, ErrEngineNotReady
	}

	window, err := e.RecentActivity(ctx, accountID, e.config.Anomaly.Window)
	if err != nil {
		return nil, err
	}

	return anomaly.Evaluate(window, anomaly.Thresholds{
		MaxDistinctIPs:  e.config.Anomaly.MaxDistinctIPs,
		MaxRequests:     e.config.Anomaly.MaxRequests,
		MaxFailedLogins: e.config.Anomaly.MaxFailedLogins,
		MaxAccessDenied: e.config.Anomaly.MaxAccessDenied,
	}), nil
}
