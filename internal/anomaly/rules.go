// Package anomaly evaluates fixed-threshold rules over a recent window of one
// account's audit entries. The rules are deliberately coarse configuration
// constants, not a learned model; each rule is evaluated independently and
// every applicable reason is returned.
package anomaly

import "github.com/medguardlabs/medguard/internal/audit"

// Reason strings are part of the external contract: downstream alerting and
// review tooling match on them verbatim.
const (
	ReasonMultipleIPs     = "Multiple IP addresses detected"
	ReasonHighRequestRate = "Unusually high number of requests"
	ReasonFailedLogins    = "Multiple failed login attempts"
	ReasonAccessDenied    = "Multiple access denied events"
)

// Thresholds holds the rule cut-offs. A rule fires when its observed count is
// strictly greater than the threshold.
type Thresholds struct {
	MaxDistinctIPs  int
	MaxRequests     int
	MaxFailedLogins int
	MaxAccessDenied int
}

// DefaultThresholds returns the standard production cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxDistinctIPs:  3,
		MaxRequests:     100,
		MaxFailedLogins: 3,
		MaxAccessDenied: 5,
	}
}

// Evaluate runs every rule against the window and returns all applicable
// reasons. It is a pure function: no side effects, no early exit, stable
// reason ordering.
func Evaluate(window []audit.Entry, t Thresholds) []string {
	var reasons []string

	ips := make(map[string]struct{})
	var failedLogins, accessDenied int

	for _, entry := range window {
		if entry.IP != "" {
			ips[entry.IP] = struct{}{}
		}
		switch entry.Action {
		case "LOGIN_FAILED":
			failedLogins++
		case "ACCESS_DENIED":
			accessDenied++
		}
	}

	if len(ips) > t.MaxDistinctIPs {
		reasons = append(reasons, ReasonMultipleIPs)
	}
	if len(window) > t.MaxRequests {
		reasons = append(reasons, ReasonHighRequestRate)
	}
	if failedLogins > t.MaxFailedLogins {
		reasons = append(reasons, ReasonFailedLogins)
	}
	if accessDenied > t.MaxAccessDenied {
		reasons = append(reasons, ReasonAccessDenied)
	}

	return reasons
}
