// Package internal contains helper utilities that are intentionally private to
// medguard, including secure random generation for one-time codes.
//
// # Sub-packages
//
//   - audit — audit entry model and async sink dispatch (Dispatcher + Sink implementations)
//   - anomaly — fixed-threshold rule evaluation over recent audit entries
//
// # What this package must NOT do
//
//   - Export types that appear in the public medguard API.
//   - Be imported by any package outside the medguard module.
package internal
