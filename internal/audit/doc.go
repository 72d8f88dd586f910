// Package audit implements the audit entry model and async sink dispatching
// for security-relevant operations.
//
// # Components
//
//   - [Entry] — immutable audit record with actor, action taxonomy, resource, IP, risk score.
//   - [Sink] — interface for entry consumers (channel, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//
// # Architecture boundaries
//
// This package owns entry buffering and sink delivery. It does NOT decide
// which entries to emit or persist — that responsibility belongs to the
// Engine, and retention/queries belong to the Engine's audit store.
//
// # What this package must NOT do
//
//   - Filter or suppress entries based on business logic.
//   - Import medguard or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
