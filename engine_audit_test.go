package medguard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func drainSink(t *testing.T, sink *ChannelSink) AuditEntry {
	t.Helper()

	select {
	case entry := <-sink.Entries():
		return entry
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit entry")
		return AuditEntry{}
	}
}

func newAuditEngine(t *testing.T, sink AuditSink) (*Engine, *mockAccountProvider, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	ap := newMockAccountProvider()

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAccountProvider(ap).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	return engine, ap, func() {
		engine.Close()
		mr.Close()
	}
}

func TestLogAuditPersistsAndDispatches(t *testing.T) {
	sink := NewChannelSink(16)
	engine, _, done := newAuditEngine(t, sink)
	defer done()

	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.7"), "medguard-test/1.0")

	id := engine.LogAudit(ctx, AuditEntry{
		AccountID:  "a1",
		Action:     ActionRecordRead,
		Resource:   "medical_record",
		ResourceID: "rec-42",
	})
	if id == "" {
		t.Fatal("expected entry id")
	}

	stored, err := engine.GetAuditEntry(ctx, id)
	if err != nil {
		t.Fatalf("GetAuditEntry failed: %v", err)
	}
	if stored.IP != "198.51.100.7" || stored.UserAgent != "medguard-test/1.0" {
		t.Fatalf("expected context metadata on entry, got %+v", stored)
	}
	if stored.Status != StatusSuccess {
		t.Fatalf("expected default success status, got %q", stored.Status)
	}

	emitted := drainSink(t, sink)
	if emitted.ID != id || emitted.Action != ActionRecordRead {
		t.Fatalf("unexpected sink entry %+v", emitted)
	}
}

func TestMarkSuspiciousScoresAndCaps(t *testing.T) {
	engine, _, done := newAuditEngine(t, nil)
	defer done()

	ctx := context.Background()
	id := engine.LogAudit(ctx, AuditEntry{
		AccountID: "a1",
		Action:    ActionRecordRead,
		Resource:  "medical_record",
	})

	entry, err := engine.MarkSuspicious(ctx, id, []string{"Multiple IP addresses detected", "Multiple failed login attempts"})
	if err != nil {
		t.Fatalf("MarkSuspicious failed: %v", err)
	}
	if !entry.IsSuspicious || entry.RiskScore != 40 {
		t.Fatalf("expected score 40, got %+v", entry)
	}

	entry, err = engine.MarkSuspicious(ctx, id, []string{"r3", "r4", "r5", "r6"})
	if err != nil {
		t.Fatalf("second MarkSuspicious failed: %v", err)
	}
	if entry.RiskScore != 100 {
		t.Fatalf("risk score must cap at 100, got %d", entry.RiskScore)
	}
	if len(entry.SuspiciousReasons) != 6 {
		t.Fatalf("reasons must accumulate, got %v", entry.SuspiciousReasons)
	}

	// Score never decreases and the entry is indexed for review.
	flagged, err := engine.SuspiciousEntries(ctx, time.Hour)
	if err != nil {
		t.Fatalf("SuspiciousEntries failed: %v", err)
	}
	if len(flagged) != 1 || flagged[0].ID != id {
		t.Fatalf("expected flagged entry in index, got %+v", flagged)
	}
}

func TestSuspiciousEntriesIncludeHighRiskUnflagged(t *testing.T) {
	engine, _, done := newAuditEngine(t, nil)
	defer done()

	ctx := context.Background()

	// Risk at or above the configured threshold (default 50) is indexed for
	// review even when the caller never set the explicit flag.
	highID := engine.LogAudit(ctx, AuditEntry{
		AccountID: "a1",
		Action:    ActionRecordRead,
		Resource:  "medical_record",
		RiskScore: 90,
	})
	engine.LogAudit(ctx, AuditEntry{
		AccountID: "a1",
		Action:    ActionRecordRead,
		Resource:  "medical_record",
		RiskScore: 10,
	})

	flagged, err := engine.SuspiciousEntries(ctx, time.Hour)
	if err != nil {
		t.Fatalf("SuspiciousEntries failed: %v", err)
	}
	if len(flagged) != 1 || flagged[0].ID != highID {
		t.Fatalf("expected only the high-risk entry flagged, got %+v", flagged)
	}
	if flagged[0].IsSuspicious {
		t.Fatal("score-based indexing must not rewrite the explicit flag")
	}
}

func TestMarkSuspiciousUnknownEntry(t *testing.T) {
	engine, _, done := newAuditEngine(t, nil)
	defer done()

	if _, err := engine.MarkSuspicious(context.Background(), "nope", []string{"r"}); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestRecentActivityWindowing(t *testing.T) {
	engine, _, done := newAuditEngine(t, nil)
	defer done()

	ctx := context.Background()
	old := time.Now().Add(-2 * time.Hour)

	engine.LogAudit(ctx, AuditEntry{AccountID: "a1", Action: ActionRecordRead, Resource: "r", Timestamp: old})
	engine.LogAudit(ctx, AuditEntry{AccountID: "a1", Action: ActionRecordRead, Resource: "r"})
	engine.LogAudit(ctx, AuditEntry{AccountID: "a2", Action: ActionRecordRead, Resource: "r"})

	entries, err := engine.RecentActivity(ctx, "a1", time.Hour)
	if err != nil {
		t.Fatalf("RecentActivity failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the in-window entry for a1, got %d", len(entries))
	}
}

func TestLoginAttemptsIndexedByEmail(t *testing.T) {
	engine, _, done := newAuditEngine(t, nil)
	defer done()

	ctx := context.Background()

	engine.LogAudit(ctx, AuditEntry{Email: "A@B.com", Action: ActionLoginFailed, Resource: "auth", Status: StatusFailure})
	engine.LogAudit(ctx, AuditEntry{Email: "a@b.com", Action: ActionLogin, Resource: "auth"})
	// Non-login actions are not part of the brute-force index.
	engine.LogAudit(ctx, AuditEntry{Email: "a@b.com", Action: ActionRecordRead, Resource: "r"})

	entries, err := engine.LoginAttempts(ctx, "a@b.com", time.Hour)
	if err != nil {
		t.Fatalf("LoginAttempts failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 login-action entries, got %d", len(entries))
	}
}

func TestAuditWriteFailureDoesNotAbortCaller(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ap := newMockAccountProvider()

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAccountProvider(ap).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	// Kill the backing store; the trail write fails but LogAudit still
	// returns an ID and does not panic or error.
	mr.Close()

	if id := engine.LogAudit(context.Background(), AuditEntry{AccountID: "a1", Action: ActionRecordRead, Resource: "r"}); id == "" {
		t.Fatal("expected entry id despite store failure")
	}
}

func TestDispatcherDropsWhenFullWithoutBlocking(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.BufferSize = 1
	cfg.Audit.DropIfFull = true

	mr, rdb := newTestRedis(t)
	defer mr.Close()

	blocking := &blockingSink{release: make(chan struct{})}
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountProvider(newMockAccountProvider()).
		WithAuditSink(blocking).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		engine.LogAudit(ctx, AuditEntry{AccountID: "a1", Action: ActionRecordRead, Resource: "r"})
	}

	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped entries with a saturated sink")
	}

	close(blocking.release)
	engine.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(ctx context.Context, _ AuditEntry) {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
}
