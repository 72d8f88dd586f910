package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Status values for an audit entry outcome.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusWarning = "warning"
)

// Entry is the canonical audit record used by internal dispatching, the
// retention store, and root APIs. Entries are append-only: after creation the
// only permitted mutation is the explicit mark-suspicious operation, which
// flips IsSuspicious, appends reasons, and raises RiskScore.
type Entry struct {
	ID                string            `json:"id"`
	Timestamp         time.Time         `json:"timestamp"`
	AccountID         string            `json:"account_id,omitempty"`
	Email             string            `json:"email,omitempty"`
	Action            string            `json:"action"`
	Resource          string            `json:"resource"`
	ResourceID        string            `json:"resource_id,omitempty"`
	Details           map[string]string `json:"details,omitempty"`
	IP                string            `json:"ip,omitempty"`
	UserAgent         string            `json:"user_agent,omitempty"`
	Status            string            `json:"status"`
	IsSuspicious      bool              `json:"is_suspicious"`
	SuspiciousReasons []string          `json:"suspicious_reasons,omitempty"`
	RiskScore         int               `json:"risk_score"`
}

// Sink receives emitted audit entries.
type Sink interface {
	Emit(ctx context.Context, entry Entry)
}

// NoOpSink drops audit entries.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Entry) {}

// ChannelSink writes audit entries into a buffered channel.
type ChannelSink struct {
	entries chan Entry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		entries: make(chan Entry, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, entry Entry) {
	select {
	case s.entries <- entry:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Entries() <-chan Entry {
	return s.entries
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, entry Entry) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
