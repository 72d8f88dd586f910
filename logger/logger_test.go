package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewFallsBackToInfo(t *testing.T) {
	l := New("not-a-level")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())

	l = New("debug")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestSecurityEventFields(t *testing.T) {
	l := New("warn")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.Security("account_locked", "acct-1", map[string]interface{}{"ip": "203.0.113.9"})

	out := buf.String()
	assert.Contains(t, out, `"security":true`)
	assert.Contains(t, out, `"account_id":"acct-1"`)
	assert.Contains(t, out, "account_locked")
}

func TestAuditFailureIncludesError(t *testing.T) {
	l := New("error")
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.AuditFailure("LOGIN", assert.AnError)

	out := buf.String()
	assert.Contains(t, out, `"audit":true`)
	assert.Contains(t, out, `"action":"LOGIN"`)
	assert.Contains(t, out, "Audit write failed")
}
