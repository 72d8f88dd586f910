// Package logger wraps logrus with the structured fields used across the
// medguard security core: security events, audit side-channel failures, and
// PHI access logging.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with security-oriented helpers.
type Logger struct {
	*logrus.Logger
}

// New creates a JSON logger at the given level. Unknown levels fall back to info.
func New(level string) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// WithComponent creates a new logger entry with component name field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// Security logs security-related events
func (l *Logger) Security(event string, accountID string, details map[string]interface{}) {
	l.Logger.WithFields(logrus.Fields{
		"security":   true,
		"event":      event,
		"account_id": accountID,
		"details":    details,
	}).Warn("Security event")
}

// AuditFailure logs an audit-trail write failure. Audit logging is
// best-effort; these entries are the side channel that keeps failures visible
// without cascading into the caller's primary operation.
func (l *Logger) AuditFailure(action string, err error) {
	l.Logger.WithFields(logrus.Fields{
		"audit":  true,
		"action": action,
	}).WithError(err).Error("Audit write failed")
}

// PHIAccess logs protected-health-information access events.
func (l *Logger) PHIAccess(accountID, patientID, action, resource string, success bool) {
	entry := l.Logger.WithFields(logrus.Fields{
		"phi_access": true,
		"account_id": accountID,
		"patient_id": patientID,
		"action":     action,
		"resource":   resource,
		"success":    success,
		"sensitive":  true,
	})

	if success {
		entry.Info("PHI access granted")
	} else {
		entry.Warn("PHI access denied")
	}
}
