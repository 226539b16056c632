package logger

import (
	"fmt"
	"strings"
)

// FilteredLogger drops messages that contain any of the suppressed substrings
type FilteredLogger struct {
	next     Logger
	suppress []string
}

var _ Logger = (*FilteredLogger)(nil)

// NewFilteredLogger wraps next, empty patterns are ignored
func NewFilteredLogger(next Logger, suppress []string) *FilteredLogger {
	patterns := make([]string, 0, len(suppress))
	for _, s := range suppress {
		if s = strings.TrimSpace(s); s != "" {
			patterns = append(patterns, s)
		}
	}
	return &FilteredLogger{next: next, suppress: patterns}
}

func (l *FilteredLogger) suppressed(format string, args []interface{}) bool {
	if len(l.suppress) == 0 {
		return false
	}
	msg := fmt.Sprintf(format, args...)
	for _, s := range l.suppress {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (l *FilteredLogger) Info(format string, args ...interface{}) {
	if !l.suppressed(format, args) {
		l.next.Info(format, args...)
	}
}

func (l *FilteredLogger) InfoWithChain(chainID string, format string, args ...interface{}) {
	if !l.suppressed(format, args) {
		l.next.InfoWithChain(chainID, format, args...)
	}
}

func (l *FilteredLogger) Error(format string, args ...interface{}) {
	if !l.suppressed(format, args) {
		l.next.Error(format, args...)
	}
}

func (l *FilteredLogger) ErrorWithChain(chainID string, format string, args ...interface{}) {
	if !l.suppressed(format, args) {
		l.next.ErrorWithChain(chainID, format, args...)
	}
}

func (l *FilteredLogger) Debug(format string, args ...interface{}) {
	if !l.suppressed(format, args) {
		l.next.Debug(format, args...)
	}
}

func (l *FilteredLogger) DebugWithChain(chainID string, format string, args ...interface{}) {
	if !l.suppressed(format, args) {
		l.next.DebugWithChain(chainID, format, args...)
	}
}

func (l *FilteredLogger) Notice(format string, args ...interface{}) {
	if !l.suppressed(format, args) {
		l.next.Notice(format, args...)
	}
}

func (l *FilteredLogger) NoticeWithChain(chainID string, format string, args ...interface{}) {
	if !l.suppressed(format, args) {
		l.next.NoticeWithChain(chainID, format, args...)
	}
}
