package logger

import (
	"bytes"
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	EmptyLogger
	lines []string
}

func (r *recordingLogger) Info(format string, args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *recordingLogger) ErrorWithChain(chainID string, format string, args ...interface{}) {
	r.lines = append(r.lines, chainID+": "+fmt.Sprintf(format, args...))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{input: "debug", expected: DebugLevel},
		{input: "INFO", expected: InfoLevel},
		{input: " notice ", expected: NoticeLevel},
		{input: "error", expected: ErrorLevel},
		{input: "verbose", expected: InfoLevel, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			level, err := ParseLevel(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expected, level)
		})
	}
}

func TestFilteredLogger(t *testing.T) {
	rec := &recordingLogger{}
	filtered := NewFilteredLogger(rec, []string{"websocket closed", " ", ""})

	filtered.Info("burn submitted: %s", "0xabc")
	filtered.Info("subscription error: %s", "websocket closed before the connection was established")
	filtered.ErrorWithChain("solana", "mint failed: %v", "insufficient lamports")
	filtered.ErrorWithChain("solana", "listener: websocket closed")

	assert.Equal(t, []string{
		"burn submitted: 0xabc",
		"solana: mint failed: insufficient lamports",
	}, rec.lines)
}

func TestStdLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	original := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(original)

	l := NewStdLogger(false, NoticeLevel)
	l.Debug("hidden debug")
	l.Info("hidden info")
	l.NoticeWithChain("base", "burn confirmed")
	l.ErrorWithChain("unknown-chain", "mint failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[NOTICE] [BASE] burn confirmed")
	assert.Contains(t, out, "[ERROR]  [UNKNOWN-CHAIN] mint failed")
}
