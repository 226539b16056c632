package logger

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

// ParseLevel parses a level name such as "debug" or "error"
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "notice":
		return NoticeLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level: %s", s)
	}
}

var chainPrefixes = map[string]string{
	"ethereum":         "[ETH]  ",
	"ethereum-sepolia": "[ETH]  ",
	"arbitrum":         "[ARB]  ",
	"arbitrum-sepolia": "[ARB]  ",
	"avalanche":        "[AVA]  ",
	"avalanche-fuji":   "[AVA]  ",
	"base":             "[BASE] ",
	"base-sepolia":     "[BASE] ",
	"polygon":          "[POL]  ",
	"solana":           "[SOL]  ",
	"solana-devnet":    "[SOL]  ",
}

var colors = map[string]color.Attribute{
	"ethereum":         color.FgHiGreen,
	"ethereum-sepolia": color.FgHiGreen,
	"arbitrum":         color.FgHiBlue,
	"arbitrum-sepolia": color.FgHiBlue,
	"avalanche":        color.FgRed,
	"avalanche-fuji":   color.FgRed,
	"base":             color.FgBlue,
	"base-sepolia":     color.FgBlue,
	"polygon":          color.FgMagenta,
	"solana":           color.FgHiMagenta,
	"solana-devnet":    color.FgHiMagenta,
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithChain(chainID string, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithChain(chainID string, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithChain(chainID string, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithChain(chainID string, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                      {}
func (l *EmptyLogger) InfoWithChain(_ string, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                     {}
func (l *EmptyLogger) ErrorWithChain(_ string, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                     {}
func (l *EmptyLogger) DebugWithChain(_ string, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                    {}
func (l *EmptyLogger) NoticeWithChain(_ string, _ string, _ ...interface{}) {}

// StdLogger is a standard implementation of the Logger interface that logs messages to the console.
type StdLogger struct {
	enableColoring bool
	level          Level
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
	}
}

// formatMessage formats the log message with the appropriate log level, chain prefix, and coloring if enabled.
func (l *StdLogger) formatMessage(level Level, chainID string, format string) string {
	chainPrefix := chainPrefixes[chainID]
	if chainPrefix == "" && chainID != "" {
		chainPrefix = "[" + strings.ToUpper(chainID) + "] "
	}
	if l.enableColoring && chainPrefix != "" {
		attr, ok := colors[chainID]
		if !ok {
			attr = color.FgWhite
		}
		chainPrefix = color.New(attr).Sprint(chainPrefix)
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
	}

	return levelStr + chainPrefix + format
}

func (l *StdLogger) print(level Level, chainID string, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= level {
		log.Printf(l.formatMessage(level, chainID, format), args...)
	}
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.print(InfoLevel, "", format, args...)
}

func (l *StdLogger) InfoWithChain(chainID string, format string, args ...interface{}) {
	l.print(InfoLevel, chainID, format, args...)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.print(ErrorLevel, "", format, args...)
}

func (l *StdLogger) ErrorWithChain(chainID string, format string, args ...interface{}) {
	l.print(ErrorLevel, chainID, format, args...)
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.print(DebugLevel, "", format, args...)
}

func (l *StdLogger) DebugWithChain(chainID string, format string, args ...interface{}) {
	l.print(DebugLevel, chainID, format, args...)
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.print(NoticeLevel, "", format, args...)
}

func (l *StdLogger) NoticeWithChain(chainID string, format string, args ...interface{}) {
	l.print(NoticeLevel, chainID, format, args...)
}
