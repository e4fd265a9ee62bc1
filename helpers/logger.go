package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sjsage522/pricetracker/logger"
)

// LoggerInterface defines the interface for anomaly logger implementations
type LoggerInterface interface {
	LogError(stage string, err error)
}

// Logger appends per-record anomalies to a file so they can be reviewed after a run
type Logger struct {
	mu        sync.Mutex
	errorFile string
}

// NewLogger creates a new logger instance
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError appends an error line with stage name and timestamp
func (l *Logger) LogError(stage string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Warn("failed to open anomaly log %s: %v", l.errorFile, fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, stage, err.Error())
}
