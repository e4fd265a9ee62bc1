package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog logger carrying the fields of one stage or component
type Logger struct {
	logger zerolog.Logger
}

// Fields are attached to every event of a derived logger
type Fields map[string]interface{}

// Default is the process logger. Package helpers initialize it on first use.
var Default *Logger

// Init points Default at a console writer on stdout, at the level taken from
// LOG_LEVEL (debug outside production when unset)
func Init() {
	level := getLogLevel()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	Default = New(zerolog.New(output).With().Timestamp().Logger())

	Default.Debug().Str("level", level.String()).Msg("Logger initialized")
}

func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if os.Getenv("PRICETRACKER_ENVIRONMENT") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func defaultLogger() *Logger {
	if Default == nil {
		Init()
	}
	return Default
}

// New wraps an existing zerolog logger
func New(l zerolog.Logger) *Logger {
	return &Logger{logger: l}
}

// WithField returns a logger that adds key to every event
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithFields returns a logger that adds all of fields to every event
func (l *Logger) WithFields(fields Fields) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }

// Fatal logs at fatal level and exits once the event is sent
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

// ForStage returns a logger for one pipeline stage (cli, pipeline, extract...)
func ForStage(stage string) *Logger {
	return defaultLogger().WithField("stage", stage)
}

// ForComponent returns a logger for a collaborator such as the fetcher,
// storage, publisher or cache
func ForComponent(name string) *Logger {
	return defaultLogger().WithField("component", name)
}

// Debug logs a formatted debug message on the default logger
func Debug(format string, v ...interface{}) {
	defaultLogger().Debug().Msgf(format, v...)
}

// Info logs a formatted info message on the default logger
func Info(format string, v ...interface{}) {
	defaultLogger().Info().Msgf(format, v...)
}

// Warn logs a formatted warning on the default logger
func Warn(format string, v ...interface{}) {
	defaultLogger().Warn().Msgf(format, v...)
}

// LogError logs err for component with a formatted message
func LogError(component string, err error, format string, v ...interface{}) {
	defaultLogger().Error().
		Str("component", component).
		Err(err).
		Msg(fmt.Sprintf(format, v...))
}
