package sql

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SQLLogger logs statements at debug level when enabled
type SQLLogger struct {
	logger  zerolog.Logger
	enabled bool
	mu      sync.RWMutex
}

// NewSQLLogger creates a new SQL logger
func NewSQLLogger(logger zerolog.Logger, enabled bool) *SQLLogger {
	return &SQLLogger{
		logger:  logger,
		enabled: enabled,
	}
}

// IsEnabled returns whether SQL logging is enabled
func (l *SQLLogger) IsEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

// SetEnabled enables or disables SQL logging
func (l *SQLLogger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// LogQuery logs a SELECT query with execution time and row count
func (l *SQLLogger) LogQuery(query string, args []any, duration time.Duration, rowCount int) {
	if !l.IsEnabled() {
		return
	}

	l.logger.Debug().
		Float64("ms", durationMs(duration)).
		Int("rows", rowCount).
		Str("args", l.formatArgs(args)).
		Msg(l.formatQuery(query))
}

// LogExec logs a statement with execution time and affected rows
func (l *SQLLogger) LogExec(query string, args []any, duration time.Duration, result sql.Result) {
	if !l.IsEnabled() {
		return
	}

	event := l.logger.Debug().Float64("ms", durationMs(duration))
	if result != nil {
		if affected, err := result.RowsAffected(); err == nil {
			event = event.Int64("rows", affected)
		}
	}
	event.Str("args", l.formatArgs(args)).Msg(l.formatQuery(query))
}

// LogError logs a query that resulted in an error
func (l *SQLLogger) LogError(query string, args []any, duration time.Duration, err error) {
	if !l.IsEnabled() {
		return
	}

	l.logger.Debug().
		Err(err).
		Float64("ms", durationMs(duration)).
		Str("args", l.formatArgs(args)).
		Msg(l.formatQuery(query))
}

func durationMs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// formatQuery collapses whitespace so statements log on one line
func (l *SQLLogger) formatQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// formatArgs formats the query arguments for logging
func (l *SQLLogger) formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}

	var formatted []string
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			formatted = append(formatted, fmt.Sprintf(`"%s"`, v))
		case nil:
			formatted = append(formatted, "NULL")
		default:
			formatted = append(formatted, fmt.Sprintf("%v", v))
		}
	}

	return "[" + strings.Join(formatted, ", ") + "]"
}
