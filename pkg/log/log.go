package log

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}
}

var output io.Writer = os.Stdout

// SetOutput changes the writer used by loggers created afterwards
func SetOutput(w io.Writer) {
	output = w
	defaultLogger = New("eventhawk")
}

// SetGlobalLevel sets the minimum level for all loggers
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// SetLevel parses a level name such as "debug" or "INFO"
func SetLevel(name string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return err
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// New returns a named logger with timestamp and caller information
func New(name string) zerolog.Logger {
	return zerolog.New(output).
		With().
		Timestamp().
		Str("logger", name).
		Caller().
		Logger()
}

// Nop returns a disabled logger
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

var defaultLogger = New("eventhawk")

func Debugf(format string, args ...any) {
	defaultLogger.Debug().CallerSkipFrame(1).Msgf(format, args...)
}

func Infof(format string, args ...any) {
	defaultLogger.Info().CallerSkipFrame(1).Msgf(format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.Warn().CallerSkipFrame(1).Msgf(format, args...)
}

func Errorf(format string, args ...any) {
	defaultLogger.Error().CallerSkipFrame(1).Msgf(format, args...)
}

func Fatalf(format string, args ...any) {
	// zerolog calls os.Exit(1) once the event is written
	defaultLogger.Fatal().CallerSkipFrame(1).Msgf(format, args...)
}
