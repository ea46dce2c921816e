package batchrename

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const LevelSilent = "silent"

var (
	defaultLogger *logrus.Logger
	// logOutput is where records go whenever the logger is not silenced.
	logOutput io.Writer = os.Stderr
)

func init() {
	defaultLogger = logrus.New()
	defaultLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	defaultLogger.SetOutput(logOutput)

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	if err := ConfigureLogging(level); err != nil {
		defaultLogger.SetLevel(logrus.InfoLevel)
	}
}

// GetLogger returns the package logger.
func GetLogger() *logrus.Logger {
	return defaultLogger
}

// WithName returns a child logger tagged with a component name.
func WithName(name string) *logrus.Entry {
	return defaultLogger.WithField("component", name)
}

// ConfigureLogging sets the log level by name. "silent" discards all output
// until another level is configured, and GO_ENV=test always silences the
// logger.
func ConfigureLogging(level string) error {
	if os.Getenv("GO_ENV") == "test" || strings.EqualFold(level, LevelSilent) {
		defaultLogger.SetOutput(io.Discard)
		return nil
	}

	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}
	defaultLogger.SetLevel(parsed)
	defaultLogger.SetOutput(logOutput)
	return nil
}

// SetLogOutput redirects log output. A silenced logger stays silent until the
// next ConfigureLogging call with a real level.
func SetLogOutput(w io.Writer) {
	logOutput = w
	if defaultLogger.Out != io.Discard {
		defaultLogger.SetOutput(w)
	}
}

func parseLevel(level string) (logrus.Level, error) {
	return logrus.ParseLevel(strings.ToLower(level))
}
