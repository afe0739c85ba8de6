// Package logger configures the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Setup applies level and format to the standard logrus logger.  Unknown
// levels fall back to info; any format other than "text" is JSON.
func Setup(level, format string) {
	SetupWith(logrus.StandardLogger(), os.Stdout, level, format)
}

// SetupWith configures l to write to out.
func SetupWith(l *logrus.Logger, out io.Writer, level, format string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	l.SetOutput(out)
	l.SetLevel(lvl)
}
