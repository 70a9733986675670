package hipporag

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewJSONLogger builds a logrus logger with JSON output, meant to be
// created once at process entry and injected via WithLogger.
func NewJSONLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	l.SetOutput(out)
	l.SetLevel(level)
	return l
}
