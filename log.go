package cbpt

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// defaultLogger is used when Config.Logger is nil. It only emits warnings
// and errors so library callers see nothing during normal runs.
var defaultLogger log.FieldLogger = newDefaultLogger()

func newDefaultLogger() log.FieldLogger {
	l := log.New()
	l.SetLevel(log.WarnLevel)
	return l.WithField("component", "cbpt")
}

// DiscardLogger returns a logger that drops everything. Useful in tests
// and benchmarks.
func DiscardLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}
