package linarith

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// log is the package diagnostic sink. Tracing is level-gated off by
// default; hosts that want to observe projection internals install their
// own entry via SetLogger.
var log = newDefaultLogger()

func newDefaultLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l.WithField("component", "linarith")
}

// SetLogger redirects package diagnostics to the given entry.
func SetLogger(entry *logrus.Entry) {
	if entry != nil {
		log = entry
	}
}

// Debug enables internal consistency checks on the projection and
// optimization entry points: input literals are verified true in the
// supplied model, and lifted output literals are verified true as well.
// Violations panic. Off by default.
var Debug = false

func debugAssert(cond bool, format string, args ...interface{}) {
	if Debug && !cond {
		panic("linarith: " + fmt.Sprintf(format, args...))
	}
}
