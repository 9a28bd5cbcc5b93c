// Package a2log is the structured logger used across the CLI pipeline and
// the LSP servers. It wraps a package-level logrus.Logger the way the
// teacher's server packages wrap the standard log package: a small set of
// call sites, each tagged with the component that is speaking.
package a2log

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the base logger's verbosity. Valid names are the
// logrus level names: "panic", "fatal", "error", "warn", "info", "debug",
// "trace".
func SetLevel(name string) {
	if lvl, err := logrus.ParseLevel(name); err == nil {
		base.SetLevel(lvl)
	}
}

// For returns a component-scoped entry, e.g. For("diskfs.prodos") or
// For("lsp.merlin").
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}
