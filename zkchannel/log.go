package zkchannel

import "go.uber.org/zap"

// logger is the package-level lifecycle logger, nil by default so pure
// transitions and unit tests never require one. Mirrors lnwallet's
// package-scoped walletLog, minus the btclog indirection: spec.md §7
// forbids the core from logging proof contents or secrets, so every call
// site logs only which transition ran, plus at most the state index, phase,
// or unlink flag.
var logger *zap.SugaredLogger

// SetLogger installs the ambient lifecycle logger. Passing nil disables
// logging.
func SetLogger(l *zap.SugaredLogger) {
	logger = l
}

// logClosure defers a potentially expensive dump until the logger actually
// formats it, the same trick lnwallet/channel.go plays with
// newLogClosure+spew.Sdump around walletLog.Debugf.
type logClosure func() string

func (c logClosure) String() string { return c() }

func newLogClosure(f func() string) logClosure { return logClosure(f) }
