package ahadi

import "github.com/yanun0323/logs"

// Logger is the logging surface used by the client. Implementations must be
// safe for concurrent use.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NewLogger returns a Logger writing through github.com/yanun0323/logs.
func NewLogger() Logger { return logsLogger{} }

// NopLogger discards everything. It is the client default.
func NopLogger() Logger { return nopLogger{} }

type logsLogger struct{}

func (logsLogger) Debugf(format string, args ...any) { logs.Debugf(format, args...) }
func (logsLogger) Infof(format string, args ...any)  { logs.Infof(format, args...) }
func (logsLogger) Warnf(format string, args ...any)  { logs.Warnf(format, args...) }
func (logsLogger) Errorf(format string, args ...any) { logs.Errorf(format, args...) }

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
