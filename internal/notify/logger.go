package notify

import "log"

// Logger is the logging interface the pipeline packages depend on. The
// default implementation wraps the standard library logger; tests use
// NoopLogger.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// StdLogger implements Logger on top of the standard library log package.
type StdLogger struct{}

// NewStdLogger returns a ready to use StdLogger.
func NewStdLogger() StdLogger { return StdLogger{} }

func (StdLogger) Debugf(format string, args ...interface{}) { log.Printf("[DEBUG] "+format, args...) }
func (StdLogger) Infof(format string, args ...interface{})  { log.Printf("[INFO] "+format, args...) }
func (StdLogger) Warnf(format string, args ...interface{})  { log.Printf("[WARN] "+format, args...) }
func (StdLogger) Errorf(format string, args ...interface{}) { log.Printf("[ERROR] "+format, args...) }

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Debugf(string, ...interface{}) {}
func (NoopLogger) Infof(string, ...interface{})  {}
func (NoopLogger) Warnf(string, ...interface{})  {}
func (NoopLogger) Errorf(string, ...interface{}) {}
