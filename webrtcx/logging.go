package webrtcx

import (
	"github.com/pion/logging"
	"github.com/sirupsen/logrus"
)

// logrusFactory adapts a logrus.Entry into pion's logging.LoggerFactory, the
// same seam babble leaves unused (src/net/webrtc_stream_layer.go logs
// ICE state changes via its own *logrus.Entry rather than pion's logger).
// Here we actually wire pion's internal logging through logrus so that ICE/
// DTLS/SCTP diagnostics land in the same log stream as the rest of the
// engine.
type logrusFactory struct {
	entry *logrus.Entry
}

// NewLoggerFactory returns a pion logging.LoggerFactory backed by entry.
func NewLoggerFactory(entry *logrus.Entry) logging.LoggerFactory {
	return &logrusFactory{entry: entry}
}

func (f *logrusFactory) NewLogger(scope string) logging.LeveledLogger {
	return &logrusLeveledLogger{entry: f.entry.WithField("scope", scope)}
}

type logrusLeveledLogger struct {
	entry *logrus.Entry
}

func (l *logrusLeveledLogger) Trace(msg string)                          { l.entry.Debug(msg) }
func (l *logrusLeveledLogger) Tracef(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLeveledLogger) Debug(msg string)                          { l.entry.Debug(msg) }
func (l *logrusLeveledLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLeveledLogger) Info(msg string)                          { l.entry.Info(msg) }
func (l *logrusLeveledLogger) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }
func (l *logrusLeveledLogger) Warn(msg string)                          { l.entry.Warn(msg) }
func (l *logrusLeveledLogger) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }
func (l *logrusLeveledLogger) Error(msg string)                          { l.entry.Error(msg) }
func (l *logrusLeveledLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
