// Package log provides the logging abstraction used by vdrplayer components.
//
// Components depend on the Logger interface only. The zerolog adapter is the
// production implementation; NoopLogger discards everything and is what tests
// and library callers get by default.
//
//	logger := log.NewZerologAdapter(os.Stderr, false)
//	logger.Info("playing file", log.String("file", path), log.Int("pass", 1))
//
// Sub-loggers carry fields on every message:
//
//	sessionLog := logger.With(log.String("session", id))
package log
