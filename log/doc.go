// Package log provides the leveled, printf-style Logger used by the agent graph,
// the ingest pipeline and the command line.
//
// The default implementation wraps github.com/kataras/golog:
//
//	logger := log.NewDefaultLogger(log.LogLevelInfo)
//	logger.Info("ingested %d chunks into %s", n, collection)
//
// An existing golog instance can be wrapped directly:
//
//	glogger := golog.New()
//	glogger.SetPrefix("[agentapis] ")
//	logger := log.NewGologLogger(glogger)
//	logger.SetLevel(log.LogLevelDebug)
//
// Components that accept a Logger treat nil as NoopLogger.
package log
