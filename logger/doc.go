// Package logger provides structured logging over zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers carrying structured fields. Submission IDs placed
// on a context with ContextWithSubmissionID are picked up by WithContext.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("transport")
//	log.Info("request sent", logger.Fields("path", "direct", "attempt", 2))
package logger
