// Package logger provides structured logging for flowtorch using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("composer")
//	log.Info("artifact composed", logger.Fields("terminal", id, "nodes", len(path)))
package logger
