// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production). Logs are written to stderr so the repair report
// on stdout stays machine readable.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json or console
//
// # Usage
//
//	log, _ := logger.New(&cfg.Log)
//	log = logger.WithSession(log, sessionID, worldPath)
//	log.Info("Scanning world...")
package logger
