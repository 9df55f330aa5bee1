// Package logging provides the leveled logger used across cliphub.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (pipeline state transitions)
//   - INFO: General operational messages
//   - WARN: Warning conditions (probe failures, dropped notifications)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true. Components obtain a tagged logger with
// For, e.g. logging.For("pipeline").
package logging
