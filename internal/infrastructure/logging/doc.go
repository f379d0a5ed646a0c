// Package logging provides structured logging for Chimera Core.
//
// It wraps the standard log/slog package so every component logs with the
// same format, level filtering and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("registry opened", "backend", "json")
//	logger.Error("registry write failed", "error", err)
//
// Never log secrets such as the JWT secret or broker passwords.
package logging
