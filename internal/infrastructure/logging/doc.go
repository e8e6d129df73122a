// Package logging configures structured logging for the engine.
//
// It is a thin layer over log/slog: New reads level, format and output
// from config.LoggingConfig and stamps every record with service and
// version attributes. JSON output is the default; text is available
// for local development.
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "json"   # json, text
//	  output: "stdout" # stdout, stderr
//
// One configured *Logger, narrowed per component with With, feeds the
// whole engine:
//
//	log := logging.New(cfg.Logging, version)
//	mirror.SetLogger(log.With("component", "mirror"))
//
// Never log credentials or broker passwords; log key prefixes or
// lengths if a trace is needed.
package logging
