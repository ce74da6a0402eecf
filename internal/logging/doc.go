// Package logging provides structured logging for feedview.
//
// This package wraps Go's log/slog. The terminal client owns stdout and
// stderr while it runs, so browse sessions log JSON lines to a file in the
// state directory; the headless and server commands log text to stderr.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/state", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("view loaded", "attempts", 1)
//
// # Context Propagation
//
// Child loggers carry persistent attributes:
//
//	navLogger := logger.WithNavigation(id).WithRoute("/news").WithView("news")
//	navLogger.Info("transition complete")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"transition complete","nav_id":"...","path":"/news","view":"news"}
//
// # Testing
//
// Use [NopLogger] to discard all output.
package logging
