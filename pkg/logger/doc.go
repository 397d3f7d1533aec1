// Package logger builds the *slog.Logger used by every spool component and
// provides attribute helpers that keep key names consistent across them.
//
// New applies functional options on top of production defaults (JSON, INFO,
// stderr):
//
//	log := logger.New(
//	    logger.WithFormat(logger.FormatText),
//	    logger.WithLevelName(os.Getenv("LOG_LEVEL")),
//	    logger.WithService("spool"),
//	)
//	logger.SetAsDefault(log)
//
//	log.ErrorContext(ctx, "claimed record could not be removed",
//	    logger.Record(name),
//	    logger.Error(err),
//	)
//
// ContextExtractor callbacks registered with WithContextExtractors or
// WithContextValue run on every record, so values stored in a context (for
// example the slot a worker holds) appear without being passed explicitly.
//
// Error returns an empty attribute for a nil error, so it can be passed
// unconditionally.
package logger
