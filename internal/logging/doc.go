// Package logging wraps zap with context-aware helpers for mdsearch.
//
// Loggers are built from the [logging] section of the application config:
//
//	lcfg, err := logging.FromAppConfig(cfg.Logging, cfg.Observability.ServiceName)
//	logger, err := logging.NewLogger(lcfg, tel.LoggerProvider())
//	defer logger.Sync()
//
// Every entry written through the context methods picks up the trace and
// span IDs of the active OpenTelemetry span, plus the HTTP request ID when
// the server middleware has stored one:
//
//	logger.Info(ctx, "document ingested", zap.Int("records", n))
//
// Output can go to stdout, to the OpenTelemetry log pipeline through the
// otelzap bridge, or both. Field names such as api_key and authorization are
// redacted by the encoder, and config.Secret values should be logged with
// the Secret field helper. Entries below error level are sampled; errors
// are never dropped.
//
// Packages that take a plain *zap.Logger receive Logger.Underlying().
package logging
