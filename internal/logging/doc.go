// Package logging provides structured logging for memberqa.
//
// Logger wraps Zap with:
//   - a Trace level (-2, below Debug)
//   - stdout output plus an optional OpenTelemetry log bridge
//   - context field injection (trace_id, span_id, request.id, member)
//   - secret redaction by field name and value pattern
//   - per-level sampling (errors are never sampled)
//
// Build a logger from the operator-facing settings:
//
//	cfg, err := logging.FromAppConfig(appCfg.Logging, appCfg.Observability.ServiceName)
//	logger, err := logging.NewLogger(cfg, otelLoggerProvider)
//	defer logger.Sync()
//
// Request handlers attach correlation data to the context:
//
//	ctx = logging.WithRequestID(ctx, c.Response().Header().Get(echo.HeaderXRequestID))
//	ctx = logging.WithMember(ctx, "Layla Kawaguchi")
//	logger.Info(ctx, "question answered", zap.Int("context_size", n))
//
// Library packages (detect, vectorstore, index, retrieval, messages) take a
// plain *zap.Logger; pass Logger.Underlying() to them.
//
// In tests use TestLogger:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "index built", zap.Int("entries", 3))
//	tl.AssertLogged(t, zapcore.InfoLevel, "index built")
//	tl.AssertNoSecrets(t)
package logging
