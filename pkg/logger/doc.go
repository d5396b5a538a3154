// Package logger builds slog loggers with context attribute injection.
//
// Extractors registered at construction pull request-scoped values, such as
// the current tenant name, into every record logged with a context:
//
//	log := logger.New(
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//		logger.WithAttr(slog.String("service", "tenantperm")),
//	)
//	log.InfoContext(ctx, "permission granted")  // carries tenant=<name>
package logger
