package main

import (
	"context"

	"go.uber.org/zap/zapcore"

	"github.com/flexicli/flexicli/internal/config"
	"github.com/flexicli/flexicli/internal/logging"
	"github.com/flexicli/flexicli/internal/telemetry"
)

// buildLogging constructs the telemetry provider and structured logger for
// the process. Telemetry is opt-in (OTEL_ENABLE / cfg.Observability) and its
// own Telemetry type degrades to no-op providers when disabled or when the
// collector endpoint is unreachable, so a misconfigured OTEL_ENDPOINT never
// blocks the CLI. The *logging.Logger wraps zap with field-redaction and
// level-aware sampling; every other component is handed its plain
// *zap.Logger via Underlying() so this is the only place in the codebase
// that deals with the richer context-aware logging API directly.
func buildLogging(ctx context.Context, cfg *config.Config) (*logging.Logger, *telemetry.Telemetry, error) {
	telCfg := telemetry.NewDefaultConfig()
	telCfg.Enabled = cfg.Observability.EnableTelemetry
	telCfg.ServiceName = cfg.Observability.ServiceName
	if cfg.Observability.OTLPEndpoint != "" {
		telCfg.Endpoint = cfg.Observability.OTLPEndpoint
	}
	if cfg.Observability.OTLPProtocol != "" {
		telCfg.Protocol = cfg.Observability.OTLPProtocol
	}
	telCfg.Insecure = cfg.Observability.OTLPInsecure
	telCfg.TLSSkipVerify = cfg.Observability.OTLPTLSSkipVerify

	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return nil, nil, err
	}

	logCfg := logging.NewDefaultConfig()
	if cfg.Observability.EnableTelemetry {
		logCfg.Level = zapcore.DebugLevel
		logCfg.Output.OTEL = true
	}

	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, nil, err
	}
	return logger, tel, nil
}
