// Package telemetry starts the OpenTelemetry tracer and meter providers for
// notaclind and exports them over OTLP (gRPC or HTTP/protobuf).
//
// Telemetry is off by default. When the collector cannot be reached at
// startup the instance reports itself degraded and the analyzer keeps
// working against the no-op globals:
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
