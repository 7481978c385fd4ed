package telemetry

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fyrsmithlabs/notaclin/internal/config"
)

// OTLP transports.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	// Insecure disables TLS. Only loopback collectors may be reached
	// without TLS.
	Insecure bool
	// Protocol selects the OTLP transport, ProtocolGRPC or ProtocolHTTP.
	Protocol string
	// TLSSkipVerify disables certificate verification for collectors behind
	// an internal CA. Ignored when Insecure is set.
	TLSSkipVerify bool

	// SampleRate is the fraction of root traces kept, 0 to 1.
	SampleRate float64
	// MetricsEnabled turns the periodic OTLP metric export on.
	MetricsEnabled bool
	MetricsInterval config.Duration
	// ShutdownTimeout bounds Shutdown when the caller sets no deadline.
	ShutdownTimeout config.Duration
}

// NewDefaultConfig returns telemetry defaults. Telemetry is off until
// NOTACLIN_TELEMETRY_ENABLED=true or the telemetry section of config.yaml
// turns it on.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:         false,
		Endpoint:        "localhost:4317",
		ServiceName:     "notaclin",
		ServiceVersion:  "dev",
		Protocol:        ProtocolGRPC,
		Insecure:        true,
		SampleRate:      1.0,
		MetricsEnabled:  true,
		MetricsInterval: config.Duration(15 * time.Second),
		ShutdownTimeout: config.Duration(5 * time.Second),
	}
}

// FromSettings builds a telemetry config from the operator-facing settings
// in the application config. version is the build version of the binary.
func FromSettings(s config.TelemetryConfig, version string) *Config {
	cfg := NewDefaultConfig()
	cfg.Enabled = s.Enabled
	cfg.Insecure = s.Insecure
	if s.Endpoint != "" {
		cfg.Endpoint = s.Endpoint
	}
	if s.Protocol != "" {
		cfg.Protocol = s.Protocol
	}
	if s.ServiceName != "" {
		cfg.ServiceName = s.ServiceName
	}
	if version != "" {
		cfg.ServiceVersion = version
	}
	return cfg
}

// Validate checks configuration for errors. A disabled config is always
// valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required when telemetry is enabled"))
	}
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service_name is required when telemetry is enabled"))
	}
	if c.ServiceVersion == "" {
		errs = append(errs, errors.New("service_version is required when telemetry is enabled"))
	}
	if c.Endpoint != "" && c.Insecure && !isLoopback(c.Endpoint) {
		errs = append(errs, fmt.Errorf("insecure connections to remote endpoints are not allowed: %s", c.Endpoint))
	}
	switch c.Protocol {
	case "", ProtocolGRPC, ProtocolHTTP:
	default:
		errs = append(errs, fmt.Errorf("protocol must be %q or %q, got %q", ProtocolGRPC, ProtocolHTTP, c.Protocol))
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("sample rate must be between 0 and 1, got %v", c.SampleRate))
	}
	if c.MetricsEnabled && c.MetricsInterval.Duration() <= 0 {
		errs = append(errs, errors.New("metrics interval must be positive when metrics are enabled"))
	}
	if c.ShutdownTimeout.Duration() <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}

	return errors.Join(errs...)
}

// endpointHost strips any scheme, path and port from endpoint.
func endpointHost(endpoint string) string {
	host := endpoint
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}

// isLoopback reports whether endpoint names this machine.
func isLoopback(endpoint string) bool {
	host := endpointHost(endpoint)
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	// Unbracketed IPv6 with a port, e.g. ::1:4317.
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		if ip := net.ParseIP(host[:i]); ip != nil {
			return ip.IsLoopback()
		}
	}
	return false
}

// stripScheme returns endpoint without an http:// or https:// prefix. The
// OTLP HTTP exporters take host:port.
func stripScheme(endpoint string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(endpoint, scheme) {
			return endpoint[len(scheme):]
		}
	}
	return endpoint
}
