package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Label values and exporter names.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// ServiceName is the default OpenTelemetry service name.
	ServiceName = "marvin-mcp"

	// ServiceMarvin labels audit records for upstream calls.
	ServiceMarvin = "marvin"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// DefaultMetricInterval is the export interval for push-based exporters.
	DefaultMetricInterval = 10 * time.Second

	defaultSamplingRate = 0.1
)

// Config selects exporters and labels for marvin-mcp telemetry.
//
// Telemetry never carries API tokens. Sessions appear only as fingerprints,
// and only in audit records unless DetailedLabels is set.
type Config struct {
	ServiceName       string
	ServiceVersion    string
	ServiceInstanceID string

	// K8sNamespace and K8sPodName are resource attributes for hosted deployments.
	K8sNamespace string
	K8sPodName   string

	// Enabled false turns every instrument into a no-op and disables the
	// metrics server.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without a scheme.
	OTLPEndpoint string
	OTLPInsecure bool

	// TraceSamplingRate is the ratio of sampled root spans.
	TraceSamplingRate float64

	// DetailedLabels adds the session fingerprint to tool metrics. Every
	// caller session becomes its own series, so keep it off in hosted mode.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls tool_executed / tool_failed records.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludeArguments records argument names. Values such as task titles
	// and notes are never logged.
	IncludeArguments bool
}

// DefaultConfig reads the configuration from the process environment.
func DefaultConfig() Config {
	return ConfigFromEnv(os.LookupEnv)
}

// ConfigFromEnv builds a Config from variables read through lookup.
// Unparseable booleans and numbers fall back to their defaults.
func ConfigFromEnv(lookup func(string) (string, bool)) Config {
	env := envReader(lookup)
	return Config{
		ServiceName:       env.str("OTEL_SERVICE_NAME", ServiceName),
		ServiceVersion:    "unknown",
		ServiceInstanceID: env.str("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:      env.str("K8S_NAMESPACE", env.str("POD_NAMESPACE", "")),
		K8sPodName:        env.str("K8S_POD_NAME", env.str("HOSTNAME", "")),
		Enabled:           env.boolean("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   strings.ToLower(env.str("METRICS_EXPORTER", ExporterPrometheus)),
		TracingExporter:   strings.ToLower(env.str("TRACING_EXPORTER", ExporterNone)),
		OTLPEndpoint:      env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      env.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: env.float("OTEL_TRACES_SAMPLER_ARG", defaultSamplingRate),
		DetailedLabels:    env.boolean("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:          env.boolean("AUDIT_LOGGING_ENABLED", true),
			IncludeArguments: env.boolean("AUDIT_LOGGING_INCLUDE_ARGUMENTS", false),
		},
	}
}

// Validate rejects exporter combinations the provider cannot build.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	usesOTLP := c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP
	if usesOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using an OTLP exporter; set OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if usesOTLP && strings.Contains(c.OTLPEndpoint, "://") {
		return fmt.Errorf("OTLP endpoint must be host:port without a scheme, got %q", c.OTLPEndpoint)
	}

	return nil
}

// envReader reads typed values; empty variables count as unset.
type envReader func(string) (string, bool)

func (e envReader) str(key, fallback string) string {
	if v, ok := e(key); ok && v != "" {
		return v
	}
	return fallback
}

func (e envReader) boolean(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(e.str(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return parsed
}

func (e envReader) float(key string, fallback float64) float64 {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
