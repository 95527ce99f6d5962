package observe

import (
	"errors"
	"fmt"
	"slices"
)

// Configuration errors.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample_pct must be within [0, 1]")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
	ErrInvalidLogFormat       = errors.New("observe: invalid log format")
)

// Config selects the telemetry backends for the gateway.
type Config struct {
	ServiceName string        `yaml:"service_name"`
	Version     string        `yaml:"version"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"` // otlp|stdout|none
	Endpoint  string  `yaml:"endpoint"`
	Insecure  bool    `yaml:"insecure"`
	SamplePct float64 `yaml:"sample_pct"`
}

// MetricsConfig configures metric export. The prometheus exporter is
// scraped through the gateway's /internal/metrics route.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // otlp|prometheus|stdout|none
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// LoggingConfig configures the Logger backend.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`  // debug|info|warn|error
	Format  string `yaml:"format"` // json|zap
}

// Accepted option values. The empty string selects the default.
var (
	tracingExporters = []string{"", "none", "stdout", "otlp"}
	metricsExporters = []string{"", "none", "stdout", "otlp", "prometheus"}
	logLevels        = []string{"", "debug", "info", "warn", "error"}
	logFormats       = []string{"", "json", "zap"}
)

// Validate checks the enabled sections only.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if t := c.Tracing; t.Enabled {
		if err := oneOf(ErrInvalidTracingExporter, t.Exporter, tracingExporters); err != nil {
			return err
		}
		if t.SamplePct < 0 || t.SamplePct > 1 {
			return fmt.Errorf("%w: got %g", ErrInvalidSamplePct, t.SamplePct)
		}
	}
	if m := c.Metrics; m.Enabled {
		if err := oneOf(ErrInvalidMetricsExporter, m.Exporter, metricsExporters); err != nil {
			return err
		}
	}
	if l := c.Logging; l.Enabled {
		if err := oneOf(ErrInvalidLogLevel, l.Level, logLevels); err != nil {
			return err
		}
		if err := oneOf(ErrInvalidLogFormat, l.Format, logFormats); err != nil {
			return err
		}
	}
	return nil
}

func oneOf(sentinel error, v string, allowed []string) error {
	if slices.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("%w: %q", sentinel, v)
}
