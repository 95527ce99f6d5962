package observe

import (
	"context"
	"errors"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "minimal", cfg: Config{ServiceName: "infergate"}},
		{name: "missing service", cfg: Config{}, wantErr: ErrMissingServiceName},
		{
			name:    "bad tracing exporter",
			cfg:     Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "jaeger"}},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name:    "bad sample pct",
			cfg:     Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.5}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "bad metrics exporter",
			cfg:     Config{ServiceName: "s", Metrics: MetricsConfig{Enabled: true, Exporter: "statsd"}},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name:    "bad log level",
			cfg:     Config{ServiceName: "s", Logging: LoggingConfig{Enabled: true, Level: "trace"}},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "bad log format",
			cfg:     Config{ServiceName: "s", Logging: LoggingConfig{Enabled: true, Format: "xml"}},
			wantErr: ErrInvalidLogFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "all disabled", cfg: Config{ServiceName: "infergate"}},
		{name: "json logging with metrics", cfg: Config{
			ServiceName: "infergate",
			Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
			Logging:     LoggingConfig{Enabled: true, Level: "warn"},
		}},
		{name: "zap logging with tracing", cfg: Config{
			ServiceName: "infergate",
			Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
			Logging:     LoggingConfig{Enabled: true, Format: "zap"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			obs, err := NewObserver(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("NewObserver() error = %v", err)
			}
			if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
				t.Fatal("observer returned nil primitives")
			}
			mw, err := MiddlewareFromObserver(obs)
			if err != nil {
				t.Fatalf("MiddlewareFromObserver() error = %v", err)
			}
			if mw.Metrics() == nil {
				t.Error("middleware has no metrics")
			}
			if err := obs.Shutdown(ctx); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}

	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("MiddlewareFromObserver(nil) error = %v", err)
	}
}
