package observe

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := zapobserver.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core)).WithOperation(Operation{Group: "ts-model", Name: "forecast"})

	ctx := WithRequestID(context.Background(), "req-42")
	logger.Error(ctx, "upstream failed",
		Field{Key: "status", Value: 503},
		Field{Key: "secret", Value: "hunter2"},
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.ErrorLevel {
		t.Errorf("level = %v, want error", e.Level)
	}
	fields := e.ContextMap()
	if fields["operation"] != "ts-model.forecast" {
		t.Errorf("operation = %v", fields["operation"])
	}
	if fields["request_id"] != "req-42" {
		t.Errorf("request_id = %v", fields["request_id"])
	}
	if fields["secret"] != "[REDACTED]" {
		t.Errorf("secret = %v, want [REDACTED]", fields["secret"])
	}
}

func TestNewZapProduction(t *testing.T) {
	if _, err := NewZapProduction("debug"); err != nil {
		t.Errorf("NewZapProduction(debug) error = %v", err)
	}
	if _, err := NewZapProduction("chatty"); err == nil {
		t.Error("NewZapProduction(chatty) should fail")
	}
}

func TestNewZapLogger_Nil(t *testing.T) {
	NewZapLogger(nil).Info(context.Background(), "dropped")
}
