package logger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		if err := Init("debug", env); err != nil {
			t.Fatalf("Init(%s) failed: %v", env, err)
		}
		if Get() == nil {
			t.Fatalf("Expected a logger after Init(%s)", env)
		}
	}
	if err := Init("bogus", "production"); err != nil {
		t.Fatalf("Unknown level should fall back to info, got %v", err)
	}
	if !Get().Core().Enabled(0) {
		t.Error("Expected info level to be enabled")
	}
}

func TestRunID(t *testing.T) {
	id := NewRunID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("Expected a uuid run id, got %q: %v", id, err)
	}
	if NewRunID() == id {
		t.Error("Expected distinct run ids")
	}

	ctx := context.Background()
	if GetRunID(ctx) != "" {
		t.Error("Expected empty run id on a bare context")
	}
	ctx = WithRunID(ctx, id)
	if GetRunID(ctx) != id {
		t.Errorf("Expected run id %q, got %q", id, GetRunID(ctx))
	}
	if WithContext(WithSymbol(ctx, "ABC")) == nil {
		t.Error("Expected a logger from WithContext")
	}
}

func TestInit_ParsesLevel(t *testing.T) {
	if err := Init("warn", "production"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if Get().Core().Enabled(zapcore.InfoLevel) {
		t.Error("Expected info to be disabled at warn level")
	}
	if !Get().Core().Enabled(zapcore.WarnLevel) {
		t.Error("Expected warn to be enabled")
	}
}
