package services_test

import (
	"context"
	"testing"

	"tidyfin/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithFile(ctx, "/in/Movie.2010.mkv")
	ctx = services.WithStage(ctx, "plan")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if file, ok := services.FileFromContext(ctx); !ok || file != "/in/Movie.2010.mkv" {
		t.Fatalf("unexpected file: %v %v", file, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "plan" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithFile(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id")
	}
	if _, ok := services.FileFromContext(ctx); ok {
		t.Fatal("expected no file")
	}
}
