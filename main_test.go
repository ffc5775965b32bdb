package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"diagserve/config"
	"diagserve/predict"
)

func TestServeSurvivesWatcherSetupFailure(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Port = 0
	svc, err := predict.Bootstrap(predict.Options{
		ModelType:    cfg.ML.ModelType,
		ModelPath:    cfg.ML.ModelPath,
		FeaturesPath: cfg.ML.FeaturesPath,
		ClassesPath:  cfg.ML.ClassesPath,
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	// artifacts in a directory that does not exist cannot be watched
	missing := filepath.Join(t.TempDir(), "gone")
	cfg.ML.WatchArtifacts = true
	cfg.ML.ModelPath = filepath.Join(missing, "model.json")
	cfg.ML.FeaturesPath = filepath.Join(missing, "features_metadata.json")
	cfg.ML.ClassesPath = filepath.Join(missing, "class_names.json")

	core, logs := observer.New(zap.WarnLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := serve(ctx, cfg, svc, zap.New(core)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 250*time.Millisecond {
		t.Fatalf("server stopped after %v, before its context was done", elapsed)
	}
	if logs.FilterMessage("artifact watcher disabled").Len() != 1 {
		t.Fatalf("expected the watcher failure to be logged, got %v", logs.All())
	}
}
