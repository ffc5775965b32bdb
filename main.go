package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"diagserve/config"
	dhttp "diagserve/http"
	"diagserve/logging"
	"diagserve/ml"
	"diagserve/predict"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	// 2. Load metadata and model; nothing is served on failure
	svc, err := predict.Bootstrap(predict.Options{
		ModelType:    cfg.ML.ModelType,
		ModelPath:    cfg.ML.ModelPath,
		FeaturesPath: cfg.ML.FeaturesPath,
		ClassesPath:  cfg.ML.ClassesPath,
		CacheSize:    cfg.ML.CacheSize,
	})
	if err != nil {
		var serr *predict.StartupError
		if errors.As(err, &serr) {
			logger.Error("startup failed", zap.String("component", serr.Component), zap.Error(serr.Err))
		}
		return err
	}
	health := svc.Health()
	logger.Info("model loaded",
		zap.String("model_type", cfg.ML.ModelType),
		zap.Int("n_features", health.FeatureCount),
		zap.Strings("classes", health.Classes))

	// 3. Serve until a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = serve(ctx, cfg, svc, logger)
	logger.Info("exiting")
	return err
}

// serve runs the API until ctx is done. Only a server failure ends it early;
// the artifact watcher never does.
func serve(ctx context.Context, cfg *config.Config, svc *predict.Service, logger *zap.Logger) error {
	server := dhttp.NewServer(cfg.HTTP, svc, logger)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		return server.Stop()
	})
	if cfg.ML.WatchArtifacts {
		g.Go(func() error {
			return ml.WatchArtifacts(ctx, logger, cfg.ML.ModelPath, cfg.ML.FeaturesPath, cfg.ML.ClassesPath)
		})
	}
	return g.Wait()
}
