package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"overlay/config"
	"overlay/internal/infra/gtfs"
	logs "overlay/internal/infra/log"
	"overlay/internal/infra/persistence/sqlite"
	"overlay/internal/infra/traffic"
	"overlay/internal/usecase/impl"
)

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	cache  *traffic.Cache
	source *traffic.Source
}

func newApp(flags commonFlags) (*app, error) {
	cfg, err := config.New(*flags.env, flags.searchPaths()...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	logger, err := logs.New(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logger")
	}

	client := traffic.NewClient(cfg.Traffic, logger)
	cache := traffic.NewCache(cfg.Traffic.CacheDir, cfg.Traffic.CacheFile)

	return &app{
		cfg:    cfg,
		logger: logger,
		cache:  cache,
		source: traffic.NewSource(client, cache, logger),
	}, nil
}

func runFetch(ctx context.Context, flags commonFlags) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}

	if err := a.source.EnsureCached(ctx); err != nil {
		return errors.Wrap(err, "failed to fetch traffic dataset")
	}

	return nil
}

func runMatch(ctx context.Context, flags commonFlags) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}

	return a.match(ctx)
}

func runAll(ctx context.Context, flags commonFlags) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}

	if err := a.source.EnsureCached(ctx); err != nil {
		return errors.Wrap(err, "failed to fetch traffic dataset")
	}

	return a.match(ctx)
}

func (a *app) match(ctx context.Context) error {
	db, err := sqlite.New(a.cfg, a.logger)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}

	loader := gtfs.NewLoader(a.cfg.GTFS.Dir, a.logger)
	repo := sqlite.NewRouteTrafficRepository(db)

	service := impl.NewMatchingService(a.source, loader, repo, a.cfg, a.logger)

	summary, err := service.Run(ctx)
	if err != nil {
		return errors.Wrap(err, "matching pipeline failed")
	}

	a.logger.Info("route_traffic rebuilt",
		slog.String("database", a.cfg.Database.Path),
		slog.Int("routes", summary.Routes),
	)

	return nil
}

func runValidate(flags commonFlags) error {
	a, err := newApp(flags)
	if err != nil {
		return err
	}

	fmt.Println("Validating configured inputs...")
	fmt.Println("")

	ok := true

	if checkFile(a.cache.Path()) {
		fmt.Printf("✅ traffic cache: %s\n", a.cache.Path())
	} else {
		fmt.Printf("⚠️  traffic cache missing (will download on run): %s\n", a.cache.Path())
	}

	for _, name := range []string{"trips.txt", "shapes.txt"} {
		path := filepath.Join(a.cfg.GTFS.Dir, name)
		if checkFile(path) {
			fmt.Printf("✅ GTFS %s: %s\n", name, path)
		} else {
			fmt.Printf("❌ GTFS %s missing: %s\n", name, path)

			ok = false
		}
	}

	fmt.Println("")

	if !ok {
		return errors.New("validation failed, required inputs are missing")
	}

	fmt.Println("All required inputs are present.")

	return nil
}

func checkFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
