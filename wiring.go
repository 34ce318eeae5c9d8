package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/withObsrvr/medallion-warehouse/config"
	"github.com/withObsrvr/medallion-warehouse/feed"
	"github.com/withObsrvr/medallion-warehouse/logging"
	"github.com/withObsrvr/medallion-warehouse/schema"
	"github.com/withObsrvr/medallion-warehouse/store"
)

// loadConfig reads and validates the configuration and builds the logger.
func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Service.LogLevel, cfg.Service.LogFormat, cfg.Service.Name)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func layout(cfg *config.Config) store.Layout {
	return store.Layout{
		schema.Bronze: cfg.Layers.Bronze,
		schema.Silver: cfg.Layers.Silver,
		schema.Gold:   cfg.Layers.Gold,
		schema.Audit:  cfg.Layers.Audit,
	}
}

// openStore opens the configured warehouse store.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case "duckdb":
		lake := cfg.Store.DuckLake
		return store.NewDuckDB(ctx, store.DuckDBOptions{
			Path: cfg.Store.DuckDBPath,
			DuckLake: store.DuckLakeOptions{
				CatalogPath:    lake.CatalogPath,
				CatalogName:    lake.CatalogName,
				DataPath:       lake.DataPath,
				MetadataSchema: lake.MetadataSchema,
				S3: store.S3Options{
					KeyID:    lake.AWSAccessKeyID,
					Secret:   lake.AWSSecretAccessKey,
					Region:   lake.AWSRegion,
					Endpoint: lake.AWSEndpoint,
				},
			},
		}, layout(cfg), logger.Named("duckdb"))
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.PostgresDSN, layout(cfg))
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openSource opens the configured feed source. The returned func releases
// it.
func openSource(ctx context.Context, cfg *config.Config) (feed.Source, func(), error) {
	switch cfg.Feeds.Source {
	case "csv":
		src := feed.NewCSVDir(cfg.Feeds.Dir, cfg.Feeds.Files)
		src.Delimiter = []rune(cfg.Feeds.Delimiter)[0]
		return src, func() {}, nil
	case "postgres":
		src, err := feed.NewPostgres(ctx, cfg.Feeds.PostgresDSN, cfg.Feeds.PostgresSchema, cfg.Feeds.Tables)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown feed source %q", cfg.Feeds.Source)
	}
}
