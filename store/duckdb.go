package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// DuckLakeOptions attaches a DuckLake catalog. When CatalogPath is empty the
// layers live directly in the DuckDB database.
type DuckLakeOptions struct {
	CatalogPath    string
	CatalogName    string
	DataPath       string
	MetadataSchema string

	S3 S3Options
}

// S3Options configures the S3 secret used for DuckLake data files.
type S3Options struct {
	KeyID    string
	Secret   string
	Region   string
	Endpoint string
}

// DuckDBOptions configures a DuckDB store. An empty Path opens an in-memory
// database.
type DuckDBOptions struct {
	Path     string
	DuckLake DuckLakeOptions
}

// DuckDB is a Store backed by DuckDB, optionally with a DuckLake catalog.
type DuckDB struct {
	sqlStore
	opts   DuckDBOptions
	logger *zap.Logger
}

// NewDuckDB opens the database and attaches the DuckLake catalog if one is
// configured.
func NewDuckDB(ctx context.Context, opts DuckDBOptions, layout Layout, logger *zap.Logger) (*DuckDB, error) {
	db, err := sql.Open("duckdb", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	d := &DuckDB{
		sqlStore: sqlStore{db: db, layout: layout, dialect: duckDialect{}},
		opts:     opts,
		logger:   logger,
	}

	if opts.DuckLake.CatalogPath != "" {
		if err := d.attachDuckLake(ctx); err != nil {
			db.Close()
			return nil, err
		}
		d.catalog = opts.DuckLake.CatalogName
	}

	logger.Info("DuckDB initialized",
		zap.String("path", opts.Path),
		zap.String("catalog", d.catalog))
	return d, nil
}

func (d *DuckDB) attachDuckLake(ctx context.Context) error {
	lake := d.opts.DuckLake

	for _, ext := range []string{"ducklake", "httpfs"} {
		d.logger.Debug("Loading extension", zap.String("extension", ext))
		if _, err := d.db.ExecContext(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("failed to install %s extension: %w", ext, err)
		}
		if _, err := d.db.ExecContext(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load %s extension: %w", ext, err)
		}
	}

	if lake.S3.KeyID != "" {
		if err := d.configureS3(ctx); err != nil {
			return fmt.Errorf("failed to configure S3: %w", err)
		}
	}

	_, err := d.db.ExecContext(ctx, attachSQL(lake, false))
	if err == nil {
		d.logger.Info("Attached existing DuckLake catalog", zap.String("catalog", lake.CatalogName))
		return nil
	}

	msg := err.Error()
	if !strings.Contains(msg, "database does not exist") && !strings.Contains(msg, "Cannot open database") {
		return fmt.Errorf("failed to attach DuckLake catalog: %w", err)
	}

	d.logger.Info("DuckLake catalog does not exist, creating new catalog", zap.String("catalog", lake.CatalogName))
	if _, err := d.db.ExecContext(ctx, attachSQL(lake, true)); err != nil {
		return fmt.Errorf("failed to create and attach DuckLake catalog: %w", err)
	}
	return nil
}

func attachSQL(lake DuckLakeOptions, create bool) string {
	var opts []string
	if create {
		opts = append(opts, "TYPE ducklake")
	}
	if lake.DataPath != "" {
		opts = append(opts, fmt.Sprintf("DATA_PATH %s", literal(lake.DataPath)))
	}
	if lake.MetadataSchema != "" {
		opts = append(opts, fmt.Sprintf("METADATA_SCHEMA %s", literal(lake.MetadataSchema)))
	}

	q := fmt.Sprintf("ATTACH %s AS %s", literal(lake.CatalogPath), quote(lake.CatalogName))
	if len(opts) > 0 {
		q += " (" + strings.Join(opts, ", ") + ")"
	}
	return q
}

func (d *DuckDB) configureS3(ctx context.Context) error {
	s3 := d.opts.DuckLake.S3

	// DuckDB adds the scheme itself.
	endpoint := strings.TrimPrefix(s3.Endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	q := fmt.Sprintf(`CREATE SECRET IF NOT EXISTS (
		TYPE S3,
		KEY_ID %s,
		SECRET %s,
		REGION %s,
		ENDPOINT %s,
		URL_STYLE 'path'
	)`, literal(s3.KeyID), literal(s3.Secret), literal(s3.Region), literal(endpoint))

	if _, err := d.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create S3 secret: %w", err)
	}

	d.logger.Info("S3 credentials configured", zap.String("endpoint", endpoint))
	return nil
}

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type duckDialect struct{}

// DuckLake tables do not support TRUNCATE.
func (duckDialect) truncateSQL(qualified string) string {
	return "DELETE FROM " + qualified
}

func duckInsertSQL(qualified string, table schema.Table) string {
	cols := make([]string, len(table.Columns))
	params := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = quote(c.Name)
		params[i] = fmt.Sprintf("CAST(? AS %s)", c.Type)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qualified, strings.Join(cols, ", "), strings.Join(params, ", "))
}

func (duckDialect) insert(ctx context.Context, tx *sql.Tx, target sqlTarget, rows []schema.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, duckInsertSQL(target.qualified, target.table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var n int64
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
			return n, fmt.Errorf("failed to insert row %d: %w", n, err)
		}
		n++
	}
	return n, nil
}
