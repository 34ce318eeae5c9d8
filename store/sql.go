package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// dialect holds what differs between the SQL targets.
type dialect interface {
	truncateSQL(qualified string) string
	insert(ctx context.Context, tx *sql.Tx, target sqlTarget, rows []schema.Row) (int64, error)
}

// sqlTarget is a table resolved to its physical location.
type sqlTarget struct {
	table     schema.Table
	schema    string
	qualified string
}

// sqlStore implements Store and Querier over database/sql.
type sqlStore struct {
	db      *sql.DB
	catalog string
	layout  Layout
	dialect dialect
}

func quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}

func (s *sqlStore) schemaName(layer schema.Layer) string {
	name := quote(s.layout.SchemaFor(layer))
	if s.catalog != "" {
		return quote(s.catalog) + "." + name
	}
	return name
}

// Qualified returns [catalog.]schema.table, quoted.
func (s *sqlStore) Qualified(table schema.Table) string {
	return s.schemaName(table.Layer) + "." + quote(table.Name)
}

func (s *sqlStore) target(table schema.Table) sqlTarget {
	return sqlTarget{table: table, schema: s.layout.SchemaFor(table.Layer), qualified: s.Qualified(table)}
}

func createTableSQL(qualified string, table schema.Table) string {
	defs := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		defs[i] = fmt.Sprintf("%s %s", quote(c.Name), c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", qualified, strings.Join(defs, ",\n\t"))
}

func (s *sqlStore) Prepare(ctx context.Context, tables []schema.Table) error {
	created := make(map[schema.Layer]bool)
	for _, t := range tables {
		if created[t.Layer] {
			continue
		}
		query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", s.schemaName(t.Layer))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create schema for %s: %w", t.Layer, err)
		}
		created[t.Layer] = true
	}

	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, createTableSQL(s.Qualified(t), t)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t, err)
		}
	}
	return nil
}

func (s *sqlStore) Rebuild(ctx context.Context, table schema.Table, rows []schema.Row) (int64, error) {
	return s.write(ctx, table, rows, true)
}

func (s *sqlStore) Append(ctx context.Context, table schema.Table, rows []schema.Row) (int64, error) {
	return s.write(ctx, table, rows, false)
}

func (s *sqlStore) write(ctx context.Context, table schema.Table, rows []schema.Row, truncate bool) (int64, error) {
	if err := checkRows(table, rows); err != nil {
		return 0, err
	}
	target := s.target(table)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if truncate {
		if _, err := tx.ExecContext(ctx, s.dialect.truncateSQL(target.qualified)); err != nil {
			return 0, fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}

	n, err := s.dialect.insert(ctx, tx, target, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", table, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return n, nil
}

func (s *sqlStore) QueryInt(ctx context.Context, query string) (int64, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n.Int64, nil
}

func (s *sqlStore) Count(ctx context.Context, table schema.Table) (int64, error) {
	n, err := s.QueryInt(ctx, "SELECT COUNT(*) FROM "+s.Qualified(table))
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (s *sqlStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
