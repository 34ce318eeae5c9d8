package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// Postgres is a Store backed by PostgreSQL. Rows are bulk loaded with COPY.
type Postgres struct {
	sqlStore
}

// NewPostgres opens and pings the database at dsn.
func NewPostgres(ctx context.Context, dsn string, layout Layout) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{sqlStore{db: db, layout: layout, dialect: postgresDialect{}}}, nil
}

type postgresDialect struct{}

func (postgresDialect) truncateSQL(qualified string) string {
	return "TRUNCATE TABLE " + qualified
}

func (postgresDialect) insert(ctx context.Context, tx *sql.Tx, target sqlTarget, rows []schema.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema(target.schema, target.table.Name, target.table.ColumnNames()...))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare copy statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
			return 0, fmt.Errorf("failed to add row to copy: %w", err)
		}
	}

	// Flush the buffered rows.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to execute copy: %w", err)
	}
	return int64(len(rows)), nil
}
