package feed

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres reads feeds from tables of an operational Postgres database.
// Table names default to the feed names inside Schema.
type Postgres struct {
	pool   *pgxpool.Pool
	Schema string
	Tables map[string]string // feed name -> table override
}

// NewPostgres connects to dsn and verifies the connection.
func NewPostgres(ctx context.Context, dsn, schemaName string, tables map[string]string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Postgres{pool: pool, Schema: schemaName, Tables: tables}, nil
}

// Query returns the SELECT used to read f.
func (p *Postgres) Query(f Feed) string {
	table := f.Name
	if override, ok := p.Tables[f.Name]; ok && override != "" {
		table = override
	}

	columns := f.Table.ColumnNames()
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}

	ident := pgx.Identifier{table}
	if p.Schema != "" {
		ident = pgx.Identifier{p.Schema, table}
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), ident.Sanitize())
}

// Read selects every row of the feed's table and renders values as text so
// they go through the same typing as file feeds.
func (p *Postgres) Read(ctx context.Context, f Feed) (*RowSet, error) {
	rows, err := p.pool.Query(ctx, p.Query(f))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", f.Name, err)
	}
	defer rows.Close()

	rs := &RowSet{Feed: f.Name, Header: f.Table.ColumnNames()}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s row: %w", f.Name, err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = render(v)
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return rs, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func render(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.DateTime)
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil || inner == nil {
			return ""
		}
		return render(inner)
	default:
		return fmt.Sprint(val)
	}
}
