// Package store persists record sets. Each table is written through an
// explicit rebuild (truncate + bulk append in one transaction) so a target
// is either fully replaced or left as it was.
package store

import (
	"context"
	"fmt"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// Store is a target for whole record sets.
type Store interface {
	// Prepare creates the schemas and tables that do not exist yet.
	Prepare(ctx context.Context, tables []schema.Table) error
	// Rebuild replaces the contents of table with rows atomically.
	Rebuild(ctx context.Context, table schema.Table, rows []schema.Row) (int64, error)
	// Append adds rows to table without touching existing rows.
	Append(ctx context.Context, table schema.Table, rows []schema.Row) (int64, error)
	Close() error
}

// Counter reports the number of rows in a table.
type Counter interface {
	Count(ctx context.Context, table schema.Table) (int64, error)
}

// Querier runs scalar SQL queries against the store. Qualified returns the
// name to use for a table inside such queries.
type Querier interface {
	Counter
	QueryInt(ctx context.Context, query string) (int64, error)
	Qualified(table schema.Table) string
}

// Layout maps each layer to the database schema that holds it.
type Layout map[schema.Layer]string

// DefaultLayout names each schema after its layer.
func DefaultLayout() Layout {
	return Layout{
		schema.Bronze: string(schema.Bronze),
		schema.Silver: string(schema.Silver),
		schema.Gold:   string(schema.Gold),
		schema.Audit:  string(schema.Audit),
	}
}

// SchemaFor returns the schema name for layer, defaulting to the layer name.
func (l Layout) SchemaFor(layer schema.Layer) string {
	if name, ok := l[layer]; ok && name != "" {
		return name
	}
	return string(layer)
}

func checkRows(table schema.Table, rows []schema.Row) error {
	for i, r := range rows {
		if n := len(r.Values()); n != len(table.Columns) {
			return fmt.Errorf("%s row %d has %d values, table has %d columns", table, i, n, len(table.Columns))
		}
	}
	return nil
}
