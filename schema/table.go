// Package schema declares the record types of every warehouse layer and the
// table descriptors the stores use to create and rebuild them.
package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// Layer identifies a medallion layer. Each layer maps to one database schema.
type Layer string

const (
	Bronze Layer = "bronze"
	Silver Layer = "silver"
	Gold   Layer = "gold"
	Audit  Layer = "audit"
)

// Column is a column name and its portable SQL type.
type Column struct {
	Name string
	Type string
}

// Table describes one named record set.
type Table struct {
	Layer   Layer
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// String returns layer.name.
func (t Table) String() string {
	return string(t.Layer) + "." + t.Name
}

// Row is a record that can be written to a table. Values must line up with
// the table's columns; nil means NULL.
type Row interface {
	Values() []any
}

// Rows converts a typed record slice into rows.
func Rows[T Row](records []T) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = r
	}
	return rows
}

// SQL types shared by both Postgres and DuckDB.
const (
	typeText      = "VARCHAR"
	typeInt       = "BIGINT"
	typeDate      = "DATE"
	typeTimestamp = "TIMESTAMP"
	typeMoney     = "DECIMAL(18,2)"
)

func col(name, typ string) Column { return Column{Name: name, Type: typ} }

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// emptyAsNull stores "" as NULL.
func emptyAsNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func money(d decimal.Decimal) any {
	return d.StringFixed(2)
}
