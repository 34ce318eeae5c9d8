package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// Memory keeps tables in process. Writes to a table can be made to fail
// with FailOn, which is how the fail-fast behavior of a load is exercised.
type Memory struct {
	mu       sync.Mutex
	tables   map[string][]schema.Row
	failures map[string]error
	writes   []string
}

func NewMemory() *Memory {
	return &Memory{
		tables:   make(map[string][]schema.Row),
		failures: make(map[string]error),
	}
}

// FailOn makes every subsequent write to table return err.
func (m *Memory) FailOn(table schema.Table, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[table.String()] = err
}

// Rows returns a copy of the rows currently stored in table.
func (m *Memory) Rows(table schema.Table) []schema.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]schema.Row(nil), m.tables[table.String()]...)
}

// Writes lists the tables written successfully, in order.
func (m *Memory) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

func (m *Memory) Prepare(ctx context.Context, tables []schema.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tables {
		if _, ok := m.tables[t.String()]; !ok {
			m.tables[t.String()] = nil
		}
	}
	return nil
}

func (m *Memory) Rebuild(ctx context.Context, table schema.Table, rows []schema.Row) (int64, error) {
	return m.write(ctx, table, rows, true)
}

func (m *Memory) Append(ctx context.Context, table schema.Table, rows []schema.Row) (int64, error) {
	return m.write(ctx, table, rows, false)
}

func (m *Memory) write(ctx context.Context, table schema.Table, rows []schema.Row, replace bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkRows(table, rows); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[table.String()]; err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", table, err)
	}

	key := table.String()
	if replace {
		m.tables[key] = append([]schema.Row(nil), rows...)
	} else {
		m.tables[key] = append(m.tables[key], rows...)
	}
	m.writes = append(m.writes, key)
	return int64(len(rows)), nil
}

func (m *Memory) Count(ctx context.Context, table schema.Table) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tables[table.String()])), nil
}

func (m *Memory) Close() error {
	return nil
}
