// Package sink loads generated records into Postgres alongside the
// regular file or stdout output.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mockline/internal/schema"
)

const batchSize = 5000

type Sink struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string) (*Sink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sink: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping sink: %w", err)
	}
	return &Sink{pool: pool}, nil
}

func (s *Sink) Close() { s.pool.Close() }

// EnsureTable creates the target table from the schema when absent.
func (s *Sink) EnsureTable(ctx context.Context, table string, sch *schema.Schema) error {
	if _, err := s.pool.Exec(ctx, CreateTableSQL(table, sch)); err != nil {
		return fmt.Errorf("ensure table %s: %w", table, err)
	}
	return nil
}

// NewLoader returns a batching loader. Loaders are not safe for
// concurrent use; each worker owns its own.
func (s *Sink) NewLoader(table string, sch *schema.Schema) *Loader {
	return &Loader{
		pool:    s.pool,
		table:   table,
		columns: sch.Names(),
	}
}

// CreateTableSQL builds the DDL for a schema-shaped table: str and
// timestamp columns become TEXT, int columns BIGINT.
func CreateTableSQL(table string, sch *schema.Schema) string {
	cols := make([]string, 0, len(sch.Fields))
	for _, f := range sch.Fields {
		cols = append(cols, fmt.Sprintf("%s %s", quoteIdent(f.Name), columnType(f.Kind)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(cols, ", "))
}

func columnType(kind schema.Kind) string {
	if kind == schema.KindInt {
		return "BIGINT"
	}
	return "TEXT"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Loader buffers rows and copies them in batches.
type Loader struct {
	pool    *pgxpool.Pool
	table   string
	columns []string
	rows    [][]any
	copied  int64
}

func (l *Loader) Add(ctx context.Context, row []any) error {
	l.rows = append(l.rows, row)
	if len(l.rows) >= batchSize {
		return l.Flush(ctx)
	}
	return nil
}

// Flush copies buffered rows into the table.
func (l *Loader) Flush(ctx context.Context) error {
	if len(l.rows) == 0 {
		return nil
	}
	n, err := l.pool.CopyFrom(ctx, pgx.Identifier{l.table}, l.columns, pgx.CopyFromRows(l.rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", l.table, err)
	}
	l.copied += n
	l.rows = l.rows[:0]
	return nil
}

// Copied reports rows copied so far.
func (l *Loader) Copied() int64 { return l.copied }
