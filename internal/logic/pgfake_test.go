package logic

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// statement is one captured SQL call with its arguments.
type statement struct {
	sql  string
	args []interface{}
}

// fakeRow plays back one scripted result row. Scan assigns values by
// position, converting to the destination type; nil values leave the
// destination untouched.
type fakeRow struct {
	values []interface{}
	err    error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, d := range dest {
		if r.values[i] == nil {
			continue
		}
		target := reflect.ValueOf(d).Elem()
		value := reflect.ValueOf(r.values[i])
		switch {
		case target.Kind() != reflect.Ptr && value.Type().ConvertibleTo(target.Type()):
			target.Set(value.Convert(target.Type()))
		case target.Kind() == reflect.Ptr && value.Type().ConvertibleTo(target.Type().Elem()):
			boxed := reflect.New(target.Type().Elem())
			boxed.Elem().Set(value.Convert(target.Type().Elem()))
			target.Set(boxed)
		default:
			return fmt.Errorf("scan: cannot assign %T to %T", r.values[i], d)
		}
	}
	return nil
}

// fakeRows plays back a scripted multi-row result set.
type fakeRows struct {
	pgx.Rows
	rows [][]interface{}
	idx  int
}

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx <= len(r.rows)
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	row := &fakeRow{values: r.rows[r.idx-1]}
	return row.Scan(dest...)
}

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Close() {}

// fakeTx routes statement execution back to the owning pool and tracks the
// transaction outcome.
type fakeTx struct {
	pgx.Tx
	pool      *fakePool
	committed bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return t.pool.exec(sql, args)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return t.pool.queryRow(sql, args)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error { return nil }

// fakePool is a scripted PgPool. Single-row queries consume rowQueue in
// order, multi-row queries consume rowsQueue, and every statement is captured
// for assertions.
type fakePool struct {
	rowQueue  []*fakeRow
	rowsQueue []*fakeRows
	execs     []statement
	queries   []statement
	tx        *fakeTx
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	p.tx = &fakeTx{pool: p}
	return p.tx, nil
}

func (p *fakePool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	p.queries = append(p.queries, statement{sql: sql, args: args})
	if len(p.rowsQueue) == 0 {
		return &fakeRows{}, nil
	}
	rows := p.rowsQueue[0]
	p.rowsQueue = p.rowsQueue[1:]
	return rows, nil
}

func (p *fakePool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return p.queryRow(sql, args)
}

func (p *fakePool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return p.exec(sql, args)
}

func (p *fakePool) queryRow(sql string, args []interface{}) pgx.Row {
	p.queries = append(p.queries, statement{sql: sql, args: args})
	if len(p.rowQueue) == 0 {
		return &fakeRow{err: pgx.ErrNoRows}
	}
	row := p.rowQueue[0]
	p.rowQueue = p.rowQueue[1:]
	return row
}

func (p *fakePool) exec(sql string, args []interface{}) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, statement{sql: sql, args: args})
	return pgconn.CommandTag{}, nil
}

func (p *fakePool) execMatching(substr string) *statement {
	for i := range p.execs {
		if strings.Contains(p.execs[i].sql, substr) {
			return &p.execs[i]
		}
	}
	return nil
}
