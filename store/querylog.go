package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"log/slog"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
)

// DriverName is the database/sql driver Open uses: modernc sqlite with
// every statement logged through slog.Default().
const DriverName = "sqlite-logged"

// SlowQuery is the duration above which a statement logs at warn.
var SlowQuery = 100 * time.Millisecond

func init() {
	sql.Register(DriverName, &loggingDriver{Driver: &sqlite.Driver{}})
}

type loggingDriver struct {
	driver.Driver
}

func (d *loggingDriver) Open(name string) (driver.Conn, error) {
	conn, err := d.Driver.Open(name)
	if err != nil {
		return nil, err
	}
	return &loggingConn{Conn: conn}, nil
}

type loggingConn struct {
	driver.Conn
}

func (c *loggingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		stmt driver.Stmt
		err  error
	)
	if pc, ok := c.Conn.(driver.ConnPrepareContext); ok {
		stmt, err = pc.PrepareContext(ctx, query)
	} else {
		stmt, err = c.Conn.Prepare(query)
	}
	if err != nil {
		logQuery(ctx, "prepare", query, 0, err)
		return nil, err
	}
	return &loggingStmt{Stmt: stmt, query: query}, nil
}

func (c *loggingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	ec, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	res, err := ec.ExecContext(ctx, query, args)
	if err != driver.ErrSkip {
		logQuery(ctx, "exec", query, time.Since(start), err)
	}
	return res, err
}

func (c *loggingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	qc, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	start := time.Now()
	rows, err := qc.QueryContext(ctx, query, args)
	if err != driver.ErrSkip {
		logQuery(ctx, "query", query, time.Since(start), err)
	}
	return rows, err
}

func (c *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if bt, ok := c.Conn.(driver.ConnBeginTx); ok {
		return bt.BeginTx(ctx, opts)
	}
	return c.Conn.Begin() //nolint:staticcheck
}

type loggingStmt struct {
	driver.Stmt
	query string
}

func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	var (
		res driver.Result
		err error
	)
	if ec, ok := s.Stmt.(driver.StmtExecContext); ok {
		res, err = ec.ExecContext(ctx, args)
	} else {
		res, err = s.Stmt.Exec(namedToValues(args)) //nolint:staticcheck
	}
	logQuery(ctx, "exec", s.query, time.Since(start), err)
	return res, err
}

func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	var (
		rows driver.Rows
		err  error
	)
	if qc, ok := s.Stmt.(driver.StmtQueryContext); ok {
		rows, err = qc.QueryContext(ctx, args)
	} else {
		rows, err = s.Stmt.Query(namedToValues(args)) //nolint:staticcheck
	}
	logQuery(ctx, "query", s.query, time.Since(start), err)
	return rows, err
}

// logQuery logs at debug, warn when slow, error on failure. Fast PRAGMA
// statements are dropped. Arguments are never logged: they hold client
// personal data.
func logQuery(ctx context.Context, op, query string, d time.Duration, err error) {
	if err == nil && d < 10*time.Millisecond && strings.HasPrefix(query, "PRAGMA ") {
		return
	}
	level := slog.LevelDebug
	switch {
	case err != nil:
		level = slog.LevelError
	case d > SlowQuery:
		level = slog.LevelWarn
	}
	logger := slog.Default()
	if !logger.Enabled(ctx, level) {
		return
	}
	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("query", compactSQL(query)),
		slog.Duration("duration", d),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.LogAttrs(ctx, level, "store: sql", attrs...)
}

func compactSQL(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > 200 {
		q = q[:200] + "…"
	}
	return q
}

func namedToValues(named []driver.NamedValue) []driver.Value {
	vals := make([]driver.Value, len(named))
	for i, nv := range named {
		vals[i] = nv.Value
	}
	return vals
}
