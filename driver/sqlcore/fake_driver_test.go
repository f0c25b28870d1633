package sqlcore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync/atomic"
)

// scriptedDriver is a database/sql driver whose failure mode is fixed at
// registration. It records prepares and closes so tests can check cleanup.
type scriptedDriver struct {
	execErr error
	pingErr error

	// prepareErr is returned once okPrepares statements were prepared.
	prepareErr error
	okPrepares int32

	prepared    atomic.Int32
	stmtsClosed atomic.Int32
	connsClosed atomic.Int32
}

func (d *scriptedDriver) Open(string) (driver.Conn, error) {
	return &scriptedConn{d: d}, nil
}

type scriptedConn struct {
	d *scriptedDriver
}

func (c *scriptedConn) Prepare(string) (driver.Stmt, error) {
	if c.d.prepareErr != nil && c.d.prepared.Load() >= c.d.okPrepares {
		return nil, c.d.prepareErr
	}
	c.d.prepared.Add(1)
	return &scriptedStmt{d: c.d}, nil
}

func (c *scriptedConn) Close() error {
	c.d.connsClosed.Add(1)
	return nil
}

func (c *scriptedConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions unsupported") }

func (c *scriptedConn) Ping(context.Context) error { return c.d.pingErr }

func (c *scriptedConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	if c.d.execErr != nil {
		return nil, c.d.execErr
	}
	return driver.RowsAffected(1), nil
}

func (c *scriptedConn) QueryContext(context.Context, string, []driver.NamedValue) (driver.Rows, error) {
	return emptyRows{}, nil
}

type emptyRows struct{}

func (emptyRows) Columns() []string         { return nil }
func (emptyRows) Close() error              { return nil }
func (emptyRows) Next([]driver.Value) error { return driver.ErrBadConn }

type scriptedStmt struct {
	d *scriptedDriver
}

func (s *scriptedStmt) Close() error {
	s.d.stmtsClosed.Add(1)
	return nil
}

func (s *scriptedStmt) NumInput() int { return -1 }

func (s *scriptedStmt) Exec([]driver.Value) (driver.Result, error) {
	return driver.RowsAffected(1), nil
}

func (s *scriptedStmt) Query([]driver.Value) (driver.Rows, error) { return emptyRows{}, nil }

// prepareFailDriver prepares the get and has statements, then fails.
var prepareFailDriver = &scriptedDriver{prepareErr: errors.New("prepare refused"), okPrepares: 2}

func init() {
	sql.Register("pgfake", &scriptedDriver{})
	sql.Register("mysqlfake", &scriptedDriver{})
	sql.Register("postgres", &scriptedDriver{})
	sql.Register("pgfail", &scriptedDriver{execErr: errors.New("schema refused")})
	sql.Register("pingfail", &scriptedDriver{pingErr: errors.New("ping refused")})
	sql.Register("preparefail", prepareFailDriver)
}
