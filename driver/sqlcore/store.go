package sqlcore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goforj/cacheprovider/cachecore"
)

const (
	defaultTTL   = 5 * time.Minute
	defaultTable = "cache_entries"
)

var identPartRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config configures a database/sql-backed cache store.
type Config struct {
	cachecore.BaseConfig

	// DriverName is the database/sql driver to open. The matching driver
	// package must be imported by the caller.
	DriverName string
	DSN        string
	Table      string
}

type sqlStore struct {
	db         *sql.DB
	table      string
	driverName string
	prefix     string
	defaultTTL time.Duration

	getStmt    *sql.Stmt
	hasStmt    *sql.Stmt
	upsertStmt *sql.Stmt
	deleteStmt *sql.Stmt
}

// New opens the database, creates the cache table when missing and returns a
// cachecore.Store over it.
//
// Defaults:
// - Table: "cache_entries" when empty
// - DefaultTTL: 5*time.Minute when zero
func New(ctx context.Context, cfg Config) (cachecore.Store, error) {
	if cfg.DriverName == "" || cfg.DSN == "" {
		return nil, errors.New("sql driver requires driver name and dsn")
	}
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	if err := validateTableName(table); err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	s := &sqlStore{
		db:         db,
		table:      table,
		driverName: cfg.DriverName,
		prefix:     cfg.Prefix,
		defaultTTL: ttl,
	}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table %s: %w", table, err)
	}
	if err := s.prepareStatements(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("prepare cache statements: %w", err)
	}
	return s, nil
}

func (s *sqlStore) Driver() cachecore.Driver { return cachecore.DriverSQL }

func (s *sqlStore) SetNamespace(namespace string) { s.prefix = namespace }

func (s *sqlStore) Namespace() string { return s.prefix }

func (s *sqlStore) ensureSchema(ctx context.Context) error {
	var stmt string
	switch s.dialect() {
	case dialectPostgres:
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k TEXT PRIMARY KEY,
			v BYTEA NOT NULL,
			ea BIGINT NOT NULL
		);`, s.table)
	case dialectMySQL:
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k VARBINARY(255) PRIMARY KEY,
			v LONGBLOB NOT NULL,
			ea BIGINT NOT NULL
		) ENGINE=InnoDB;`, s.table)
	default:
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k TEXT PRIMARY KEY,
			v BLOB NOT NULL,
			ea INTEGER NOT NULL
		);`, s.table)
	}
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	var exp int64
	err := s.getStmt.QueryRowContext(ctx, s.cacheKey(key)).Scan(&v, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if time.Now().UnixMilli() > exp {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return v, true, nil
}

func (s *sqlStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if value == nil {
		value = []byte{}
	}
	exp := time.Now().Add(ttl).UnixMilli()
	_, err := s.upsertStmt.ExecContext(ctx, s.cacheKey(key), value, exp, value, exp)
	return err
}

func (s *sqlStore) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.hasStmt.QueryRowContext(ctx, s.cacheKey(key), time.Now().UnixMilli()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	_, err := s.deleteStmt.ExecContext(ctx, s.cacheKey(key))
	return err
}

// Flush deletes the rows of this store's namespace, or the whole table when
// the store has no namespace.
func (s *sqlStore) Flush(ctx context.Context) error {
	if s.prefix == "" {
		_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table))
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE k LIKE %s ESCAPE '!'", s.table, s.ph(1))
	_, err := s.db.ExecContext(ctx, query, likePrefix(s.prefix+":"))
	return err
}

// Close releases prepared statements and the database handle.
func (s *sqlStore) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.getStmt, s.hasStmt, s.upsertStmt, s.deleteStmt} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

func (s *sqlStore) cacheKey(key string) string {
	return cachecore.NamespacedKey(s.prefix, key)
}

func (s *sqlStore) prepareStatements(ctx context.Context) error {
	var err error
	if s.getStmt, err = s.db.PrepareContext(ctx, fmt.Sprintf("SELECT v, ea FROM %s WHERE k = %s", s.table, s.ph(1))); err != nil {
		return err
	}
	if s.hasStmt, err = s.db.PrepareContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE k = %s AND ea >= %s", s.table, s.ph(1), s.ph(2))); err != nil {
		return err
	}
	if s.upsertStmt, err = s.db.PrepareContext(ctx, s.upsertSQL()); err != nil {
		return err
	}
	if s.deleteStmt, err = s.db.PrepareContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE k = %s", s.table, s.ph(1))); err != nil {
		return err
	}
	return nil
}

func (s *sqlStore) upsertSQL() string {
	p1, p2, p3, p4, p5 := s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5)
	switch s.dialect() {
	case dialectPostgres:
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON CONFLICT (k) DO UPDATE SET v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	case dialectMySQL:
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON DUPLICATE KEY UPDATE v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	default:
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON CONFLICT(k) DO UPDATE SET v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	}
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
	dialectMySQL
)

func (s *sqlStore) dialect() dialect {
	switch s.driverName {
	case "postgres", "pgx":
		return dialectPostgres
	case "mysql":
		return dialectMySQL
	default:
		return dialectSQLite
	}
}

// ph returns the i-th placeholder; postgres needs positional ones.
func (s *sqlStore) ph(i int) string {
	if s.dialect() == dialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// likePrefix builds a LIKE pattern matching values starting with prefix,
// using '!' as the escape character.
func likePrefix(prefix string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(prefix) + "%"
}

func validateTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("sql table name is required")
	}
	for _, part := range strings.Split(name, ".") {
		if !identPartRE.MatchString(part) {
			return fmt.Errorf("invalid sql table name %q", name)
		}
	}
	return nil
}
