package driver

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pot-code/course-certificate/internal/domain"
)

// ErrConflictOnUniqueKey a write hit a unique constraint owned by another row.
//
// every wrapper translates its native duplicate-key signal into this error,
// callers must use errors.Is
var ErrConflictOnUniqueKey = errors.New("conflict on unique key")

// ErrUnavailable the database could not be reached or the statement failed outside a constraint
var ErrUnavailable = domain.ErrPersistenceUnavailable

type TxAccessMode int

// transaction access mode
const (
	AccessReadOnly TxAccessMode = iota
	AccessReadWrite
)

type TxDeferrableMode int

// transaction defer mode
const (
	Deferrable TxDeferrableMode = iota
	NotDeferrable
)

// supported dialects
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// TxOptions Provides a universal option struct across different SQL drivers
type TxOptions struct {
	Isolation      sql.IsolationLevel
	AccessMode     TxAccessMode
	DeferrableMode TxDeferrableMode
}

// ISQLRows Provides a universal query result struct across different SQL drivers
type ISQLRows interface {
	Next() bool
	Scan(dest ...interface{}) (err error)
	Err() error
	Close() error
}

// ITransactionalDB Universal SQL operation interface, to eliminate the gap between different SQL drivers
type ITransactionalDB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (ISQLRows, error)
	BeginTx(ctx context.Context, opts *TxOptions) (ITransactionalDB, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
	Dialect() string
}

// DBConfig connection options shared by all drivers
type DBConfig struct {
	Driver   string // driver name
	Host     string // server host
	MaxConn  int32  // maximum opening connections number
	Password string // db password
	Port     int    // server port
	Protocol string // connection protocol, eg.tcp
	Query    string // DSN query parameter
	Schema   string // use schema
	User     string // username
	Path     string // database file, sqlite only
}

// SpacePattern check for space, tab or newline
var SpacePattern = regexp.MustCompile(`[\n\t\s]+`)

// DollarPlaceholderPattern check for postgresql style var placeholder
var DollarPlaceholderPattern = regexp.MustCompile(`\$[0-9]+`)

// insertIgnorePattern portable "insert unless present" form, rewritten for mysql
var insertIgnorePattern = regexp.MustCompile(`(?i)\s*ON\s+CONFLICT\s+DO\s+NOTHING\s*;?\s*$`)

func getDSN(cfg *DBConfig) (DSN string) {
	if cfg.Protocol != "" {
		DSN = fmt.Sprintf("%s:%s@%s(%s:%d)/%s", cfg.User, cfg.Password, cfg.Protocol, cfg.Host, cfg.Port, cfg.Schema)
	} else {
		DSN = fmt.Sprintf("%s:%s@%s:%d/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Schema)
	}
	if cfg.Query != "" {
		return DSN + "?" + cfg.Query
	}
	return
}

// GetDBConnection create a DB connection from given config
func GetDBConnection(cfg *DBConfig) (conn ITransactionalDB, err error) {
	switch cfg.Driver {
	case DialectMySQL:
		conn, err = NewMySQLConn(getDSN(cfg), cfg)
	case DialectPostgres:
		conn, err = NewPostgreSQLConn("postgres://"+getDSN(cfg), cfg)
	case DialectSQLite:
		conn, err = NewSQLiteConn(cfg.Path, cfg)
	default:
		err = fmt.Errorf("Unsupported driver: %s", cfg.Driver)
	}
	return
}

func shouldLogError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrConflictOnUniqueKey) {
		return false
	}
	return true
}

// classify wraps err with the driver-neutral sentinel it belongs to
func classify(err error, isUnique func(error) bool) error {
	if err == nil {
		return nil
	}
	if isUnique(err) {
		return fmt.Errorf("%w: %v", ErrConflictOnUniqueKey, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func logQueryArgs(args []interface{}) []interface{} {
	logArgs := make([]interface{}, 0, len(args))

	for _, a := range args {
		switch v := a.(type) {
		case []byte:
			if len(v) < 64 {
				a = hex.EncodeToString(v)
			} else {
				a = fmt.Sprintf("%x (truncated %d bytes)", v[:64], len(v)-64)
			}
		case string:
			if len(v) > 64 {
				a = fmt.Sprintf("%s (truncated %d bytes)", v[:64], len(v)-64)
			}
		}
		logArgs = append(logArgs, a)
	}

	return logArgs
}

// questionPlaceholders rewrites $n placeholders to ?, queries must number them in order of appearance
func questionPlaceholders(query string) string {
	return DollarPlaceholderPattern.ReplaceAllString(query, "?")
}

func mysqlAdapter(query string) string {
	query = strings.Replace(query, "\"", "`", -1)
	if insertIgnorePattern.MatchString(query) {
		query = insertIgnorePattern.ReplaceAllString(query, "")
		query = strings.Replace(query, "INSERT INTO", "INSERT IGNORE INTO", 1)
	}
	query = questionPlaceholders(query)
	query = SpacePattern.ReplaceAllString(query, " ")
	return query
}

func pgsqlAdapter(query string) string {
	return SpacePattern.ReplaceAllString(query, " ")
}

func sqliteAdapter(query string) string {
	query = questionPlaceholders(query)
	query = SpacePattern.ReplaceAllString(query, " ")
	return query
}
