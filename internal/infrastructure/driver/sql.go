package driver

import (
	"context"
	"database/sql"
	"time"
)

// SQLWrapper Wraps a *sql.db object and provides the implementation of ITransactionalDB.
//
// it serves every database/sql based driver (mysql, sqlite), dialect differences
// live in adapt and isUnique
type SQLWrapper struct {
	db       *sql.DB
	dialect  string
	adapt    func(string) string
	isUnique func(error) bool
}

// SQLWrapperTx transaction wrapper
type SQLWrapperTx struct {
	tx     *sql.Tx
	parent *SQLWrapper
}

var (
	_ ITransactionalDB = &SQLWrapper{}
	_ ITransactionalDB = &SQLWrapperTx{}
)

// BeginTx start a new transaction context
func (mw *SQLWrapper) BeginTx(ctx context.Context, opts *TxOptions) (ITransactionalDB, error) {
	startTime := time.Now()

	tx, err := mw.db.BeginTx(ctx, sqlTxOptionAdapter(mw.dialect, opts))
	err = classify(err, mw.isUnique)
	logStatement(ctx, "BeginTx", "", nil, startTime, err)
	if err != nil {
		return nil, err
	}
	return &SQLWrapperTx{tx: tx, parent: mw}, nil
}

func sqlTxOptionAdapter(dialect string, opts *TxOptions) *sql.TxOptions {
	if opts == nil {
		return nil
	}
	iso := opts.Isolation
	if dialect == DialectSQLite {
		// sqlite transactions are always serializable
		iso = sql.LevelDefault
	}
	return &sql.TxOptions{
		Isolation: iso,
		ReadOnly:  opts.AccessMode == AccessReadOnly,
	}
}

func (mw *SQLWrapper) Commit(ctx context.Context) error {
	return nil
}

func (mw *SQLWrapper) Rollback(ctx context.Context) error {
	return nil
}

func (mw *SQLWrapper) Close(ctx context.Context) error {
	return mw.db.Close()
}

func (mw *SQLWrapper) Ping(ctx context.Context) error {
	return mw.db.PingContext(ctx)
}

func (mw *SQLWrapper) Dialect() string {
	return mw.dialect
}

func (mw *SQLWrapper) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	startTime := time.Now()

	query = mw.adapt(query)
	res, err := mw.db.ExecContext(ctx, query, args...)
	err = classify(err, mw.isUnique)
	logStatement(ctx, "Exec", query, args, startTime, err)
	return res, err
}

func (mw *SQLWrapper) QueryContext(ctx context.Context, query string, args ...interface{}) (ISQLRows, error) {
	startTime := time.Now()

	query = mw.adapt(query)
	rows, err := mw.db.QueryContext(ctx, query, args...)
	err = classify(err, mw.isUnique)
	logStatement(ctx, "Query", query, args, startTime, err)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (mwt *SQLWrapperTx) BeginTx(ctx context.Context, opts *TxOptions) (ITransactionalDB, error) {
	panic("create transaction inside a transaction")
}

func (mwt *SQLWrapperTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	startTime := time.Now()

	query = mwt.parent.adapt(query)
	res, err := mwt.tx.ExecContext(ctx, query, args...)
	err = classify(err, mwt.parent.isUnique)
	logStatement(ctx, "Exec", query, args, startTime, err)
	return res, err
}

func (mwt *SQLWrapperTx) QueryContext(ctx context.Context, query string, args ...interface{}) (ISQLRows, error) {
	startTime := time.Now()

	query = mwt.parent.adapt(query)
	rows, err := mwt.tx.QueryContext(ctx, query, args...)
	err = classify(err, mwt.parent.isUnique)
	logStatement(ctx, "Query", query, args, startTime, err)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (mwt *SQLWrapperTx) Commit(ctx context.Context) error {
	startTime := time.Now()
	err := classify(mwt.tx.Commit(), mwt.parent.isUnique)
	logStatement(ctx, "Commit", "", nil, startTime, err)
	return err
}

func (mwt *SQLWrapperTx) Rollback(ctx context.Context) error {
	startTime := time.Now()
	err := mwt.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	logStatement(ctx, "RollBack", "", nil, startTime, err)
	return err
}

func (mwt *SQLWrapperTx) Close(ctx context.Context) error {
	return nil
}

func (mwt *SQLWrapperTx) Ping(ctx context.Context) error {
	return mwt.parent.Ping(ctx)
}

func (mwt *SQLWrapperTx) Dialect() string {
	return mwt.parent.dialect
}
