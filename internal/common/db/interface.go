package db

import "context"

// Database is a pooled SQL connection that can run transactions.
type Database interface {
	Querier

	// Transaction runs fn in a transaction, committing when fn returns nil.
	Transaction(ctx context.Context, fn func(tx Transaction) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Transaction is an open transaction.
type Transaction interface {
	Querier
	Commit() error
	Rollback() error
}

// Rows iterates a query result.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is a single-row result; Scan reports sql.ErrNoRows when empty.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result summarises an Exec.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}
