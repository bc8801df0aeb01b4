// Package repository holds the bob plumbing shared by the database stores.
//
// Stores look for an executor in the context first so a running transaction
// is picked up, otherwise they use the executor they were created with.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stephenafamo/bob"
)

type executorKey struct{}

// NewDB wraps the pool, tracers configured on the pool stay active
func NewDB(pool *pgxpool.Pool) bob.DB {
	return bob.NewDB(stdlib.OpenDBFromPool(pool))
}

func NewContext(ctx context.Context, e bob.Executor) context.Context {
	return context.WithValue(ctx, executorKey{}, e)
}

func FromContext(ctx context.Context) bob.Executor {
	if ctx == nil {
		return nil
	}
	if e, ok := ctx.Value(executorKey{}).(bob.Executor); ok {
		return e
	}
	return nil
}

// Executor returns the transaction in ctx or fallback
func Executor(ctx context.Context, fallback bob.Executor) bob.Executor {
	if e := FromContext(ctx); e != nil {
		return e
	}
	return fallback
}

type TxManager struct {
	db bob.DB
}

func NewTxManager(db bob.DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx runs fn in a transaction that is committed if fn returns nil.
// Inside fn the transaction is available through FromContext.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.RunInTx(ctx, nil, func(ctx context.Context, e bob.Executor) error {
		return fn(NewContext(ctx, e))
	})
}
