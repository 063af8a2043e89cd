package repo

import (
	"context"

	"github.com/communityhub/marketplace-backend/pkg/db"
	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories. Every call goes
// through a db.Runner, so reads and writes outside a transaction get the
// store timeout and single retry.
type Base struct {
	runner db.Runner
}

// NewBase constructs a Base repository backed by the provided runner.
func NewBase(runner db.Runner) Base {
	return Base{runner: runner}
}

// Bind returns a Base that executes on tx. The enclosing transaction owns
// retries, so bound calls run exactly once.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{runner: db.InTx(tx)}
}

// Run executes fn with a connection scoped to ctx.
func (b Base) Run(ctx context.Context, fn func(conn *gorm.DB) error) error {
	return b.runner.Do(ctx, func(_ context.Context, conn *gorm.DB) error {
		return fn(conn)
	})
}
