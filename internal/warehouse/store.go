package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunTx is the transactional surface a single ingestion run operates
// on. Dimensions resolve before the facts that reference them; every
// operation is a single atomic statement so concurrent runs cannot
// race between check and insert.
type RunTx interface {
	ResolveChannel(ctx context.Context, name string) (int32, error)
	ResolveCampaign(ctx context.Context, channelID int32, name string) (int32, error)
	ResolveCategory(ctx context.Context, name string) (int32, error)
	ResolveBrand(ctx context.Context, name string) (int32, error)
	ResolveColor(ctx context.Context, name string) (int32, error)
	ResolveSize(ctx context.Context, label string) (int32, error)
	ResolveCountry(ctx context.Context, name string) (int32, error)

	EnsureCustomer(ctx context.Context, c Customer) error
	EnsureProduct(ctx context.Context, p Product) error

	InsertSale(ctx context.Context, s Sale) (Outcome, error)
	InsertSaleItem(ctx context.Context, it SaleItem) (Outcome, error)
}

// Store wraps the warehouse connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinRun executes fn inside a single transaction. Any error from fn
// rolls back every write of the run; nil commits them all.
func (s *Store) WithinRun(ctx context.Context, fn func(RunTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&runTx{tx: tx})
	})
}

// runTx implements RunTx on a pgx transaction.
type runTx struct {
	tx pgx.Tx
}
