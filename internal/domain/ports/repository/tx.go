package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager provides a thin abstraction to execute a function within
// a database transaction, passing the underlying transaction handle via tx.
//
// Use-case interfaces stay clean (no transaction types leaking out), while
// repository methods that accept a Tx can detect a live transaction and run
// SELECT ... FOR UPDATE / tx-bound Exec/Query as needed. Repositories MUST
// gracefully accept a nil tx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
