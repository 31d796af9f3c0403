package repository

import (
	"context"
	"time"

	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
)

// PaymentRepository is the payment ledger. Rows are created pending and
// transition exactly once to a terminal state; they are never deleted.
type PaymentRepository interface {
	// Create stores a new pending payment. A reused transaction id fails
	// with domain.ErrDuplicateTransaction.
	Create(ctx context.Context, tx Tx, p *model.Payment) error

	// FindByTransactionID fails with domain.ErrPaymentNotFound if absent.
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Payment, error)

	// UpdateStatusIfPending atomically transitions pending -> status and
	// reports whether this call won the transition. Calling on an
	// already-terminal record is a no-op returning false, which is what makes
	// webhook/callback re-delivery safe.
	UpdateStatusIfPending(ctx context.Context, tx Tx, transactionID string, status model.PaymentStatus, settledAt *time.Time) (bool, error)

	// AttachUser links a resolved/created user to a guest payment.
	AttachUser(ctx context.Context, tx Tx, transactionID, userID string) error

	// ListPendingOlderThan feeds the polling reconciler.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}
