package repository

import (
	"context"

	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
)

type ReferralRepository interface {
	Create(ctx context.Context, tx Tx, r *model.Referral) error
	// FindActiveByUser returns the non-Completed referral claiming the user,
	// matched by linked user id or referred email.
	FindActiveByUser(ctx context.Context, tx Tx, userID, email string) (*model.Referral, error)
	// LinkReferredUser attaches a registered account to a referral and moves
	// it to the Free Class stage.
	LinkReferredUser(ctx context.Context, tx Tx, referralID, userID string) error

	// SettleCommission records that payment paymentID settled commission on
	// the referral and credits the amount. The settlement row is keyed by
	// payment id; a second call for the same payment changes nothing and
	// reports false. This is the at-most-once guard for commission.
	SettleCommission(ctx context.Context, tx Tx, referralID, paymentID string, commission int64) (bool, error)
}
