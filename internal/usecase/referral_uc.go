package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/repository"
)

// defaultCommissionPct is the cut a referrer earns on a referred payment.
const defaultCommissionPct = 10

var _ ReferralUseCase = (*referralUC)(nil)

type ReferralUseCase interface {
	// Create opens a referral claim on an email address.
	Create(ctx context.Context, referrerID, referredEmail string) (*model.Referral, error)

	// LinkOnRegistration attaches a freshly registered account to the
	// referral claiming its email, if any.
	LinkOnRegistration(ctx context.Context, userID, email string) error
}

type referralUC struct {
	referrals repository.ReferralRepository
	log       *zerolog.Logger
}

func NewReferralUseCase(referrals repository.ReferralRepository, logger *zerolog.Logger) *referralUC {
	l := logger.With().Str("usecase", "referral").Logger()
	return &referralUC{referrals: referrals, log: &l}
}

func (u *referralUC) Create(ctx context.Context, referrerID, referredEmail string) (*model.Referral, error) {
	if referrerID == "" || referredEmail == "" {
		return nil, domain.ErrInvalidArgument
	}
	r := &model.Referral{
		ID:                   ulid.Make().String(),
		ReferrerID:           referrerID,
		ReferredEmail:        referredEmail,
		ReferralCode:         ulid.Make().String(),
		CommissionPercentage: defaultCommissionPct,
		Status:               model.ReferralStatusPending,
		CreatedAt:            time.Now(),
	}
	if err := u.referrals.Create(ctx, repository.NoTX, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (u *referralUC) LinkOnRegistration(ctx context.Context, userID, email string) error {
	ref, err := u.referrals.FindActiveByUser(ctx, repository.NoTX, userID, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if ref.ReferredUserID != nil {
		return nil
	}
	return u.referrals.LinkReferredUser(ctx, repository.NoTX, ref.ID, userID)
}
