package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/repository"
)

var _ repository.ReferralRepository = (*PostgresReferralRepo)(nil)

type PostgresReferralRepo struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger
}

func NewPostgresReferralRepo(pool *pgxpool.Pool, logger *zerolog.Logger) *PostgresReferralRepo {
	l := logger.With().Str("repo", "referral").Logger()
	return &PostgresReferralRepo{pool: pool, log: &l}
}

func (r *PostgresReferralRepo) Create(ctx context.Context, tx repository.Tx, ref *model.Referral) error {
	query := `INSERT INTO referrals (id, referrer_id, referred_email, referred_user_id, referral_code,
		commission_percentage, commission, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := execSQL(ctx, r.pool, tx, query,
		ref.ID, ref.ReferrerID, ref.ReferredEmail, ref.ReferredUserID, ref.ReferralCode,
		ref.CommissionPercentage, ref.Commission, string(ref.Status), ref.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		r.log.Error().Err(err).Str("referral_code", ref.ReferralCode).Msg("failed to create referral")
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *PostgresReferralRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID, email string) (*model.Referral, error) {
	query := `SELECT id, referrer_id, referred_email, referred_user_id, referral_code,
		commission_percentage, commission, status, created_at
		FROM referrals
		WHERE status <> 'Completed' AND (referred_user_id = $1 OR referred_email = $2)
		ORDER BY created_at ASC LIMIT 1`
	row, err := pickRow(ctx, r.pool, tx, query, userID, email)
	if err != nil {
		return nil, err
	}
	var ref model.Referral
	var status string
	err = row.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredEmail, &ref.ReferredUserID, &ref.ReferralCode,
		&ref.CommissionPercentage, &ref.Commission, &status, &ref.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	ref.Status = model.ReferralStatus(status)
	return &ref, nil
}

func (r *PostgresReferralRepo) LinkReferredUser(ctx context.Context, tx repository.Tx, referralID, userID string) error {
	query := `UPDATE referrals SET referred_user_id = $1, status = $2 WHERE id = $3 AND referred_user_id IS NULL`
	if _, err := execSQL(ctx, r.pool, tx, query, userID, string(model.ReferralStatusFreeClass), referralID); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

// SettleCommission credits the referral for one payment at most once. The
// settlement insert is keyed by payment id; losing the insert means another
// call already credited this payment.
func (r *PostgresReferralRepo) SettleCommission(ctx context.Context, tx repository.Tx, referralID, paymentID string, commission int64) (bool, error) {
	insert := `INSERT INTO referral_settlements (payment_id, referral_id, commission)
		VALUES ($1,$2,$3) ON CONFLICT (payment_id) DO NOTHING`
	tag, err := execSQL(ctx, r.pool, tx, insert, paymentID, referralID, commission)
	if err != nil {
		r.log.Error().Err(err).Str("referral_id", referralID).Str("payment_id", paymentID).Msg("failed to record settlement")
		return false, domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	update := `UPDATE referrals SET commission = commission + $1, status = $2 WHERE id = $3`
	if _, err := execSQL(ctx, r.pool, tx, update, commission, string(model.ReferralStatusPaid), referralID); err != nil {
		return false, domain.ErrOperationFailed
	}
	return true, nil
}
