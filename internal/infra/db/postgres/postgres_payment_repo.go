package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/repository"
)

// Ensure implementation
var _ repository.PaymentRepository = (*PostgresPaymentRepo)(nil)

type PostgresPaymentRepo struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger
}

func NewPostgresPaymentRepo(pool *pgxpool.Pool, logger *zerolog.Logger) *PostgresPaymentRepo {
	l := logger.With().Str("repo", "payment").Logger()
	return &PostgresPaymentRepo{pool: pool, log: &l}
}

const paymentColumns = `id, transaction_id, user_id, provider, service_type, service_id,
	amount, currency, status, meta_email, meta_phone, meta_name, payment_link,
	created_at, updated_at, settled_at`

func (r *PostgresPaymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	query := `INSERT INTO payments (id, transaction_id, user_id, provider, service_type, service_id,
		amount, currency, status, meta_email, meta_phone, meta_name, payment_link, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := execSQL(ctx, r.pool, tx, query,
		p.ID, p.TransactionID, p.UserID, string(p.Provider), string(p.ServiceType), p.ServiceID,
		p.Amount, p.Currency, string(p.Status),
		p.Meta.Email, p.Meta.Phone, p.Meta.Name, p.PaymentLink,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTransaction
		}
		r.log.Error().Err(err).Str("transaction_id", p.TransactionID).Msg("failed to create payment")
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *PostgresPaymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	row, err := pickRow(ctx, r.pool, tx, query, transactionID)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		r.log.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to read payment row")
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// UpdateStatusIfPending is the single write that settles a payment. The WHERE
// clause makes concurrent settlement attempts race on the row: exactly one
// caller observes RowsAffected == 1 and owns the downstream effects.
func (r *PostgresPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, transactionID string, status model.PaymentStatus, settledAt *time.Time) (bool, error) {
	query := `UPDATE payments SET status = $1, settled_at = $2, updated_at = NOW()
		WHERE transaction_id = $3 AND status = 'pending'`
	tag, err := execSQL(ctx, r.pool, tx, query, string(status), settledAt, transactionID)
	if err != nil {
		r.log.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to update payment status")
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresPaymentRepo) AttachUser(ctx context.Context, tx repository.Tx, transactionID, userID string) error {
	query := `UPDATE payments SET user_id = $1, updated_at = NOW() WHERE transaction_id = $2`
	tag, err := execSQL(ctx, r.pool, tx, query, userID, transactionID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *PostgresPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC LIMIT $2`
	rows, err := queryRows(ctx, r.pool, tx, query, olderThan, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	var provider, serviceType, status string
	err := row.Scan(
		&p.ID, &p.TransactionID, &p.UserID, &provider, &serviceType, &p.ServiceID,
		&p.Amount, &p.Currency, &status,
		&p.Meta.Email, &p.Meta.Phone, &p.Meta.Name, &p.PaymentLink,
		&p.CreatedAt, &p.UpdatedAt, &p.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	p.Provider = model.Provider(provider)
	p.ServiceType = model.ServiceType(serviceType)
	p.Status = model.PaymentStatus(status)
	return &p, nil
}
