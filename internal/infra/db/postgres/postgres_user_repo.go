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

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger
}

func NewPostgresUserRepo(pool *pgxpool.Pool, logger *zerolog.Logger) *PostgresUserRepo {
	l := logger.With().Str("repo", "user").Logger()
	return &PostgresUserRepo{pool: pool, log: &l}
}

func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	query := `INSERT INTO users (id, name, email, phone, password_hash, course_status, payment_status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			password_hash = EXCLUDED.password_hash,
			course_status = EXCLUDED.course_status,
			payment_status = EXCLUDED.payment_status`
	_, err := execSQL(ctx, r.pool, tx, query,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash,
		string(u.CourseStatus), string(u.PaymentStatus), u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		r.log.Error().Err(err).Str("user_id", u.ID).Msg("failed to save user")
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return r.findOne(ctx, tx, `WHERE id = $1`, id)
}

func (r *PostgresUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	return r.findOne(ctx, tx, `WHERE email = $1`, email)
}

func (r *PostgresUserRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.User, error) {
	query := `SELECT id, name, email, phone, password_hash, course_status, payment_status, created_at
		FROM users ` + where
	row, err := pickRow(ctx, r.pool, tx, query, arg)
	if err != nil {
		return nil, err
	}

	var u model.User
	var courseStatus, paymentStatus string
	err = row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &courseStatus, &paymentStatus, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	u.CourseStatus = model.CourseStatus(courseStatus)
	u.PaymentStatus = model.UserPaymentStatus(paymentStatus)

	if u.Courses, err = r.collect(ctx, tx,
		`SELECT class_group_id FROM user_courses WHERE user_id = $1 ORDER BY added_at`, u.ID); err != nil {
		return nil, err
	}
	if u.PaymentIDs, err = r.collect(ctx, tx,
		`SELECT payment_id FROM user_payments WHERE user_id = $1 ORDER BY added_at`, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) collect(ctx context.Context, tx repository.Tx, query, userID string) ([]string, error) {
	rows, err := queryRows(ctx, r.pool, tx, query, userID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AddCourse is set union: a duplicate add changes nothing.
func (r *PostgresUserRepo) AddCourse(ctx context.Context, tx repository.Tx, userID, classGroupID string) error {
	query := `INSERT INTO user_courses (user_id, class_group_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`
	if _, err := execSQL(ctx, r.pool, tx, query, userID, classGroupID); err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("failed to add course")
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *PostgresUserRepo) AddPayment(ctx context.Context, tx repository.Tx, userID, paymentID string) error {
	query := `INSERT INTO user_payments (user_id, payment_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`
	if _, err := execSQL(ctx, r.pool, tx, query, userID, paymentID); err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("failed to add payment")
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *PostgresUserRepo) UpdateStatuses(ctx context.Context, tx repository.Tx, userID string, course model.CourseStatus, payment model.UserPaymentStatus) error {
	query := `UPDATE users SET course_status = $1, payment_status = $2 WHERE id = $3`
	tag, err := execSQL(ctx, r.pool, tx, query, string(course), string(payment), userID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
