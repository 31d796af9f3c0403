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

var _ repository.ClassGroupRepository = (*PostgresClassGroupRepo)(nil)

type PostgresClassGroupRepo struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger
}

func NewPostgresClassGroupRepo(pool *pgxpool.Pool, logger *zerolog.Logger) *PostgresClassGroupRepo {
	l := logger.With().Str("repo", "class_group").Logger()
	return &PostgresClassGroupRepo{pool: pool, log: &l}
}

func (r *PostgresClassGroupRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ClassGroup, error) {
	query := `SELECT id, course_template_id, class_name, start_date, end_date, capacity, location, learning_mode, created_at
		FROM class_groups WHERE id = $1`
	row, err := pickRow(ctx, r.pool, tx, query, id)
	if err != nil {
		return nil, err
	}

	var g model.ClassGroup
	var mode string
	err = row.Scan(&g.ID, &g.CourseTemplateID, &g.ClassName, &g.StartDate, &g.EndDate,
		&g.Capacity, &g.Location, &mode, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Error().Err(err).Str("class_group_id", id).Msg("failed to read class group row")
		return nil, domain.ErrReadDatabaseRow
	}
	g.LearningMode = model.LearningMode(mode)

	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT user_id FROM class_group_enrollments WHERE class_group_id = $1 ORDER BY enrolled_at`, id)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		g.EnrolledUserIDs = append(g.EnrolledUserIDs, uid)
	}
	return &g, rows.Err()
}

func (r *PostgresClassGroupRepo) FindTemplate(ctx context.Context, tx repository.Tx, templateID string) (*model.CourseTemplate, error) {
	query := `SELECT id, title, description, fee, created_at FROM course_templates WHERE id = $1`
	row, err := pickRow(ctx, r.pool, tx, query, templateID)
	if err != nil {
		return nil, err
	}
	var t model.CourseTemplate
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Fee, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &t, nil
}

// Enroll inserts into the enrollment set; the composite primary key turns a
// repeat enrollment into a no-op.
func (r *PostgresClassGroupRepo) Enroll(ctx context.Context, tx repository.Tx, classGroupID, userID string) error {
	query := `INSERT INTO class_group_enrollments (class_group_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`
	if _, err := execSQL(ctx, r.pool, tx, query, classGroupID, userID); err != nil {
		r.log.Error().Err(err).Str("class_group_id", classGroupID).Str("user_id", userID).Msg("failed to enroll user")
		return domain.ErrOperationFailed
	}
	return nil
}
