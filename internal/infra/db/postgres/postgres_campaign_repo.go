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

var _ repository.CampaignRepository = (*PostgresCampaignRepo)(nil)

type PostgresCampaignRepo struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger
}

func NewPostgresCampaignRepo(pool *pgxpool.Pool, logger *zerolog.Logger) *PostgresCampaignRepo {
	l := logger.With().Str("repo", "campaign").Logger()
	return &PostgresCampaignRepo{pool: pool, log: &l}
}

func (r *PostgresCampaignRepo) Save(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	query := `INSERT INTO campaigns (id, subject, body, status, sent, failed, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			sent = EXCLUDED.sent,
			failed = EXCLUDED.failed,
			updated_at = EXCLUDED.updated_at`
	_, err := execSQL(ctx, r.pool, tx, query,
		c.ID, c.Subject, c.Body, string(c.Status), c.Stats.Sent, c.Stats.Failed, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		r.log.Error().Err(err).Str("campaign_id", c.ID).Msg("failed to save campaign")
		return domain.ErrOperationFailed
	}

	for i := range c.Recipients {
		rc := &c.Recipients[i]
		q := `INSERT INTO campaign_recipients (campaign_id, email, name, status, sent_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (campaign_id, email) DO UPDATE SET status = EXCLUDED.status, sent_at = EXCLUDED.sent_at`
		if _, err := execSQL(ctx, r.pool, tx, q, c.ID, rc.Email, rc.Name, string(rc.Status), rc.SentAt); err != nil {
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *PostgresCampaignRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Campaign, error) {
	query := `SELECT id, subject, body, status, sent, failed, created_at, updated_at FROM campaigns WHERE id = $1`
	row, err := pickRow(ctx, r.pool, tx, query, id)
	if err != nil {
		return nil, err
	}
	var c model.Campaign
	var status string
	err = row.Scan(&c.ID, &c.Subject, &c.Body, &status, &c.Stats.Sent, &c.Stats.Failed, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.Status = model.CampaignStatus(status)

	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT email, name, status, sent_at FROM campaign_recipients WHERE campaign_id = $1 ORDER BY email`, id)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	for rows.Next() {
		var rc model.Recipient
		var rs string
		if err := rows.Scan(&rc.Email, &rc.Name, &rs, &rc.SentAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		rc.Status = model.RecipientStatus(rs)
		c.Recipients = append(c.Recipients, rc)
	}
	return &c, rows.Err()
}

// Checkpoint flushes recipient outcomes and running stats mid-send. It is the
// resume point for an interrupted campaign.
func (r *PostgresCampaignRepo) Checkpoint(ctx context.Context, tx repository.Tx, c *model.Campaign) error {
	return r.Save(ctx, tx, c)
}
