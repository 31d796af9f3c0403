package repository

import (
	"context"

	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
)

type CampaignRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Campaign) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Campaign, error)

	// Checkpoint persists per-recipient outcomes and running stats after a
	// batch so an interrupted send resumes where it stopped.
	Checkpoint(ctx context.Context, tx Tx, c *model.Campaign) error
}
