package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/repository"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/metrics"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/redis"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/worker"
)

// CampaignMailer sends one campaign message. Implemented by the notification
// dispatcher; narrowed here so tests can fake it.
type CampaignMailer interface {
	SendCampaign(ctx context.Context, email, name, subject, body string) error
}

var _ CampaignUseCase = (*campaignUC)(nil)

type CampaignUseCase interface {
	Create(ctx context.Context, subject, body string, recipients []model.Recipient) (*model.Campaign, error)

	// Send queues the campaign for background delivery and returns
	// immediately. A campaign already sending or done is not restarted.
	Send(ctx context.Context, campaignID string) error

	Status(ctx context.Context, campaignID string) (*model.Campaign, error)
}

type campaignUC struct {
	campaigns repository.CampaignRepository
	mailer    CampaignMailer
	pool      *worker.Pool
	locker    redis.Locker
	batchSize int
	sendDelay time.Duration
	log       *zerolog.Logger
}

func NewCampaignUseCase(
	campaigns repository.CampaignRepository,
	mailer CampaignMailer,
	pool *worker.Pool,
	locker redis.Locker,
	batchSize int,
	sendDelay time.Duration,
	logger *zerolog.Logger,
) *campaignUC {
	l := logger.With().Str("usecase", "campaign").Logger()
	return &campaignUC{
		campaigns: campaigns,
		mailer:    mailer,
		pool:      pool,
		locker:    locker,
		batchSize: batchSize,
		sendDelay: sendDelay,
		log:       &l,
	}
}

func (u *campaignUC) Create(ctx context.Context, subject, body string, recipients []model.Recipient) (*model.Campaign, error) {
	if subject == "" || body == "" || len(recipients) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	for i := range recipients {
		recipients[i].Status = model.RecipientStatusPending
		recipients[i].SentAt = nil
	}
	c := &model.Campaign{
		ID:         ulid.Make().String(),
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
		Status:     model.CampaignStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := u.campaigns.Save(ctx, repository.NoTX, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *campaignUC) Status(ctx context.Context, campaignID string) (*model.Campaign, error) {
	return u.campaigns.FindByID(ctx, repository.NoTX, campaignID)
}

func (u *campaignUC) Send(ctx context.Context, campaignID string) error {
	c, err := u.campaigns.FindByID(ctx, repository.NoTX, campaignID)
	if err != nil {
		return err
	}
	if c.Status == model.CampaignStatusDone {
		return domain.ErrAlreadyExists
	}

	lockKey := redis.CampaignLockKey(campaignID)
	token, err := u.locker.TryLock(ctx, lockKey, 30*time.Minute)
	if err != nil {
		return err
	}

	c.Status = model.CampaignStatusSending
	c.UpdatedAt = time.Now()
	if err := u.campaigns.Save(ctx, repository.NoTX, c); err != nil {
		_ = u.locker.Unlock(ctx, lockKey, token)
		return err
	}

	go func() {
		// Detached from the request context; delivery outlives the HTTP call.
		bg := context.Background()
		defer func() { _ = u.locker.Unlock(bg, lockKey, token) }()
		u.run(bg, c)
	}()
	return nil
}

// run walks the recipient list in batches, checkpointing after every batch so
// an interrupted send resumes at the first still-pending recipient.
func (u *campaignUC) run(ctx context.Context, c *model.Campaign) {
	u.log.Info().Str("campaign_id", c.ID).Int("recipients", len(c.Recipients)).Msg("campaign send started")

	var mu sync.Mutex
	batch := make([]*model.Recipient, 0, u.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		var wg sync.WaitGroup
		for _, rc := range batch {
			rc := rc
			wg.Add(1)
			task := func(taskCtx context.Context) error {
				defer wg.Done()
				err := u.mailer.SendCampaign(taskCtx, rc.Email, rc.Name, c.Subject, c.Body)
				now := time.Now()

				mu.Lock()
				defer mu.Unlock()
				rc.SentAt = &now
				if err != nil {
					rc.Status = model.RecipientStatusFailed
					c.Stats.Failed++
					metrics.IncCampaignRecipient("failed")
					u.log.Warn().Err(err).Str("campaign_id", c.ID).Str("email", rc.Email).Msg("campaign mail failed")
				} else {
					rc.Status = model.RecipientStatusSent
					c.Stats.Sent++
					metrics.IncCampaignRecipient("sent")
				}
				return nil
			}
			if err := u.pool.Submit(task); err != nil {
				// Pool saturated; run inline rather than losing the recipient.
				_ = task(ctx)
			}
			time.Sleep(u.sendDelay)
		}
		wg.Wait()

		c.UpdatedAt = time.Now()
		if err := u.campaigns.Checkpoint(ctx, repository.NoTX, c); err != nil {
			u.log.Error().Err(err).Str("campaign_id", c.ID).Msg("campaign checkpoint failed")
		}
		batch = batch[:0]
	}

	for i := range c.Recipients {
		rc := &c.Recipients[i]
		if rc.Status != model.RecipientStatusPending {
			continue // already handled by an earlier run
		}
		batch = append(batch, rc)
		if len(batch) >= u.batchSize {
			flush()
		}
	}
	flush()

	c.Status = model.CampaignStatusDone
	c.UpdatedAt = time.Now()
	if err := u.campaigns.Save(ctx, repository.NoTX, c); err != nil {
		u.log.Error().Err(err).Str("campaign_id", c.ID).Msg("campaign final save failed")
	}
	u.log.Info().Str("campaign_id", c.ID).Int("sent", c.Stats.Sent).Int("failed", c.Stats.Failed).Msg("campaign send finished")
}
