//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/worker"
)

type campaignFixture struct {
	uc        *campaignUC
	campaigns *memCampaignRepo
	mailer    *mockCampaignMailer
	locker    *fakeLocker
	pool      *worker.Pool
	cancel    context.CancelFunc
}

func newCampaignFixture(t *testing.T, batchSize int) *campaignFixture {
	t.Helper()
	f := &campaignFixture{
		campaigns: newMemCampaignRepo(),
		mailer:    &mockCampaignMailer{failFor: make(map[string]bool)},
		locker:    newFakeLocker(),
		pool:      worker.NewPool(2),
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		f.pool.Stop()
	})

	logger := zerolog.Nop()
	f.uc = NewCampaignUseCase(f.campaigns, f.mailer, f.pool, f.locker, batchSize, time.Millisecond, &logger)
	return f
}

func recipients(emails ...string) []model.Recipient {
	out := make([]model.Recipient, 0, len(emails))
	for _, e := range emails {
		out = append(out, model.Recipient{Email: e, Name: e})
	}
	return out
}

func waitForStatus(t *testing.T, f *campaignFixture, id string, want model.CampaignStatus) *model.Campaign {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c, err := f.campaigns.FindByID(context.Background(), nil, id)
		if err == nil && c.Status == want {
			return c
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("campaign %s never reached status %s", id, want)
	return nil
}

func TestCampaignCreate(t *testing.T) {
	t.Run("should create a draft with all recipients pending", func(t *testing.T) {
		f := newCampaignFixture(t, 50)
		c, err := f.uc.Create(context.Background(), "Hello", "<p>Hi</p>", recipients("a@x.com", "b@x.com"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.Status != model.CampaignStatusDraft {
			t.Errorf("expected draft, got %s", c.Status)
		}
		for _, rc := range c.Recipients {
			if rc.Status != model.RecipientStatusPending {
				t.Errorf("expected pending recipient, got %s", rc.Status)
			}
		}
	})

	t.Run("should reject empty subject, body or recipient list", func(t *testing.T) {
		f := newCampaignFixture(t, 50)
		if _, err := f.uc.Create(context.Background(), "", "b", recipients("a@x.com")); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for empty subject, got %v", err)
		}
		if _, err := f.uc.Create(context.Background(), "s", "b", nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for no recipients, got %v", err)
		}
	})
}

func TestCampaignSend(t *testing.T) {
	t.Run("should deliver every recipient and record per-recipient outcomes", func(t *testing.T) {
		f := newCampaignFixture(t, 2)
		f.mailer.failFor["bad@x.com"] = true
		c, _ := f.uc.Create(context.Background(), "Hello", "<p>Hi</p>",
			recipients("a@x.com", "b@x.com", "bad@x.com", "d@x.com", "e@x.com"))

		if err := f.uc.Send(context.Background(), c.ID); err != nil {
			t.Fatalf("send: %v", err)
		}
		done := waitForStatus(t, f, c.ID, model.CampaignStatusDone)

		if done.Stats.Sent != 4 || done.Stats.Failed != 1 {
			t.Errorf("expected 4 sent / 1 failed, got %d/%d", done.Stats.Sent, done.Stats.Failed)
		}
		for _, rc := range done.Recipients {
			if rc.Email == "bad@x.com" {
				if rc.Status != model.RecipientStatusFailed {
					t.Errorf("expected bad@x.com failed, got %s", rc.Status)
				}
				continue
			}
			if rc.Status != model.RecipientStatusSent {
				t.Errorf("expected %s sent, got %s", rc.Email, rc.Status)
			}
		}
	})

	t.Run("should checkpoint after each batch", func(t *testing.T) {
		f := newCampaignFixture(t, 2)
		c, _ := f.uc.Create(context.Background(), "Hello", "<p>Hi</p>",
			recipients("a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"))

		if err := f.uc.Send(context.Background(), c.ID); err != nil {
			t.Fatalf("send: %v", err)
		}
		waitForStatus(t, f, c.ID, model.CampaignStatusDone)

		f.campaigns.mu.Lock()
		checkpoints := f.campaigns.checkpoints
		f.campaigns.mu.Unlock()
		if checkpoints != 3 { // 2 + 2 + 1
			t.Errorf("expected 3 checkpoints for 5 recipients in batches of 2, got %d", checkpoints)
		}
	})

	t.Run("should skip recipients already sent by an earlier run", func(t *testing.T) {
		f := newCampaignFixture(t, 50)
		c, _ := f.uc.Create(context.Background(), "Hello", "<p>Hi</p>", recipients("a@x.com", "b@x.com"))

		// Simulate a previous interrupted run that already delivered a@x.com.
		now := time.Now()
		c.Recipients[0].Status = model.RecipientStatusSent
		c.Recipients[0].SentAt = &now
		c.Stats.Sent = 1
		_ = f.campaigns.Save(context.Background(), nil, c)

		if err := f.uc.Send(context.Background(), c.ID); err != nil {
			t.Fatalf("send: %v", err)
		}
		done := waitForStatus(t, f, c.ID, model.CampaignStatusDone)

		f.mailer.mu.Lock()
		sent := append([]string(nil), f.mailer.sent...)
		f.mailer.mu.Unlock()
		if len(sent) != 1 || sent[0] != "b@x.com" {
			t.Errorf("expected only b@x.com to be mailed, got %v", sent)
		}
		if done.Stats.Sent != 2 {
			t.Errorf("expected cumulative sent 2, got %d", done.Stats.Sent)
		}
	})

	t.Run("should refuse to restart a finished campaign", func(t *testing.T) {
		f := newCampaignFixture(t, 50)
		c, _ := f.uc.Create(context.Background(), "Hello", "<p>Hi</p>", recipients("a@x.com"))
		if err := f.uc.Send(context.Background(), c.ID); err != nil {
			t.Fatalf("send: %v", err)
		}
		waitForStatus(t, f, c.ID, model.CampaignStatusDone)

		if err := f.uc.Send(context.Background(), c.ID); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("should not run two sends of one campaign concurrently", func(t *testing.T) {
		f := newCampaignFixture(t, 50)
		c, _ := f.uc.Create(context.Background(), "Hello", "<p>Hi</p>", recipients("a@x.com"))
		f.locker.held["campaign:"+c.ID] = true

		if err := f.uc.Send(context.Background(), c.ID); !errors.Is(err, domain.ErrLockNotAcquired) {
			t.Errorf("expected ErrLockNotAcquired, got %v", err)
		}
	})
}
