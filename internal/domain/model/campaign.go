package model

import "time"

type CampaignStatus string

const (
	CampaignStatusDraft   CampaignStatus = "draft"
	CampaignStatusSending CampaignStatus = "sending"
	CampaignStatusDone    CampaignStatus = "done"
)

type RecipientStatus string

const (
	RecipientStatusPending RecipientStatus = "pending"
	RecipientStatusSent    RecipientStatus = "sent"
	RecipientStatusFailed  RecipientStatus = "failed"
)

// Recipient is one addressee of a campaign with its own delivery outcome.
// A failed recipient never aborts the batch it belongs to.
type Recipient struct {
	Email  string
	Name   string
	Status RecipientStatus
	SentAt *time.Time
}

type CampaignStats struct {
	Sent   int
	Failed int
}

// Campaign is a bulk transactional mailing. Sending is batched and progress
// is checkpointed after every batch so an interrupted run resumes where it
// stopped (already-sent recipients are skipped).
type Campaign struct {
	ID         string // ULID
	Subject    string
	Body       string
	Recipients []Recipient
	Status     CampaignStatus
	Stats      CampaignStats
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
