package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"    // ledger row created; awaiting provider outcome
	PaymentStatusSuccessful PaymentStatus = "successful" // verified OK at provider; downstream effects applied
	PaymentStatusFailed     PaymentStatus = "failed"     // provider reported failure or verification rejected
)

// IsTerminal reports whether no further status transition is allowed.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSuccessful || s == PaymentStatusFailed
}

type Provider string

const (
	ProviderFlutterwave Provider = "flutterwave"
	ProviderPaystack    Provider = "paystack"
)

func (p Provider) Valid() bool {
	return p == ProviderFlutterwave || p == ProviderPaystack
}

type ServiceType string

const (
	ServiceTypeCourse  ServiceType = "Course"
	ServiceTypeProject ServiceType = "Project"
	ServiceTypeOther   ServiceType = "Other"
)

func (t ServiceType) Valid() bool {
	return t == ServiceTypeCourse || t == ServiceTypeProject || t == ServiceTypeOther
}

// ContactSnapshot captures the contact details submitted at initiation time.
// The paying party may not have an account yet, so the snapshot is the only
// way to resolve (or create) a user during reconciliation.
type ContactSnapshot struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

// Payment is the durable record of a payment attempt. TransactionID is the
// provider-facing reference; it is immutable once created and never reused.
type Payment struct {
	ID            string  // UUID
	TransactionID string  // canonical provider reference, globally unique
	UserID        *string // nil for guest checkout
	Provider      Provider
	ServiceType   ServiceType
	ServiceID     string // resolved against the service type lookup table
	Amount        int64  // major currency unit (plain NGN), no minor-unit scaling
	Currency      string
	Status        PaymentStatus
	Meta          ContactSnapshot
	PaymentLink   string // provider-hosted checkout URL
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SettledAt     *time.Time // set when the record reaches a terminal state
}
