package model

import "time"

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "Pending"
	ReferralStatusFreeClass ReferralStatus = "Free Class"
	ReferralStatusPaid      ReferralStatus = "Paid"
	ReferralStatusCompleted ReferralStatus = "Completed"
)

// Referral tracks a referrer's claim on a referred user. Commission is
// accumulated by the reconciliation engine at most once per successful
// payment; the at-most-once guard is a settlement record keyed by payment,
// not this struct.
type Referral struct {
	ID                   string
	ReferrerID           string
	ReferredEmail        string
	ReferredUserID       *string // linked once the referred user registers
	ReferralCode         string
	CommissionPercentage int64
	Commission           int64 // accumulated, major currency unit
	Status               ReferralStatus
	CreatedAt            time.Time
}

// Active reports whether the referral can still earn commission.
func (r *Referral) Active() bool {
	return r.Status != ReferralStatusCompleted
}

// CommissionFor computes the commission a successful payment of amount earns.
func (r *Referral) CommissionFor(amount int64) int64 {
	return amount * r.CommissionPercentage / 100
}
