package adapter

import "context"

// NotificationDispatcher sends transactional messages triggered by
// reconciliation. Implementations are side-effecting collaborators: errors
// are logged by callers and never retried, and a failed notification never
// fails the reconciliation that triggered it.
type NotificationDispatcher interface {
	// SendWelcome delivers the guest-promotion mail carrying the generated
	// temporary password.
	SendWelcome(ctx context.Context, email, name, courseTitle, tempPassword string) error

	// SendPaymentSuccess confirms a settled payment to the payer.
	SendPaymentSuccess(ctx context.Context, email, name string, amount int64, serviceTitle string) error

	// SendReferralCredited tells a referrer their commission balance grew.
	SendReferralCredited(ctx context.Context, email string, commission int64) error

	// SendSMS delivers a short message, used for imminent class-start
	// reminders.
	SendSMS(ctx context.Context, phone, message string) error
}
