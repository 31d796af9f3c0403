package adapter

import (
	"context"

	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
)

// Customer identifies the paying party to the provider.
type Customer struct {
	Email string
	Name  string
	Phone string
}

// InitRequest carries everything a provider needs to create a remote
// pending transaction.
type InitRequest struct {
	Amount    int64
	Currency  string
	Customer  Customer
	Reference string // canonical reference; the adapter sanitizes it per provider
	Meta      map[string]string
}

// VerifyResult is the provider's read-only view of a transaction.
type VerifyResult struct {
	Successful bool
	Amount     int64
	Currency   string
	Raw        map[string]interface{}
}

// PaymentGateway is the port for payment providers. VerifyPayment must be
// idempotent: it is a read on the provider and safe to call any number of
// times for the same reference.
type PaymentGateway interface {
	Name() model.Provider

	// InitializePayment creates a remote pending transaction and returns the
	// provider-hosted checkout URL.
	InitializePayment(ctx context.Context, req InitRequest) (paymentLink string, err error)

	// VerifyPayment looks up the transaction outcome for a reference.
	VerifyPayment(ctx context.Context, reference string) (VerifyResult, error)

	// VerifyWebhookSignature checks the provider's signature header against
	// the raw request body before the payload may be trusted.
	VerifyWebhookSignature(signature string, body []byte) bool
}
