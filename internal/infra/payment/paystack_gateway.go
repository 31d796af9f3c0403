package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*PaystackGateway)(nil)

// PaystackGateway implements the payment port against the Paystack API.
// Amounts are converted to the minor unit (kobo) at the wire; the rest of
// the system stays in the major unit.
type PaystackGateway struct {
	secretKey   string
	baseURL     string
	redirectURL string
	client      *http.Client
}

func NewPaystackGateway(secretKey, baseURL, redirectURL string) (*PaystackGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("%w: paystack secret key is missing", domain.ErrProviderInit)
	}
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &PaystackGateway{
		secretKey:   secretKey,
		baseURL:     baseURL,
		redirectURL: redirectURL,
		client:      &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *PaystackGateway) Name() model.Provider { return model.ProviderPaystack }

type pstkInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type pstkVerifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status   string `json:"status"`
		Amount   int64  `json:"amount"` // kobo
		Currency string `json:"currency"`
	} `json:"data"`
}

// InitializePayment creates a hosted checkout session. The canonical
// reference goes up unchanged; Paystack echoes it back verbatim in webhooks
// and the redirect, so it must stay equal to the ledger key. References are
// minted inside Paystack's [A-Za-z0-9-=.] charset, see NewReference.
func (g *PaystackGateway) InitializePayment(ctx context.Context, req adapter.InitRequest) (string, error) {
	payload := map[string]interface{}{
		"email":        req.Customer.Email,
		"amount":       req.Amount * 100, // kobo
		"currency":     req.Currency,
		"reference":    req.Reference,
		"callback_url": g.redirectURL,
		"metadata":     req.Meta,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal init payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderInit, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrProviderInit, err)
	}
	var out pstkInitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", domain.ErrProviderInit, err)
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrProviderInit, out.Message)
	}
	return out.Data.AuthorizationURL, nil
}

func (g *PaystackGateway) VerifyPayment(ctx context.Context, reference string) (adapter.VerifyResult, error) {
	endpoint := g.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return adapter.VerifyResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return adapter.VerifyResult{}, fmt.Errorf("%w: %v", domain.ErrProviderVerify, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapter.VerifyResult{}, fmt.Errorf("%w: read body: %v", domain.ErrProviderVerify, err)
	}
	var out pstkVerifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return adapter.VerifyResult{}, fmt.Errorf("%w: decode: %v", domain.ErrProviderVerify, err)
	}
	if !out.Status {
		return adapter.VerifyResult{}, fmt.Errorf("%w: lookup rejected", domain.ErrProviderVerify)
	}

	var rawMap map[string]interface{}
	_ = json.Unmarshal(raw, &rawMap)
	return adapter.VerifyResult{
		Successful: out.Data.Status == "success",
		Amount:     out.Data.Amount / 100, // back to major unit
		Currency:   out.Data.Currency,
		Raw:        rawMap,
	}, nil
}

// VerifyWebhookSignature checks the x-paystack-signature header: an
// HMAC-SHA512 of the raw body keyed with the secret key, hex encoded.
func (g *PaystackGateway) VerifyWebhookSignature(signature string, body []byte) bool {
	if g.secretKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(g.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
