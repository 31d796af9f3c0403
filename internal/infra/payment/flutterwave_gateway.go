package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
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

var _ adapter.PaymentGateway = (*FlutterwaveGateway)(nil)

// FlutterwaveGateway implements the payment port against the Flutterwave v3
// REST API.
type FlutterwaveGateway struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	redirectURL   string
	client        *http.Client
}

func NewFlutterwaveGateway(secretKey, webhookSecret, baseURL, redirectURL string) (*FlutterwaveGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("%w: flutterwave secret key is missing", domain.ErrProviderInit)
	}
	if baseURL == "" {
		baseURL = "https://api.flutterwave.com"
	}
	return &FlutterwaveGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		redirectURL:   redirectURL,
		client:        &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *FlutterwaveGateway) Name() model.Provider { return model.ProviderFlutterwave }

type flwInitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type flwVerifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		Status   string  `json:"status"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		TxRef    string  `json:"tx_ref"`
	} `json:"data"`
}

// InitializePayment creates a hosted checkout session. The canonical
// reference goes up unchanged as tx_ref.
func (g *FlutterwaveGateway) InitializePayment(ctx context.Context, req adapter.InitRequest) (string, error) {
	payload := map[string]interface{}{
		"tx_ref":       req.Reference,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"redirect_url": g.redirectURL,
		"customer": map[string]string{
			"email":       req.Customer.Email,
			"name":        req.Customer.Name,
			"phonenumber": req.Customer.Phone,
		},
		"meta": req.Meta,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal init payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v3/payments", bytes.NewReader(body))
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
	var out flwInitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", domain.ErrProviderInit, err)
	}
	if out.Status != "success" || out.Data.Link == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrProviderInit, out.Message)
	}
	return out.Data.Link, nil
}

// VerifyPayment resolves the transaction by reference. Flutterwave verifies
// by numeric transaction id or by tx_ref; the reference lookup endpoint is
// used so callers only ever need the canonical reference.
func (g *FlutterwaveGateway) VerifyPayment(ctx context.Context, reference string) (adapter.VerifyResult, error) {
	endpoint := fmt.Sprintf("%s/v3/transactions/verify_by_reference?tx_ref=%s", g.baseURL, url.QueryEscape(reference))
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
	var out flwVerifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return adapter.VerifyResult{}, fmt.Errorf("%w: decode: %v", domain.ErrProviderVerify, err)
	}
	if out.Status != "success" {
		return adapter.VerifyResult{}, fmt.Errorf("%w: status %q", domain.ErrProviderVerify, out.Status)
	}

	var rawMap map[string]interface{}
	_ = json.Unmarshal(raw, &rawMap)
	return adapter.VerifyResult{
		Successful: out.Data.Status == "successful",
		Amount:     int64(out.Data.Amount),
		Currency:   out.Data.Currency,
		Raw:        rawMap,
	}, nil
}

// VerifyWebhookSignature checks the x-flutterwave-signature header: an
// HMAC-SHA256 of the raw body keyed with the webhook secret, hex encoded.
func (g *FlutterwaveGateway) VerifyWebhookSignature(signature string, body []byte) bool {
	if g.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
