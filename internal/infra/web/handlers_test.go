//go:build !integration

package web

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/ports/adapter"
	"github.com/amazingprincelee/backend-collabogig/internal/infra/worker"
	"github.com/amazingprincelee/backend-collabogig/internal/usecase"
)

// --- usecase mocks ---

type mockPaymentUC struct {
	InitiateFunc  func(ctx context.Context, in usecase.InitiateInput) (*model.Payment, error)
	ReconcileFunc func(ctx context.Context, trigger usecase.Trigger, transactionID string) (*model.Payment, error)
	StatusFunc    func(ctx context.Context, transactionID string) (*model.Payment, error)
}

func (m *mockPaymentUC) Initiate(ctx context.Context, in usecase.InitiateInput) (*model.Payment, error) {
	return m.InitiateFunc(ctx, in)
}

func (m *mockPaymentUC) Reconcile(ctx context.Context, trigger usecase.Trigger, transactionID string) (*model.Payment, error) {
	return m.ReconcileFunc(ctx, trigger, transactionID)
}

func (m *mockPaymentUC) Status(ctx context.Context, transactionID string) (*model.Payment, error) {
	return m.StatusFunc(ctx, transactionID)
}

type mockCampaignUC struct {
	CreateFunc func(ctx context.Context, subject, body string, recipients []model.Recipient) (*model.Campaign, error)
	SendFunc   func(ctx context.Context, campaignID string) error
	StatusFunc func(ctx context.Context, campaignID string) (*model.Campaign, error)
}

func (m *mockCampaignUC) Create(ctx context.Context, subject, body string, recipients []model.Recipient) (*model.Campaign, error) {
	return m.CreateFunc(ctx, subject, body, recipients)
}

func (m *mockCampaignUC) Send(ctx context.Context, campaignID string) error {
	return m.SendFunc(ctx, campaignID)
}

func (m *mockCampaignUC) Status(ctx context.Context, campaignID string) (*model.Campaign, error) {
	return m.StatusFunc(ctx, campaignID)
}

type mockReferralUC struct {
	CreateFunc func(ctx context.Context, referrerID, referredEmail string) (*model.Referral, error)
}

func (m *mockReferralUC) Create(ctx context.Context, referrerID, referredEmail string) (*model.Referral, error) {
	return m.CreateFunc(ctx, referrerID, referredEmail)
}

func (m *mockReferralUC) LinkOnRegistration(ctx context.Context, userID, email string) error {
	return nil
}

type stubGateway struct {
	name      model.Provider
	signature func(signature string, body []byte) bool
}

func (g *stubGateway) Name() model.Provider { return g.name }

func (g *stubGateway) InitializePayment(ctx context.Context, req adapter.InitRequest) (string, error) {
	return "https://checkout.example.com/pay", nil
}

func (g *stubGateway) VerifyPayment(ctx context.Context, reference string) (adapter.VerifyResult, error) {
	return adapter.VerifyResult{Successful: true}, nil
}

func (g *stubGateway) VerifyWebhookSignature(signature string, body []byte) bool {
	return g.signature(signature, body)
}

// --- fixture ---

type webFixture struct {
	server    *Server
	payments  *mockPaymentUC
	campaigns *mockCampaignUC
	referrals *mockReferralUC
	auth      *AuthManager
	handler   http.Handler
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	logger := zerolog.Nop()
	pool := worker.NewPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})

	samplePayment := &model.Payment{
		TransactionID: "phylee_1",
		Status:        model.PaymentStatusPending,
		Amount:        50000,
		Currency:      "NGN",
		ServiceType:   model.ServiceTypeCourse,
		ServiceID:     "group-1",
		PaymentLink:   "https://checkout.example.com/pay",
	}

	f := &webFixture{
		payments: &mockPaymentUC{
			InitiateFunc: func(ctx context.Context, in usecase.InitiateInput) (*model.Payment, error) {
				return samplePayment, nil
			},
			ReconcileFunc: func(ctx context.Context, trigger usecase.Trigger, transactionID string) (*model.Payment, error) {
				p := *samplePayment
				p.Status = model.PaymentStatusSuccessful
				return &p, nil
			},
			StatusFunc: func(ctx context.Context, transactionID string) (*model.Payment, error) {
				if transactionID != "phylee_1" {
					return nil, domain.ErrPaymentNotFound
				}
				return samplePayment, nil
			},
		},
		campaigns: &mockCampaignUC{
			CreateFunc: func(ctx context.Context, subject, body string, recipients []model.Recipient) (*model.Campaign, error) {
				return &model.Campaign{ID: "01CAMPAIGN", Status: model.CampaignStatusDraft, Recipients: recipients}, nil
			},
			SendFunc: func(ctx context.Context, campaignID string) error { return nil },
			StatusFunc: func(ctx context.Context, campaignID string) (*model.Campaign, error) {
				return &model.Campaign{ID: campaignID, Status: model.CampaignStatusSending}, nil
			},
		},
		referrals: &mockReferralUC{
			CreateFunc: func(ctx context.Context, referrerID, referredEmail string) (*model.Referral, error) {
				return &model.Referral{ID: "ref-1", ReferralCode: "CODE1", Status: model.ReferralStatusPending}, nil
			},
		},
		auth: NewAuthManager("test-secret", time.Hour),
	}

	gateways := map[model.Provider]adapter.PaymentGateway{
		model.ProviderPaystack: &stubGateway{
			name: model.ProviderPaystack,
			signature: func(signature string, body []byte) bool {
				mac := hmac.New(sha512.New, []byte("sk-test"))
				mac.Write(body)
				return signature == hex.EncodeToString(mac.Sum(nil))
			},
		},
	}

	f.server = NewServer(f.payments, f.campaigns, f.referrals, gateways, f.auth, nil, pool,
		"https://app.example.com", &logger)
	f.handler = f.server.Routes()
	return f
}

func (f *webFixture) bearer(t *testing.T) string {
	t.Helper()
	tok, err := f.auth.Mint("user-1", "ada@example.com")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + tok
}

func TestPaymentEndpoints(t *testing.T) {
	t.Run("should create a pending payment for a guest", func(t *testing.T) {
		f := newWebFixture(t)
		body := `{"service_type":"Course","service_id":"group-1","email":"ada@example.com","name":"Ada"}`
		req := httptest.NewRequest(http.MethodPost, "/payment/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var view paymentView
		_ = json.Unmarshal(rec.Body.Bytes(), &view)
		if view.PaymentLink == "" {
			t.Error("expected the checkout link in the response")
		}
	})

	t.Run("should pass the authenticated user id to initiation", func(t *testing.T) {
		f := newWebFixture(t)
		var gotUserID *string
		f.payments.InitiateFunc = func(ctx context.Context, in usecase.InitiateInput) (*model.Payment, error) {
			gotUserID = in.UserID
			return &model.Payment{TransactionID: "phylee_2", Status: model.PaymentStatusPending}, nil
		}

		body := `{"service_type":"Other","service_id":"donation","amount":1000,"email":"ada@example.com"}`
		req := httptest.NewRequest(http.MethodPost, "/payment/", strings.NewReader(body))
		req.Header.Set("Authorization", f.bearer(t))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if gotUserID == nil || *gotUserID != "user-1" {
			t.Errorf("expected user-1 attached, got %v", gotUserID)
		}
	})

	t.Run("should require a session for explicit verification", func(t *testing.T) {
		f := newWebFixture(t)
		body := `{"transaction_id":"phylee_1"}`
		req := httptest.NewRequest(http.MethodPost, "/payment/verify", strings.NewReader(body))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without token, got %d", rec.Code)
		}

		req = httptest.NewRequest(http.MethodPost, "/payment/verify", strings.NewReader(body))
		req.Header.Set("Authorization", f.bearer(t))
		rec = httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 with token, got %d", rec.Code)
		}
		var view paymentView
		_ = json.Unmarshal(rec.Body.Bytes(), &view)
		if view.Status != string(model.PaymentStatusSuccessful) {
			t.Errorf("expected successful status, got %s", view.Status)
		}
	})

	t.Run("should redirect the callback to the frontend result page", func(t *testing.T) {
		f := newWebFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/payment/callback?tx_ref=phylee-1&status=successful", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		loc := rec.Header().Get("Location")
		if !strings.HasPrefix(loc, "https://app.example.com/payment/result?transaction_id=phylee-1") {
			t.Errorf("unexpected redirect target %q", loc)
		}
	})

	t.Run("should treat a callback without a status as affirmative", func(t *testing.T) {
		f := newWebFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/payment/callback?trxref=phylee-1", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); !strings.Contains(loc, "/payment/result") {
			t.Errorf("expected the result page, got %q", loc)
		}
	})

	t.Run("should route a cancelled callback to the failure page without reconciling", func(t *testing.T) {
		f := newWebFixture(t)
		reconciled := make(chan struct{}, 1)
		f.payments.ReconcileFunc = func(ctx context.Context, trigger usecase.Trigger, transactionID string) (*model.Payment, error) {
			reconciled <- struct{}{}
			return nil, domain.ErrPaymentNotFound
		}

		req := httptest.NewRequest(http.MethodGet, "/payment/callback?tx_ref=phylee-1&status=cancelled", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		loc := rec.Header().Get("Location")
		if !strings.HasPrefix(loc, "https://app.example.com/payment/failed?reason=cancelled") {
			t.Errorf("expected the failure page with a reason, got %q", loc)
		}
		if !strings.Contains(loc, "transaction_id=phylee-1") {
			t.Errorf("expected the reference on the failure redirect, got %q", loc)
		}
		select {
		case <-reconciled:
			t.Fatal("expected no reconciliation for a non-affirmative status")
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("should return the ledger status", func(t *testing.T) {
		f := newWebFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/payment/status/phylee_1", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		req = httptest.NewRequest(http.MethodGet, "/payment/status/phylee_missing", nil)
		rec = httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unknown transaction, got %d", rec.Code)
		}
	})
}

func TestWebhookEndpoint(t *testing.T) {
	sign := func(body []byte) string {
		mac := hmac.New(sha512.New, []byte("sk-test"))
		mac.Write(body)
		return hex.EncodeToString(mac.Sum(nil))
	}

	t.Run("should reject a bad signature before reading the payload", func(t *testing.T) {
		f := newWebFixture(t)
		body := []byte(`{"event":"charge.success","data":{"reference":"phylee-1"}}`)
		req := httptest.NewRequest(http.MethodPost, "/payment/webhook/paystack", bytes.NewReader(body))
		req.Header.Set("x-paystack-signature", "bogus")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("should acknowledge a signed webhook and reconcile in the background", func(t *testing.T) {
		f := newWebFixture(t)
		reconciled := make(chan string, 1)
		f.payments.ReconcileFunc = func(ctx context.Context, trigger usecase.Trigger, transactionID string) (*model.Payment, error) {
			if trigger != usecase.TriggerWebhook {
				t.Errorf("expected webhook trigger, got %s", trigger)
			}
			reconciled <- transactionID
			return &model.Payment{TransactionID: transactionID, Status: model.PaymentStatusSuccessful}, nil
		}

		body := []byte(`{"event":"charge.success","data":{"reference":"phylee-1"}}`)
		req := httptest.NewRequest(http.MethodPost, "/payment/webhook/paystack", bytes.NewReader(body))
		req.Header.Set("x-paystack-signature", sign(body))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		select {
		case ref := <-reconciled:
			if ref != "phylee-1" {
				t.Errorf("expected phylee-1, got %s", ref)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("background reconciliation never ran")
		}
	})

	t.Run("should still acknowledge a signed but unparseable payload", func(t *testing.T) {
		f := newWebFixture(t)
		body := []byte(`not json at all`)
		req := httptest.NewRequest(http.MethodPost, "/payment/webhook/paystack", bytes.NewReader(body))
		req.Header.Set("x-paystack-signature", sign(body))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("should 404 an unknown provider", func(t *testing.T) {
		f := newWebFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/payment/webhook/stripe", strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestCampaignEndpoints(t *testing.T) {
	t.Run("should require a session", func(t *testing.T) {
		f := newWebFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/campaigns/", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("should accept a send request asynchronously", func(t *testing.T) {
		f := newWebFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/campaigns/01CAMPAIGN/send", nil)
		req.Header.Set("Authorization", f.bearer(t))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
	})

	t.Run("should surface an already finished campaign as conflict", func(t *testing.T) {
		f := newWebFixture(t)
		f.campaigns.SendFunc = func(ctx context.Context, campaignID string) error {
			return domain.ErrAlreadyExists
		}
		req := httptest.NewRequest(http.MethodPost, "/campaigns/01CAMPAIGN/send", nil)
		req.Header.Set("Authorization", f.bearer(t))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestReferralEndpoint(t *testing.T) {
	t.Run("should create a referral for the authenticated user", func(t *testing.T) {
		f := newWebFixture(t)
		var gotReferrer string
		f.referrals.CreateFunc = func(ctx context.Context, referrerID, referredEmail string) (*model.Referral, error) {
			gotReferrer = referrerID
			return &model.Referral{ID: "ref-1", ReferralCode: "CODE1", Status: model.ReferralStatusPending}, nil
		}

		req := httptest.NewRequest(http.MethodPost, "/referrals", strings.NewReader(`{"referred_email":"friend@example.com"}`))
		req.Header.Set("Authorization", f.bearer(t))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if gotReferrer != "user-1" {
			t.Errorf("expected referrer user-1, got %q", gotReferrer)
		}
	})
}
