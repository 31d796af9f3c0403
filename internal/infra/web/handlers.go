package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amazingprincelee/backend-collabogig/internal/domain"
	"github.com/amazingprincelee/backend-collabogig/internal/domain/model"
	"github.com/amazingprincelee/backend-collabogig/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrPaymentNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrDuplicateTransaction):
		http.Error(w, "conflict", http.StatusConflict)
	case errors.Is(err, domain.ErrLockNotAcquired):
		// Another run holds the transaction; the caller can simply retry.
		http.Error(w, "busy, retry shortly", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type paymentView struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Amount        int64   `json:"amount"`
	Currency      string  `json:"currency"`
	ServiceType   string  `json:"service_type"`
	ServiceID     string  `json:"service_id"`
	PaymentLink   string  `json:"payment_link,omitempty"`
	SettledAt     *string `json:"settled_at,omitempty"`
}

func toPaymentView(p *model.Payment) paymentView {
	v := paymentView{
		TransactionID: p.TransactionID,
		Status:        string(p.Status),
		Amount:        p.Amount,
		Currency:      p.Currency,
		ServiceType:   string(p.ServiceType),
		ServiceID:     p.ServiceID,
		PaymentLink:   p.PaymentLink,
	}
	if p.SettledAt != nil {
		ts := p.SettledAt.UTC().Format("2006-01-02T15:04:05Z")
		v.SettledAt = &ts
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type initiateRequest struct {
	ServiceType string `json:"service_type"`
	ServiceID   string `json:"service_id"`
	Amount      int64  `json:"amount,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Name        string `json:"name"`
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	in := usecase.InitiateInput{
		ServiceType: model.ServiceType(req.ServiceType),
		ServiceID:   req.ServiceID,
		Amount:      req.Amount,
		Contact:     model.ContactSnapshot{Email: req.Email, Phone: req.Phone, Name: req.Name},
	}
	if userID, ok := UserIDFromContext(r.Context()); ok {
		in.UserID = &userID
	}

	p, err := s.paymentUC.Initiate(r.Context(), in)
	if err != nil {
		s.log.Error().Err(err).Msg("payment initiation failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentView(p))
}

type verifyRequest struct {
	TransactionID string `json:"transaction_id"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
		http.Error(w, "transaction_id is required", http.StatusBadRequest)
		return
	}

	p, err := s.paymentUC.Reconcile(r.Context(), usecase.TriggerVerify, req.TransactionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

// handleCallback is the browser return leg. It never settles anything
// itself; it hands the reference to the frontend status page, which polls
// the status endpoint while webhooks and the poller do the real work.
// Flutterwave reports the outcome in a status query param; Paystack omits
// it, so an absent status counts as affirmative.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("tx_ref")
	if ref == "" {
		ref = r.URL.Query().Get("reference")
	}
	if ref == "" {
		ref = r.URL.Query().Get("trxref")
	}

	status := strings.ToLower(r.URL.Query().Get("status"))
	switch status {
	case "", "successful", "success", "completed":
	default:
		// The payer cancelled or the charge failed on the provider page.
		// Nothing to reconcile; webhooks and the poller settle the ledger.
		target := s.frontendBaseURL + "/payment/failed?reason=" + url.QueryEscape(status)
		if ref != "" {
			target += "&transaction_id=" + url.QueryEscape(ref)
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	target := s.frontendBaseURL + "/payment/result"
	if ref != "" {
		target += "?transaction_id=" + url.QueryEscape(ref)

		// Nudge reconciliation so the status page usually sees a terminal
		// state on its first poll.
		if err := s.pool.Submit(s.reconcileTask(usecase.TriggerCallback, ref)); err != nil {
			s.log.Warn().Err(err).Str("transaction_id", ref).Msg("callback reconcile not queued")
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		TxRef     string `json:"tx_ref"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// handleWebhook authenticates the provider callout against the raw body and
// then acknowledges unconditionally; reconciliation runs in the background so
// slow providers never see timeouts and re-deliveries stay harmless.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	provider := model.Provider(chi.URLParam(r, "provider"))
	gw, ok := s.gateways[provider]
	if !ok {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("x-" + string(provider) + "-signature")
	if signature == "" && provider == model.ProviderFlutterwave {
		signature = r.Header.Get("verif-hash")
	}
	if !gw.VerifyWebhookSignature(signature, body) {
		s.log.Warn().Str("provider", string(provider)).Msg("webhook signature rejected")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.log.Warn().Err(err).Str("provider", string(provider)).Msg("webhook payload unparseable")
		w.WriteHeader(http.StatusOK)
		return
	}
	ref := env.Data.TxRef
	if ref == "" {
		ref = env.Data.Reference
	}
	if ref == "" {
		s.log.Warn().Str("provider", string(provider)).Str("event", env.Event).Msg("webhook without reference")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := s.pool.Submit(s.reconcileTask(usecase.TriggerWebhook, ref)); err != nil {
		s.log.Warn().Err(err).Str("transaction_id", ref).Msg("webhook reconcile not queued")
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "transactionID")
	p, err := s.paymentUC.Status(r.Context(), txID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

type campaignCreateRequest struct {
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Recipients []struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"recipients"`
}

func (s *Server) handleCampaignCreate(w http.ResponseWriter, r *http.Request) {
	var req campaignCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	recipients := make([]model.Recipient, 0, len(req.Recipients))
	for _, rc := range req.Recipients {
		recipients = append(recipients, model.Recipient{Email: rc.Email, Name: rc.Name})
	}

	c, err := s.campaignUC.Create(r.Context(), req.Subject, req.Body, recipients)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         c.ID,
		"status":     string(c.Status),
		"recipients": len(c.Recipients),
	})
}

func (s *Server) handleCampaignSend(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")
	if err := s.campaignUC.Send(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "sending"})
}

func (s *Server) handleCampaignStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "campaignID")
	c, err := s.campaignUC.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     c.ID,
		"status": string(c.Status),
		"sent":   c.Stats.Sent,
		"failed": c.Stats.Failed,
		"total":  len(c.Recipients),
	})
}

type referralCreateRequest struct {
	ReferredEmail string `json:"referred_email"`
}

func (s *Server) handleReferralCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	var req referralCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ref, err := s.referralUC.Create(r.Context(), userID, req.ReferredEmail)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":            ref.ID,
		"referral_code": ref.ReferralCode,
		"status":        string(ref.Status),
	})
}

// reconcileTask wraps a reconciliation run for the worker pool. Lock misses
// are normal (someone else is on it) and logged at debug only.
func (s *Server) reconcileTask(trigger usecase.Trigger, transactionID string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if _, err := s.paymentUC.Reconcile(ctx, trigger, transactionID); err != nil {
			if errors.Is(err, domain.ErrLockNotAcquired) {
				s.log.Debug().Str("transaction_id", transactionID).Msg("reconcile already in flight")
				return nil
			}
			s.log.Error().Err(err).Str("transaction_id", transactionID).Str("trigger", string(trigger)).Msg("background reconcile failed")
		}
		return nil
	}
}
