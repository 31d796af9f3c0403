package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amazingprincelee/backend-collabogig/internal/config"
)

var _ SMSSender = (*TermiiSender)(nil)

// TermiiSender delivers SMS through the Termii REST API.
type TermiiSender struct {
	apiKey   string
	senderID string
	baseURL  string
	client   *http.Client
}

func NewTermiiSender(cfg *config.SMSConfig) *TermiiSender {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.ng.termii.com"
	}
	return &TermiiSender{
		apiKey:   cfg.APIKey,
		senderID: cfg.SenderID,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *TermiiSender) Send(ctx context.Context, phone, message string) error {
	payload := map[string]interface{}{
		"to":      phone,
		"from":    s.senderID,
		"sms":     message,
		"type":    "plain",
		"channel": "generic",
		"api_key": s.apiKey,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/sms/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sms send: status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
