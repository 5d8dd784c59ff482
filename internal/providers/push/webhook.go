package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pawsentry/pawsentry/internal/config"
	"go.uber.org/zap"
)

// WebhookProvider forwards push payloads to an HTTP gateway that fans them
// out to the owner's registered devices.
type WebhookProvider struct {
	url    string
	token  string
	client *http.Client
	log    *zap.Logger
}

func NewWebhookProvider(cfg config.PushConfig, log *zap.Logger) *WebhookProvider {
	return &WebhookProvider{
		url:   cfg.WebhookURL,
		token: cfg.AuthToken,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.Named("providers.push"),
	}
}

type webhookPayload struct {
	OwnerID  string         `json:"owner_id"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Priority string         `json:"priority"`
	Data     map[string]any `json:"data,omitempty"`
}

func (p *WebhookProvider) Send(ctx context.Context, msg Message) error {
	if p.url == "" {
		return fmt.Errorf("push: webhook url is not configured")
	}

	payload, err := json.Marshal(webhookPayload{
		OwnerID:  msg.OwnerID.String(),
		Title:    msg.Title,
		Body:     msg.Body,
		Priority: msg.Priority,
		Data:     msg.Data,
	})
	if err != nil {
		return fmt.Errorf("push: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push: deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push: webhook returned status %d", resp.StatusCode)
	}

	p.log.Debug("push delivered", zap.String("owner_id", msg.OwnerID.String()))
	return nil
}
