package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const webhookUserAgent = "stocker-webhook/1.0"

// WebhookConfig configures a generic JSON webhook.
type WebhookConfig struct {
	URL     string            `yaml:"url" json:"url" env:"STOCKER_WEBHOOK_URL"`
	Headers map[string]string `yaml:"headers" json:"headers"`
	Timeout time.Duration     `yaml:"timeout" json:"timeout"`
}

// WebhookNotifier posts run summaries as JSON.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookNotifier returns a notifier posting to cfg.URL. A zero timeout
// means ten seconds.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (w *WebhookNotifier) Channel() Channel { return ChannelWebhook }

type webhookPayload struct {
	Source string `json:"source"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Format string `json:"format"`
	URL    string `json:"url,omitempty"`
	SentAt string `json:"sent_at"`
}

// Send posts the message. Any status outside 2xx is an error carrying the
// start of the response body.
func (w *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		Source: "stocker",
		Title:  msg.Title,
		Body:   msg.Body,
		Format: msg.Format,
		URL:    msg.URL,
		SentAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
