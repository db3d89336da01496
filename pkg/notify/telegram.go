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

// DefaultTelegramAPI is the Bot API endpoint.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	BotToken  string `yaml:"bot_token" json:"bot_token" env:"STOCKER_TELEGRAM_TOKEN"`
	ChannelID string `yaml:"channel_id" json:"channel_id" env:"STOCKER_TELEGRAM_CHAT"`
	// APIBase overrides DefaultTelegramAPI.
	APIBase string `yaml:"api_base" json:"api_base"`
}

// Enabled reports whether both the token and the chat are set.
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// TelegramNotifier sends messages via Telegram Bot API.
type TelegramNotifier struct {
	config TelegramConfig
	http   *http.Client
}

// NewTelegramNotifier creates a new Telegram notifier.
func NewTelegramNotifier(cfg TelegramConfig) *TelegramNotifier {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTelegramAPI
	}
	return &TelegramNotifier{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Channel() Channel { return ChannelTelegram }

// Send sends a message via Telegram. Markdown messages use MarkdownV2 with
// the title escaped; plain messages are sent as-is.
func (t *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"chat_id": t.config.ChannelID,
		"text":    telegramText(msg),
	}
	if msg.Format == "markdown" {
		payload["parse_mode"] = "MarkdownV2"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.config.APIBase, "/"), t.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram API error (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func telegramText(msg Message) string {
	markdown := msg.Format == "markdown"
	var sb strings.Builder
	if msg.Title != "" {
		if markdown {
			sb.WriteString("*" + EscapeMarkdown(msg.Title) + "*")
		} else {
			sb.WriteString(msg.Title)
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString(msg.Body)
	if msg.URL != "" {
		sb.WriteString("\n\n")
		if markdown {
			sb.WriteString(EscapeMarkdown(msg.URL))
		} else {
			sb.WriteString(msg.URL)
		}
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer(
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// EscapeMarkdown escapes special characters for Telegram MarkdownV2.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}
