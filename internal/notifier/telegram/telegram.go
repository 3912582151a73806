package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/notifier"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}
	if t.apiBase == "" {
		t.apiBase = defaultAPIBase
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, breakout core.Breakout) error {
	return t.sendMessage(ctx, t.formatBreakout(breakout))
}

func (t *Telegram) SendBatch(ctx context.Context, breakouts []core.Breakout) error {
	if len(breakouts) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🚀 *%d New Breakouts*\n\n", len(breakouts)))

	for i, b := range breakouts {
		sb.WriteString(t.formatBreakout(b))
		if i < len(breakouts)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return t.sendMessage(ctx, sb.String())
}

func (t *Telegram) formatBreakout(b core.Breakout) string {
	var sb strings.Builder

	emoji := "📈"
	if b.BreakoutPct < 0 {
		emoji = "📉"
	}

	sb.WriteString(fmt.Sprintf("%s *%s* (%s) - %s\n", emoji, b.Symbol, b.Exchange, horizonTitle(b.Horizon)))
	sb.WriteString(fmt.Sprintf("💰 Close: %.2f / Level: %.2f\n", b.ClosePrice, b.BreakoutLevel))
	sb.WriteString(fmt.Sprintf("📊 Change: %+.2f%%\n", b.BreakoutPct))

	if b.VolumeConfirmation {
		sb.WriteString(fmt.Sprintf("🔊 Volume confirmed: %d\n", b.Volume))
	}

	if !b.DetectedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("⏰ Time: %s", b.DetectedAt.Format("2006-01-02 15:04:05")))
	} else if b.TradeDate != "" {
		sb.WriteString(fmt.Sprintf("📅 Date: %s", b.TradeDate))
	}

	return sb.String()
}

func horizonTitle(h core.Horizon) string {
	for _, g := range core.Groups() {
		if g.Horizon == h {
			return g.Title
		}
	}
	return string(h)
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
