// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/notifier"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg notifier.Config) error {
	if url, ok := cfg.Params["url"].(string); ok {
		w.url = url
	}
	switch headers := cfg.Params["headers"].(type) {
	case map[string]string:
		w.headers = headers
	case map[string]any:
		w.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			w.headers[k] = fmt.Sprint(v)
		}
	}

	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}

	if w.client == nil {
		w.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (w *Webhook) Send(ctx context.Context, breakout core.Breakout) error {
	return w.post(ctx, w.breakoutToPayload(breakout))
}

func (w *Webhook) SendBatch(ctx context.Context, breakouts []core.Breakout) error {
	if len(breakouts) == 0 {
		return nil
	}

	payloads := make([]map[string]any, len(breakouts))
	for i, b := range breakouts {
		payloads[i] = w.breakoutToPayload(b)
	}

	batchPayload := map[string]any{
		"type":      "batch",
		"count":     len(breakouts),
		"breakouts": payloads,
	}

	return w.post(ctx, batchPayload)
}

func (w *Webhook) breakoutToPayload(b core.Breakout) map[string]any {
	payload := map[string]any{
		"type":                "breakout",
		"symbol":              b.Symbol,
		"exchange":            b.Exchange,
		"breakout_type":       b.Horizon,
		"close_price":         b.ClosePrice,
		"breakout_level":      b.BreakoutLevel,
		"breakout_pct":        b.BreakoutPct,
		"volume":              b.Volume,
		"volume_confirmation": b.VolumeConfirmation,
		"trade_date":          b.TradeDate,
	}
	if !b.DetectedAt.IsZero() {
		payload["detected_at"] = b.DetectedAt.Format(time.RFC3339)
	}
	return payload
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
