// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/notifier"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendFunc
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Init(cfg notifier.Config) error {
	if host, ok := cfg.Params["host"].(string); ok {
		e.host = host
	}
	if port, ok := cfg.Params["port"].(int); ok && port > 0 {
		e.port = port
	}
	if username, ok := cfg.Params["username"].(string); ok {
		e.username = username
	}
	if password, ok := cfg.Params["password"].(string); ok {
		e.password = password
	}
	if from, ok := cfg.Params["from"].(string); ok {
		e.from = from
	}
	switch to := cfg.Params["to"].(type) {
	case []string:
		e.to = to
	case []any:
		e.to = make([]string, 0, len(to))
		for _, v := range to {
			e.to = append(e.to, fmt.Sprint(v))
		}
	}

	if e.port == 0 {
		e.port = 587
	}
	if e.send == nil {
		e.send = smtp.SendMail
	}
	if e.host == "" || e.from == "" || len(e.to) == 0 {
		return fmt.Errorf("email: host, from, and to are required")
	}
	return nil
}

func (e *Email) Send(ctx context.Context, breakout core.Breakout) error {
	subject := fmt.Sprintf("Breakout: %s %s %s", breakout.Exchange, breakout.Symbol, horizonTitle(breakout.Horizon))
	return e.sendEmail(ctx, subject, e.formatBreakout(breakout))
}

func (e *Email) SendBatch(ctx context.Context, breakouts []core.Breakout) error {
	if len(breakouts) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Breakout digest: %d new breakouts", len(breakouts))

	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString("<h2>New breakouts</h2>")
	sb.WriteString(fmt.Sprintf("<p>Generated at: %s</p>", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString("<hr>")

	for _, b := range breakouts {
		sb.WriteString(e.formatBreakoutHTML(b))
		sb.WriteString("<hr>")
	}

	sb.WriteString("</body></html>")

	return e.sendEmail(ctx, subject, sb.String())
}

func (e *Email) formatBreakout(b core.Breakout) string {
	return fmt.Sprintf(`
New breakout

Symbol: %s:%s
Horizon: %s
Close: %.2f
Level: %.2f
Change: %+.2f%%
Volume: %d (confirmed: %t)
Detected: %s
`,
		b.Exchange, b.Symbol,
		horizonTitle(b.Horizon),
		b.ClosePrice,
		b.BreakoutLevel,
		b.BreakoutPct,
		b.Volume, b.VolumeConfirmation,
		detectedAt(b),
	)
}

func (e *Email) formatBreakoutHTML(b core.Breakout) string {
	color := "#28a745" // green above the level
	if b.BreakoutPct < 0 {
		color = "#dc3545" // red below
	}

	return fmt.Sprintf(`
<div style="margin: 10px 0;">
  <h3 style="color: %s;">%s:%s - %s</h3>
  <p><strong>Close:</strong> %.2f <strong>Level:</strong> %.2f (%+.2f%%)</p>
  <p><strong>Volume:</strong> %d%s</p>
  <p><small>%s</small></p>
</div>
`,
		color,
		html.EscapeString(b.Exchange), html.EscapeString(b.Symbol),
		horizonTitle(b.Horizon),
		b.ClosePrice, b.BreakoutLevel, b.BreakoutPct,
		b.Volume, confirmedSuffix(b.VolumeConfirmation),
		detectedAt(b),
	)
}

func horizonTitle(h core.Horizon) string {
	for _, g := range core.Groups() {
		if g.Horizon == h {
			return g.Title
		}
	}
	return string(h)
}

func confirmedSuffix(ok bool) string {
	if ok {
		return " (volume confirmed)"
	}
	return ""
}

func detectedAt(b core.Breakout) string {
	if b.DetectedAt.IsZero() {
		return b.TradeDate
	}
	return b.DetectedAt.Format("2006-01-02 15:04:05")
}

func (e *Email) sendEmail(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	contentType := "text/plain"
	if strings.Contains(body, "<html>") {
		contentType = "text/html"
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: %s; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		contentType,
		body,
	)

	return e.send(addr, auth, e.from, e.to, []byte(msg))
}
