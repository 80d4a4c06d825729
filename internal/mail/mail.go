// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

// Package mail delivers verification and password reset links.
package mail

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/samber/oops"

	"github.com/Skets-max/Project-473/internal/auth"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport sends rendered messages.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier implements auth.Notifier by rendering templates and handing them
// to a Transport. Links point at baseURL.
type Notifier struct {
	transport Transport
	baseURL   *url.URL
	product   string
}

// NewNotifier creates a Notifier. baseURL must be absolute.
func NewNotifier(transport Transport, baseURL string) (*Notifier, error) {
	if transport == nil {
		return nil, oops.Errorf("mail transport is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() {
		return nil, oops.Code("MAIL_BAD_BASE_URL").With("base_url", baseURL).Errorf("base URL must be absolute")
	}
	return &Notifier{transport: transport, baseURL: u, product: "Neighborhood Watch"}, nil
}

// SendVerification mails the email verification link.
func (n *Notifier) SendVerification(ctx context.Context, user auth.Profile, token string) error {
	return n.send(ctx, user, verificationTemplate, n.link("/api/verify-email", token))
}

// SendPasswordReset mails the password reset link.
func (n *Notifier) SendPasswordReset(ctx context.Context, user auth.Profile, token string) error {
	return n.send(ctx, user, resetTemplate, n.link("/reset-password", token))
}

func (n *Notifier) link(path, token string) string {
	u := *n.baseURL
	u.Path = path
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String()
}

func (n *Notifier) send(ctx context.Context, user auth.Profile, tmpl *template, link string) error {
	msg, err := tmpl.render(templateData{
		Name:    user.DisplayName,
		Link:    link,
		Product: n.product,
	})
	if err != nil {
		return oops.Code("MAIL_RENDER_FAILED").With("template", tmpl.name).Wrap(err)
	}
	msg.To = user.Email
	if err := n.transport.Send(ctx, msg); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("template", tmpl.name).
			Wrap(err)
	}
	return nil
}

// LogTransport writes messages to a logger instead of sending them.
// It is the development default.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a LogTransport. A nil logger uses slog.Default().
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Send logs the message.
func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	t.logger.InfoContext(ctx, "mail not sent, log transport",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text)
	return nil
}

var _ auth.Notifier = (*Notifier)(nil)
