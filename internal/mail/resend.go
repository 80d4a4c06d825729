// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
)

// DefaultResendBaseURL is the Resend API endpoint.
const DefaultResendBaseURL = "https://api.resend.com"

// ResendTransport sends mail through the Resend HTTP API.
type ResendTransport struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

// NewResendTransport creates a ResendTransport. An empty baseURL uses DefaultResendBaseURL.
func NewResendTransport(apiKey, from, baseURL string) (*ResendTransport, error) {
	if apiKey == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("resend API key is required")
	}
	if from == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("sender address is required")
	}
	if baseURL == "" {
		baseURL = DefaultResendBaseURL
	}
	return &ResendTransport{
		apiKey:  apiKey,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// Send posts the message. Any non-2xx response is an error; nothing is retried.
func (t *ResendTransport) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resendRequest{
		From:    t.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return oops.Code("MAIL_ENCODE_FAILED").Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return oops.Code("MAIL_REQUEST_FAILED").Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return oops.Code("MAIL_REQUEST_FAILED").With("operation", "post email").Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully read or discarded

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best-effort detail
		return oops.Code("MAIL_REJECTED").
			With("status", resp.StatusCode).
			With("detail", string(detail)).
			Errorf("resend returned status %d", resp.StatusCode)
	}
	return nil
}
