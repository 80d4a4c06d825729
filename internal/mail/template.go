// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

package mail

import (
	"bytes"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
)

type templateData struct {
	Name    string
	Link    string
	Product string
}

// template is a Markdown email body. The Markdown is the plain-text part
// and goldmark renders the HTML part.
type template struct {
	name    string
	subject string
	body    *texttemplate.Template
}

func mustTemplate(name, subject, body string) *template {
	return &template{
		name:    name,
		subject: subject,
		body:    texttemplate.Must(texttemplate.New(name).Parse(body)),
	}
}

var verificationTemplate = mustTemplate("verify_email", "Verify your email", `Hello {{.Name}},

Thanks for joining **{{.Product}}**. Please confirm your email address:

[Verify my email]({{.Link}})

The link expires in one hour and works once. If you did not sign up, ignore this message.
`)

var resetTemplate = mustTemplate("reset_password", "Reset your password", `Hello {{.Name}},

We received a request to reset your **{{.Product}}** password.

[Choose a new password]({{.Link}})

The link expires in one hour and works once. If you did not ask for this, you can ignore it.
`)

func (t *template) render(data templateData) (Message, error) {
	var text bytes.Buffer
	if err := t.body.Execute(&text, data); err != nil {
		return Message{}, err
	}
	var html bytes.Buffer
	if err := goldmark.Convert(text.Bytes(), &html); err != nil {
		return Message{}, err
	}
	return Message{Subject: t.subject, Text: text.String(), HTML: html.String()}, nil
}
