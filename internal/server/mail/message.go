// Package mail renders and delivers outbound email. Two transports are
// provided: SMTP for real delivery and a logging transport for development.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
)

// Message is a single HTML email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const ConfirmationSubject = "Verify your account"

//go:embed templates/*.html
var templates embed.FS

var confirmationTmpl = template.Must(template.ParseFS(templates, "templates/verify_email.html"))

// ConfirmationURL builds the link a user opens to confirm their email.
func ConfirmationURL(baseURL, uid, code string) string {
	q := url.Values{}
	q.Set("key", code)
	q.Set("uid", uid)
	return fmt.Sprintf("%s/v1/auth/verification/confirm?%s", trimSlash(baseURL), q.Encode())
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// ConfirmationMessage renders the verification email for to.
func ConfirmationMessage(from, to, verificationURL string) (Message, error) {
	var body bytes.Buffer
	data := struct{ VerificationURL string }{VerificationURL: verificationURL}
	if err := confirmationTmpl.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render confirmation email: %w", err)
	}
	return Message{From: from, To: to, Subject: ConfirmationSubject, HTML: body.String()}, nil
}
