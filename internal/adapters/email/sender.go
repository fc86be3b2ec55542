package email

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoRecipient is returned when a request has no recipient address.
var ErrNoRecipient = errors.New("email has no recipient")

// SendRequest contains the data needed to send one email.
type SendRequest struct {
	FromName string `json:"from_name,omitempty"` // Sender display name, e.g. "Gymdesk"
	From     string `json:"from,omitempty"`      // Sender address; empty uses the sender's default
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Text     string `json:"text,omitempty"` // plain-text alternative
	ReplyTo  string `json:"reply_to,omitempty"`
	Category string `json:"category,omitempty"` // provider tag, e.g. "class_cancelled"
}

// Validate checks the request has a recipient and a subject.
func (r SendRequest) Validate() error {
	if r.To == "" {
		return ErrNoRecipient
	}
	if r.Subject == "" {
		return errors.New("email subject is required")
	}
	return nil
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender delivers transactional email. Callers only inspect success or failure.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// formatFrom renders "Name <address>", or the bare address without a name.
func formatFrom(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}
