package gmailclient

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
)

// EmailInterval is the minimum gap between two sends from one client
const EmailInterval = 3 * time.Second

// ErrInvalidRecipient is returned when the digest address cannot be parsed
var ErrInvalidRecipient = errors.New("invalid recipient address")

// SendEmail sends a plain-text email, waiting out the send interval since the previous send
func (c *Client) SendEmail(ctx context.Context, to, subject, body string) error {
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidRecipient, to, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastSent.IsZero() {
		if wait := c.interval - time.Since(c.lastSent); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(BuildMessage(c.sender, to, subject, body))),
	}
	if err := c.send(ctx, message); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", addr.Address, err)
	}

	c.lastSent = time.Now()
	return nil
}

// BuildMessage renders an RFC 2822 message with CRLF line endings
func BuildMessage(from, to, subject, body string) string {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.String()
}
