package gmailclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Client sends the sync warning digest through the Gmail API
type Client struct {
	send     func(ctx context.Context, msg *gmail.Message) error
	sender   string
	interval time.Duration

	mu       sync.Mutex
	lastSent time.Time
}

// NewClient creates a Gmail client authenticated by ts, whose token must carry the gmail.send scope.
// sender becomes the From header when set.
func NewClient(ctx context.Context, ts oauth2.TokenSource, sender string) (*Client, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	messages := service.Users.Messages
	return newClient(func(ctx context.Context, msg *gmail.Message) error {
		_, err := messages.Send("me", msg).Context(ctx).Do()
		return err
	}, sender), nil
}

func newClient(send func(ctx context.Context, msg *gmail.Message) error, sender string) *Client {
	return &Client{
		send:     send,
		sender:   sender,
		interval: EmailInterval,
	}
}
