// Package notify sends transactional email through the Resend API.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// DefaultBaseURL is the public Resend API endpoint.
const DefaultBaseURL = "https://api.resend.com"

// Client sends mail from a fixed sender address.
type Client struct {
	resend *resend.Client
	from   string
}

// NewClient creates a mail client. An empty baseURL selects DefaultBaseURL and
// a non-positive timeout defaults to 30s.
func NewClient(baseURL, apiKey, from string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// Request paths are resolved relative to the base, so it must end in a slash.
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid mail base URL %q: %w", baseURL, err)
	}

	rc := resend.NewCustomClient(&http.Client{Timeout: timeout}, apiKey)
	rc.BaseURL = base
	return &Client{resend: rc, from: from}, nil
}

// SendEmail delivers one HTML message to a single recipient.
func (c *Client) SendEmail(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return errors.New("sending email: recipient is required")
	}
	_, err := c.resend.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	return nil
}
