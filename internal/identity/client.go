// Package identity talks to the Supabase Auth (GoTrue) admin API to create
// customer login accounts and password-recovery links.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// NewIdentity describes an account to create. ID must be a UUID when set.
type NewIdentity struct {
	ID       string
	Email    string
	Password string
	Metadata map[string]any
}

// Client is an admin client for the identity provider.
//
// The GoTrue admin calls take no context; ctx is checked before each call
// and the HTTP client timeout bounds the call itself.
type Client struct {
	auth gotrue.Client
}

// NewClient creates a client for the project at baseURL using the
// service-role key. A non-positive timeout defaults to 30s.
func NewClient(baseURL, serviceKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	auth := gotrue.New("", serviceKey).
		WithCustomGoTrueURL(strings.TrimRight(baseURL, "/") + "/auth/v1").
		WithToken(serviceKey).
		WithClient(http.Client{Timeout: timeout})
	return &Client{auth: auth}
}

// CreateIdentity creates a confirmed account and returns its ID.
func (c *Client) CreateIdentity(ctx context.Context, in NewIdentity) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	req := types.AdminCreateUserRequest{
		Email:        in.Email,
		Password:     &in.Password,
		EmailConfirm: true,
		UserMetadata: in.Metadata,
	}
	if in.ID != "" {
		id, err := uuid.Parse(in.ID)
		if err != nil {
			return "", fmt.Errorf("creating identity for %s: invalid id %q: %w", in.Email, in.ID, err)
		}
		req.ID = &id
	}

	resp, err := c.auth.AdminCreateUser(req)
	if err != nil {
		return "", fmt.Errorf("creating identity for %s: %w", in.Email, err)
	}
	if resp.ID == uuid.Nil {
		return "", errors.New("creating identity: response carried no user id")
	}
	return resp.ID.String(), nil
}

// GenerateResetLink returns a one-time password-recovery link for email.
func (c *Client) GenerateResetLink(ctx context.Context, email, redirectTo string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := c.auth.AdminGenerateLink(types.AdminGenerateLinkRequest{
		Type:       types.LinkTypeRecovery,
		Email:      email,
		RedirectTo: redirectTo,
	})
	if err != nil {
		return "", fmt.Errorf("generating reset link: %w", err)
	}
	if resp.ActionLink == "" {
		return "", errors.New("generating reset link: response carried no action link")
	}
	return resp.ActionLink, nil
}

// DeleteIdentity removes an account. A missing account is not an error.
func (c *Client) DeleteIdentity(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("deleting identity: invalid id %q: %w", id, err)
	}
	err = c.auth.AdminDeleteUser(types.AdminDeleteUserRequest{UserID: uid})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("deleting identity %s: %w", id, err)
	}
	return nil
}

// isNotFound matches the status text gotrue-go puts in its errors.
func isNotFound(err error) bool {
	return strings.Contains(err.Error(), fmt.Sprintf("status code %d", http.StatusNotFound))
}
