package provision

import (
	"context"

	"go.uber.org/zap"

	"facilityops/internal/notify"
)

// Recipient is the addressee of a credentials email.
type Recipient struct {
	CustomerID string
	Email      string
	Name       string
}

// Dispatcher sends a new account its password-reset link.
type Dispatcher struct {
	links            ResetLinker
	mailer           Mailer
	resetRedirectURL string
	loginURL         string
	logger           *zap.Logger
}

// NewDispatcher creates a dispatcher. Reset links redirect to resetRedirectURL
// and the email points the customer at loginURL.
func NewDispatcher(links ResetLinker, mailer Mailer, resetRedirectURL, loginURL string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		links:            links,
		mailer:           mailer,
		resetRedirectURL: resetRedirectURL,
		loginURL:         loginURL,
		logger:           logger,
	}
}

// Dispatch generates a reset link and emails it. Every failure is a
// *NotificationError.
func (d *Dispatcher) Dispatch(ctx context.Context, r Recipient) error {
	link, err := d.links.GenerateResetLink(ctx, r.Email, d.resetRedirectURL)
	if err != nil {
		return &NotificationError{Op: "generate reset link", Err: err}
	}

	html, err := notify.CredentialsEmail{
		Name:      r.Name,
		Email:     r.Email,
		ResetLink: link,
		LoginURL:  d.loginURL,
	}.Render()
	if err != nil {
		return &NotificationError{Op: "render credentials email", Err: err}
	}

	if err := d.mailer.SendEmail(ctx, r.Email, notify.CredentialsSubject, html); err != nil {
		return &NotificationError{Op: "send credentials email", Err: err}
	}
	d.logger.Info("Credentials sent", zap.String("customer_id", r.CustomerID))
	return nil
}
