package provision

import (
	"context"

	"facilityops/internal/identity"
	"facilityops/internal/store"
)

// Store is the relational store the workflow writes customer rows to.
type Store interface {
	CreateCustomer(ctx context.Context, c *store.Customer) error
	SetFloorPlanPath(ctx context.Context, customerID, path string) error
	DeleteCustomer(ctx context.Context, customerID string) error
	CreateServiceRecord(ctx context.Context, r *store.ServiceRecord) error
	DeleteServiceRecord(ctx context.Context, id string) error
	CreateFilterDetail(ctx context.Context, d *store.FilterDetail) error
	DeleteFilterDetails(ctx context.Context, serviceRecordID string) error
	CreateAuthorization(ctx context.Context, a *store.Authorization) error
}

// ObjectStore holds uploaded floor plans.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, bucket string, paths []string) error
}

// IdentityProvider creates login accounts.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, in identity.NewIdentity) (string, error)
}

// ResetLinker issues one-time password-reset links.
type ResetLinker interface {
	GenerateResetLink(ctx context.Context, email, redirectTo string) (string, error)
}

// Mailer sends HTML email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}
