package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Authorization binds a login identity to the customer it acts for.
type Authorization struct {
	IdentityID string    `db:"identity_id" json:"identityId"`
	CustomerID string    `db:"customer_id" json:"customerId"`
	Role       string    `db:"role" json:"role"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// CreateAuthorization inserts the identity-to-customer binding.
func (s *Store) CreateAuthorization(ctx context.Context, a *Authorization) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.exec(ctx,
		`INSERT INTO customer_authorizations (identity_id, customer_id, role, created_at) VALUES (?, ?, ?, ?)`,
		a.IdentityID, a.CustomerID, a.Role, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create authorization: %w", err)
	}
	return nil
}

// GetAuthorization retrieves the binding for an identity.
func (s *Store) GetAuthorization(ctx context.Context, identityID string) (*Authorization, error) {
	var a Authorization
	err := s.get(ctx, &a,
		`SELECT identity_id, customer_id, role, created_at FROM customer_authorizations WHERE identity_id = ?`,
		identityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("authorization %s: %w", identityID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization: %w", err)
	}
	return &a, nil
}

// DeleteAuthorizations removes every binding to a customer.
func (s *Store) DeleteAuthorizations(ctx context.Context, customerID string) error {
	if _, err := s.exec(ctx, `DELETE FROM customer_authorizations WHERE customer_id = ?`, customerID); err != nil {
		return fmt.Errorf("failed to delete authorizations: %w", err)
	}
	return nil
}
