// Package app wires configuration into the provisioning service and exposes
// the operations the HTTP API and the CLI share.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"facilityops/internal/blob"
	"facilityops/internal/config"
	"facilityops/internal/datastore"
	"facilityops/internal/identity"
	"facilityops/internal/intake"
	"facilityops/internal/notify"
	"facilityops/internal/provision"
	"facilityops/internal/store"
)

// Identities is the identity-provider surface the service uses.
type Identities interface {
	provision.IdentityProvider
	provision.ResetLinker
	DeleteIdentity(ctx context.Context, id string) error
}

// Components are the constructed collaborators of an App.
type Components struct {
	Store      *store.Store
	Objects    blob.Store
	Identities Identities
	Mailer     provision.Mailer
}

// App is the provisioning service.
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	store        *store.Store
	objects      blob.Store
	identities   Identities
	bucket       string
	orchestrator *provision.Orchestrator
}

// New connects every collaborator named by cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	driver, _ := cfg.Database.DriverName()
	s, err := datastore.Open(ctx, datastore.Config{
		Type:             datastore.Type(driver),
		ConnectionString: cfg.Database.ConnString,
	})
	if err != nil {
		return nil, err
	}

	objects, err := blob.New(ctx, blob.Config{
		Type:            blob.Type(cfg.Storage.Backend),
		Root:            cfg.Storage.Root,
		CredentialsFile: cfg.Storage.CredentialsFile,
		Endpoint:        cfg.Storage.Endpoint,
		URL:             cfg.Supabase.URL,
		ServiceKey:      cfg.Supabase.ServiceRoleKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}

	mailer, err := notify.NewClient(cfg.Mail.BaseURL, cfg.Mail.APIKey, cfg.Mail.From, cfg.Mail.TimeoutDuration())
	if err != nil {
		s.Close()
		objects.Close()
		return nil, err
	}

	return Assemble(cfg, logger, Components{
		Store:      s,
		Objects:    objects,
		Identities: identity.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, cfg.Supabase.TimeoutDuration()),
		Mailer:     mailer,
	}), nil
}

// Assemble builds an App from already constructed components.
func Assemble(cfg *config.Config, logger *zap.Logger, c Components) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	bucket := cfg.Storage.Bucket
	if bucket == "" {
		bucket = provision.DefaultBucket
	}
	orch := provision.NewOrchestrator(provision.Deps{
		Store:      c.Store,
		Objects:    c.Objects,
		Identities: c.Identities,
		Links:      c.Identities,
		Mailer:     c.Mailer,
	}, provision.Options{
		Bucket:              bucket,
		ResetRedirectURL:    cfg.Provisioning.ResetRedirectURL,
		LoginURL:            cfg.Provisioning.LoginURL,
		CompensationTimeout: cfg.Provisioning.CompensationTimeoutDuration(),
	}, logger)

	return &App{
		cfg:          cfg,
		logger:       logger,
		store:        c.Store,
		objects:      c.Objects,
		identities:   c.Identities,
		bucket:       bucket,
		orchestrator: orch,
	}
}

// Close releases the database and object-store clients.
func (a *App) Close() error {
	return errors.Join(a.store.Close(), a.objects.Close())
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Store returns the relational store.
func (a *App) Store() *store.Store { return a.store }

// Ping checks the database connection.
func (a *App) Ping(ctx context.Context) error { return a.store.Ping(ctx) }

// Provision runs the provisioning workflow for a normalized request.
func (a *App) Provision(ctx context.Context, req *intake.Request) (*provision.Result, error) {
	return a.orchestrator.Provision(ctx, req)
}

// ListCustomers returns every customer ordered by name.
func (a *App) ListCustomers(ctx context.Context) ([]store.Customer, error) {
	return a.store.ListCustomers(ctx)
}

// CustomerDetail returns a customer with its services and filter details.
func (a *App) CustomerDetail(ctx context.Context, customerID string) (*store.CustomerDetail, error) {
	return a.store.GetCustomerDetail(ctx, customerID)
}

// ResendCredentials emails a fresh reset link to an existing customer.
func (a *App) ResendCredentials(ctx context.Context, customerID string) error {
	c, err := a.store.GetCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	return a.orchestrator.Dispatcher().Dispatch(ctx, provision.Recipient{
		CustomerID: c.ID,
		Email:      c.Email,
		Name:       c.Name,
	})
}

// UpdateNotificationPhones replaces a customer's notification numbers with
// the sanitized list and returns what was stored.
func (a *App) UpdateNotificationPhones(ctx context.Context, customerID string, phones []string) ([]string, error) {
	clean := intake.SanitizePhones(phones)
	if err := a.store.UpdateNotificationPhones(ctx, customerID, store.PhoneList(clean)); err != nil {
		return nil, err
	}
	return clean, nil
}

// DeleteCustomer removes a customer together with its login identity,
// services, authorizations and floor plan. The identity goes first so a
// failure leaves the customer intact for a retry.
func (a *App) DeleteCustomer(ctx context.Context, customerID string) error {
	detail, err := a.store.GetCustomerDetail(ctx, customerID)
	if err != nil {
		return err
	}
	if err := a.identities.DeleteIdentity(ctx, customerID); err != nil {
		return err
	}
	for _, svc := range detail.Services {
		if err := a.store.DeleteFilterDetails(ctx, svc.ID); err != nil {
			return err
		}
		if err := a.store.DeleteServiceRecord(ctx, svc.ID); err != nil {
			return err
		}
	}
	if err := a.store.DeleteAuthorizations(ctx, customerID); err != nil {
		return err
	}
	if detail.FloorPlanPath != nil {
		if err := a.objects.Remove(ctx, a.bucket, []string{*detail.FloorPlanPath}); err != nil {
			return err
		}
	}
	if err := a.store.DeleteCustomer(ctx, customerID); err != nil {
		return err
	}
	a.logger.Info("Customer deleted", zap.String("customer_id", customerID))
	return nil
}
