// Package provision runs the customer provisioning saga: customer row,
// optional floor-plan upload, service records, login identity and
// credentials email, undoing committed steps when a later one fails.
package provision

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"facilityops/internal/identity"
	"facilityops/internal/intake"
	"facilityops/internal/store"
)

// RoleCustomer is the authorization role granted to a provisioned identity.
const RoleCustomer = "customer"

// DefaultBucket holds uploaded floor plans.
const DefaultBucket = "floor-plans"

// Deps are the collaborators a provisioning run talks to.
type Deps struct {
	Store      Store
	Objects    ObjectStore
	Identities IdentityProvider
	Links      ResetLinker
	Mailer     Mailer
}

// Options tune an Orchestrator. Zero values select defaults.
type Options struct {
	Bucket              string
	ResetRedirectURL    string
	LoginURL            string
	CompensationTimeout time.Duration
	NewID               func() string
}

// Result identifies the provisioned account.
type Result struct {
	CustomerID      string `json:"customerId"`
	IdentityID      string `json:"identityId"`
	CredentialsSent bool   `json:"credentialsSent"`
}

// Orchestrator runs provisioning requests. It is safe for concurrent use;
// runs share nothing but the collaborators.
type Orchestrator struct {
	store       Store
	objects     ObjectStore
	identities  IdentityProvider
	bucket      string
	newID       func() string
	compensator *Compensator
	dispatcher  *Dispatcher
	logger      *zap.Logger
}

// NewOrchestrator wires an orchestrator. It panics when a collaborator is nil.
func NewOrchestrator(deps Deps, opts Options, logger *zap.Logger) *Orchestrator {
	switch {
	case deps.Store == nil:
		panic("provision: nil Store")
	case deps.Objects == nil:
		panic("provision: nil ObjectStore")
	case deps.Identities == nil:
		panic("provision: nil IdentityProvider")
	case deps.Links == nil:
		panic("provision: nil ResetLinker")
	case deps.Mailer == nil:
		panic("provision: nil Mailer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucket
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Orchestrator{
		store:       deps.Store,
		objects:     deps.Objects,
		identities:  deps.Identities,
		bucket:      opts.Bucket,
		newID:       opts.NewID,
		compensator: NewCompensator(deps.Store, deps.Objects, opts.Bucket, opts.CompensationTimeout, logger),
		dispatcher:  NewDispatcher(deps.Links, deps.Mailer, opts.ResetRedirectURL, opts.LoginURL, logger),
		logger:      logger,
	}
}

// Dispatcher returns the credentials dispatcher, for resending.
func (o *Orchestrator) Dispatcher() *Dispatcher { return o.dispatcher }

// Provision creates the customer and everything attached to it.
//
// A *CollaboratorError means the run was unwound. A *NotificationError comes
// with a non-nil Result: the account exists but the credentials email was not
// delivered, and nothing is unwound.
func (o *Orchestrator) Provision(ctx context.Context, req *intake.Request) (*Result, error) {
	if req == nil {
		return nil, errors.New("provision: nil request")
	}

	customerID := o.newID()
	log := o.logger.With(zap.String("customer_id", customerID))
	state := &State{}

	customer := &store.Customer{
		ID:                 customerID,
		Name:               req.Name,
		Phone:              req.Phone,
		Email:              req.Email,
		Address:            req.Address,
		NotificationPhones: store.PhoneList(intake.SanitizePhones(req.NotificationPhones)),
	}
	if err := o.store.CreateCustomer(ctx, customer); err != nil {
		return nil, o.fail(ctx, log, state, StepCustomerRecord, "create customer", err)
	}
	state.Record(StepCustomerRecord, customerID)
	log.Debug("Customer record created")

	if fp := req.FloorPlan; fp != nil {
		stored, err := o.objects.Upload(ctx, o.bucket, FloorPlanPath(customerID, fp.Filename), fp.Data, contentType(fp))
		if err != nil {
			return nil, o.fail(ctx, log, state, StepFileUpload, "upload floor plan", err)
		}
		state.Record(StepFileUpload, stored)
		if err := o.store.SetFloorPlanPath(ctx, customerID, stored); err != nil {
			return nil, o.fail(ctx, log, state, StepFileUpload, "record floor plan path", err)
		}
		log.Debug("Floor plan uploaded", zap.String("path", stored))
	}

	if err := o.createServices(ctx, customerID, req, state); err != nil {
		return nil, o.fail(ctx, log, state, StepServiceRecord, "create service records", err)
	}

	identityID, err := o.identities.CreateIdentity(ctx, identity.NewIdentity{
		ID:       customerID,
		Email:    req.Email,
		Password: DerivePassword(req.Email, req.Phone),
		Metadata: map[string]any{
			"customer_id": customerID,
			"name":        req.Name,
			"role":        RoleCustomer,
		},
	})
	if err != nil {
		return nil, o.fail(ctx, log, state, StepIdentity, "create identity", err)
	}
	state.Record(StepIdentity, identityID)
	if identityID != customerID {
		err := fmt.Errorf("%w: got %q, want %q", ErrIdentityMismatch, identityID, customerID)
		return nil, o.fail(ctx, log, state, StepIdentity, "create identity", err)
	}

	err = o.store.CreateAuthorization(ctx, &store.Authorization{
		IdentityID: identityID,
		CustomerID: customerID,
		Role:       RoleCustomer,
	})
	if err != nil {
		return nil, o.fail(ctx, log, state, StepIdentity, "create authorization", err)
	}
	log.Debug("Identity created", zap.String("identity_id", identityID))

	result := &Result{CustomerID: customerID, IdentityID: identityID}
	err = o.dispatcher.Dispatch(ctx, Recipient{CustomerID: customerID, Email: req.Email, Name: req.Name})
	if err != nil {
		log.Warn("Customer provisioned without credentials email", zap.Error(err))
		return result, err
	}
	result.CredentialsSent = true
	log.Info("Customer provisioned", zap.Int("services", len(req.Services.Enabled())))
	return result, nil
}

func (o *Orchestrator) createServices(ctx context.Context, customerID string, req *intake.Request, state *State) error {
	for _, kind := range req.Services.Enabled() {
		rec := &store.ServiceRecord{ID: o.newID(), CustomerID: customerID, Kind: string(kind)}
		if err := o.store.CreateServiceRecord(ctx, rec); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		state.Record(StepServiceRecord, rec.ID)

		for _, d := range serviceDetails(kind, req) {
			d.ID = o.newID()
			d.ServiceRecordID = rec.ID
			if err := o.store.CreateFilterDetail(ctx, d); err != nil {
				return fmt.Errorf("%s detail: %w", kind, err)
			}
		}
	}
	return nil
}

// serviceDetails returns the detail rows owned by a service of the given kind.
func serviceDetails(kind intake.ServiceKind, req *intake.Request) []*store.FilterDetail {
	switch kind {
	case intake.ServiceFilterReplacement:
		out := make([]*store.FilterDetail, 0, len(req.Filters))
		for _, f := range req.Filters {
			out = append(out, &store.FilterDetail{
				DetailKind: store.DetailReplacement,
				FilterType: f.Type,
				Width:      f.Width,
				Height:     f.Height,
				Depth:      f.Depth,
				Quantity:   f.Quantity,
			})
		}
		return out
	case intake.ServiceVOCTreatment:
		voc := intake.VOCSpec{}
		if req.VOC != nil {
			voc = *req.VOC
		}
		return []*store.FilterDetail{{
			DetailKind: store.DetailVOC,
			FilterType: voc.FilterType,
			Quantity:   intake.DefaultQuantity(voc.Quantity),
		}}
	default:
		return nil
	}
}

func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, state *State, step StepKind, op string, err error) error {
	log.Error("Provisioning step failed", zap.String("step", string(step)), zap.Error(err))
	if state.Len() > 0 {
		o.compensator.Compensate(ctx, state)
	}
	return &CollaboratorError{Step: step, Op: op, Err: err}
}

// FloorPlanPath is the object path of a customer's floor plan. It is
// namespaced by customer so compensation can remove it by path alone.
func FloorPlanPath(customerID, filename string) string {
	return customerID + "/floor-plan" + strings.ToLower(path.Ext(filename))
}

func contentType(a *intake.Attachment) string {
	if a.ContentType == "" {
		return "application/octet-stream"
	}
	return a.ContentType
}
