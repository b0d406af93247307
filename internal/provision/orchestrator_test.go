package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facilityops/internal/intake"
	"facilityops/internal/store"
)

func f64(v float64) *float64 { return &v }

func fullRequest() *intake.Request {
	return &intake.Request{
		Name:               "Acme Plant",
		Phone:              "010-1234-5678",
		Email:              "ops@acme.test",
		Address:            "1 Factory Rd",
		NotificationPhones: []string{"010-1", " 010-1 ", ""},
		Services: intake.Services{
			PeriodicInspection: true,
			FilterReplacement:  true,
			VOCTreatment:       true,
		},
		Filters: []intake.FilterSpec{
			{Type: "main", Width: f64(600), Height: f64(600), Depth: f64(50), Quantity: 2},
			{Type: "pre", Quantity: 1},
		},
		VOC: &intake.VOCSpec{FilterType: "carbon", Quantity: 0},
		FloorPlan: &intake.Attachment{
			Filename:    "Plan.PDF",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.4"),
		},
	}
}

func TestProvisionFullRequest(t *testing.T) {
	h := newHarness(t)

	res, err := h.orch.Provision(context.Background(), fullRequest())
	require.NoError(t, err)
	assert.Equal(t, &Result{CustomerID: "id-1", IdentityID: "id-1", CredentialsSent: true}, res)

	c := h.store.customers["id-1"]
	assert.Equal(t, store.PhoneList{"010-1"}, c.NotificationPhones)
	require.NotNil(t, c.FloorPlanPath)
	assert.Equal(t, "id-1/floor-plan.pdf", *c.FloorPlanPath)
	assert.Contains(t, h.objects.objects, "floor-plans/id-1/floor-plan.pdf")

	kinds := map[string][]store.FilterDetail{}
	for _, s := range h.store.servicesOf("id-1") {
		kinds[s.Kind] = h.store.detailsOf(s.ID)
	}
	require.Len(t, kinds, 3)
	assert.Empty(t, kinds["periodicInspection"])
	assert.Len(t, kinds["filterReplacement"], 2)
	require.Len(t, kinds["vocTreatment"], 1)
	voc := kinds["vocTreatment"][0]
	assert.Equal(t, store.DetailVOC, voc.DetailKind)
	assert.Equal(t, "carbon", voc.FilterType)
	assert.Equal(t, 1, voc.Quantity)

	auth, ok := h.store.auths["id-1"]
	require.True(t, ok)
	assert.Equal(t, RoleCustomer, auth.Role)
	assert.Equal(t, "id-1", auth.CustomerID)
}

func TestProvisionUnwindsOnEveryFailurePoint(t *testing.T) {
	tests := []struct {
		name       string
		op         string
		nth        int
		step       StepKind
		compensate bool
	}{
		{"customer insert", "CreateCustomer", 0, StepCustomerRecord, false},
		{"upload", "Upload", 0, StepFileUpload, true},
		{"floor plan path", "SetFloorPlanPath", 0, StepFileUpload, true},
		{"first service record", "CreateServiceRecord", 1, StepServiceRecord, true},
		{"last service record", "CreateServiceRecord", 3, StepServiceRecord, true},
		{"second filter detail", "CreateFilterDetail", 2, StepServiceRecord, true},
		{"voc detail", "CreateFilterDetail", 3, StepServiceRecord, true},
		{"identity", "CreateIdentity", 0, StepIdentity, true},
		{"authorization", "CreateAuthorization", 0, StepIdentity, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.faults.set(tt.op, rule{nth: tt.nth, err: errInjected})

			res, err := h.orch.Provision(context.Background(), fullRequest())
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, errInjected))

			var cerr *CollaboratorError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.step, cerr.Step)
			assert.Equal(t, "collaborator", cerr.Kind())

			h.assertNoTrace(t, "id-1")
			assert.Zero(t, h.faults.count("SendEmail"))
			if tt.compensate {
				assert.Equal(t, 1, h.faults.count("DeleteCustomer"))
			} else {
				assert.Zero(t, h.faults.count("DeleteCustomer"))
			}
		})
	}
}

func TestProvisionKeepsIdentityWhenAuthorizationFails(t *testing.T) {
	h := newHarness(t)
	h.faults.set("CreateAuthorization", rule{err: errInjected})

	_, err := h.orch.Provision(context.Background(), fullRequest())
	require.Error(t, err)

	_, ok := h.ids.get("id-1")
	assert.True(t, ok, "identity is retained by compensation")
	assert.Equal(t, 1, h.logs.FilterMessage("Retaining identity during compensation").Len())
	h.assertNoTrace(t, "id-1")
}

func TestProvisionRejectsProviderAssignedIdentityID(t *testing.T) {
	h := newHarness(t)
	h.ids.assignID = "provider-chosen-id"

	res, err := h.orch.Provision(context.Background(), fullRequest())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrIdentityMismatch)

	var cerr *CollaboratorError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, StepIdentity, cerr.Step)
	assert.Equal(t, "create identity", cerr.Op)

	assert.Zero(t, h.faults.count("CreateAuthorization"))
	assert.Empty(t, h.store.auths)
	assert.Zero(t, h.faults.count("SendEmail"))
	h.assertNoTrace(t, "id-1")

	retained := h.logs.FilterMessage("Retaining identity during compensation").All()
	require.Len(t, retained, 1)
	assert.Equal(t, "provider-chosen-id", retained[0].ContextMap()["identity_id"])
}

func TestProvisionNotificationFailureIsDegradedSuccess(t *testing.T) {
	for _, op := range []string{"GenerateResetLink", "SendEmail"} {
		t.Run(op, func(t *testing.T) {
			h := newHarness(t)
			h.faults.set(op, rule{err: errInjected})

			res, err := h.orch.Provision(context.Background(), fullRequest())
			require.NotNil(t, res)
			assert.Equal(t, "id-1", res.CustomerID)
			assert.Equal(t, "id-1", res.IdentityID)
			assert.False(t, res.CredentialsSent)

			var nerr *NotificationError
			require.True(t, errors.As(err, &nerr))
			assert.Equal(t, "notification", nerr.Kind())
			assert.True(t, errors.Is(err, errInjected))

			assert.Contains(t, h.store.customers, "id-1")
			assert.Len(t, h.store.servicesOf("id-1"), 3)
			_, ok := h.ids.get("id-1")
			assert.True(t, ok)
			assert.Contains(t, h.objects.objects, "floor-plans/id-1/floor-plan.pdf")
			for _, undo := range []string{"DeleteCustomer", "DeleteServiceRecord", "DeleteFilterDetails", "Remove"} {
				assert.Zero(t, h.faults.count(undo), undo)
			}
		})
	}
}

func TestProvisionCreatesOnlyEnabledServices(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		flags := intake.Services{
			PeriodicInspection: mask&1 != 0,
			FilterReplacement:  mask&2 != 0,
			VOCTreatment:       mask&4 != 0,
		}
		t.Run(flagName(flags), func(t *testing.T) {
			h := newHarness(t)
			req := fullRequest()
			req.FloorPlan = nil
			req.Services = flags

			_, err := h.orch.Provision(context.Background(), req)
			require.NoError(t, err)

			got := map[string]int{}
			for _, s := range h.store.servicesOf("id-1") {
				got[s.Kind] = len(h.store.detailsOf(s.ID))
			}
			want := map[string]int{}
			if flags.PeriodicInspection {
				want["periodicInspection"] = 0
			}
			if flags.FilterReplacement {
				want["filterReplacement"] = 2
			}
			if flags.VOCTreatment {
				want["vocTreatment"] = 1
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("services mismatch (-want +got):\n%s", diff)
			}

			total := 0
			for _, n := range want {
				total += n
			}
			assert.Len(t, h.store.details, total)
		})
	}
}

func flagName(s intake.Services) string {
	name := ""
	for _, k := range s.Enabled() {
		name += string(k) + "+"
	}
	if name == "" {
		return "none"
	}
	return name[:len(name)-1]
}

func TestProvisionFilterReplacementWithoutFile(t *testing.T) {
	h := newHarness(t)
	req := &intake.Request{
		Name:     "Acme Plant",
		Phone:    "010-1234-5678",
		Email:    "ops@acme.test",
		Services: intake.Services{FilterReplacement: true},
		Filters: []intake.FilterSpec{
			{Type: "main", Width: f64(600), Height: f64(600), Depth: f64(50), Quantity: 2},
		},
	}

	res, err := h.orch.Provision(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, h.store.customers, 1)
	services := h.store.servicesOf(res.CustomerID)
	require.Len(t, services, 1)
	assert.Equal(t, "filterReplacement", services[0].Kind)

	details := h.store.detailsOf(services[0].ID)
	require.Len(t, details, 1)
	want := store.FilterDetail{
		ID:              details[0].ID,
		ServiceRecordID: services[0].ID,
		DetailKind:      store.DetailReplacement,
		FilterType:      "main",
		Width:           f64(600),
		Height:          f64(600),
		Depth:           f64(50),
		Quantity:        2,
	}
	if diff := cmp.Diff(want, details[0]); diff != "" {
		t.Errorf("filter detail mismatch (-want +got):\n%s", diff)
	}

	created, ok := h.ids.get(res.IdentityID)
	require.True(t, ok)
	assert.Equal(t, DerivePassword("ops@acme.test", "010-1234-5678"), created.Password)
	assert.Equal(t, "ops@acme.test", created.Email)

	require.Len(t, h.mailer.sent, 1)
	assert.Equal(t, "ops@acme.test", h.mailer.sent[0].to)
	assert.Contains(t, h.mailer.sent[0].html, "https://app.test/login")
	assert.Zero(t, h.faults.count("Upload"))
}

func TestProvisionUploadFailure(t *testing.T) {
	h := newHarness(t)
	h.faults.set("Upload", rule{err: errors.New("bucket unavailable")})

	req := fullRequest()
	_, err := h.orch.Provision(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload floor plan")
	assert.Contains(t, err.Error(), "bucket unavailable")

	assert.Empty(t, h.store.customers)
	assert.Empty(t, h.store.services)
	assert.Empty(t, h.ids.created)
	assert.Zero(t, h.faults.count("CreateServiceRecord"))
}

func TestProvisionNoServices(t *testing.T) {
	h := newHarness(t)
	req := fullRequest()
	req.Services = intake.Services{}

	res, err := h.orch.Provision(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, h.store.customers, res.CustomerID)
	assert.Empty(t, h.store.services)
	assert.Empty(t, h.store.details)
	_, ok := h.ids.get(res.IdentityID)
	assert.True(t, ok)
}

func TestProvisionIdentityFailureAfterServices(t *testing.T) {
	h := newHarness(t)
	h.faults.set("CreateIdentity", rule{err: errors.New("email already registered")})

	req := fullRequest()
	req.FloorPlan = nil
	req.Services = intake.Services{PeriodicInspection: true, FilterReplacement: true}

	_, err := h.orch.Provision(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "failed to create identity: email already registered", err.Error())

	assert.Equal(t, 2, h.faults.count("CreateServiceRecord"))
	assert.Empty(t, h.store.customers)
	assert.Empty(t, h.store.services)
	assert.Empty(t, h.store.details)

	// Newest first, details before their record, records before the customer.
	want := []string{
		"CreateIdentity",
		"DeleteFilterDetails", "DeleteServiceRecord",
		"DeleteFilterDetails", "DeleteServiceRecord",
		"DeleteCustomer",
	}
	if diff := cmp.Diff(want, h.faults.callsSince("CreateIdentity")); diff != "" {
		t.Errorf("compensation order mismatch (-want +got):\n%s", diff)
	}
}

func TestProvisionCompensatesAfterCancellation(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.faults.set("CreateCustomer", rule{hook: cancel})

	_, err := h.orch.Provision(ctx, fullRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	assert.Equal(t, 1, h.faults.count("DeleteCustomer"))
	h.assertNoTrace(t, "id-1")
}

func TestProvisionCompensationFailureDoesNotMaskOriginalError(t *testing.T) {
	h := newHarness(t)
	h.faults.set("CreateIdentity", rule{err: errInjected})
	h.faults.set("Remove", rule{err: errors.New("object store down")})

	_, err := h.orch.Provision(context.Background(), fullRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInjected))
	assert.NotContains(t, err.Error(), "object store down")

	// The stray upload is left behind but the rows are still removed.
	assert.Empty(t, h.store.customers)
	assert.Empty(t, h.store.services)
	assert.Len(t, h.objects.under("id-1"), 1)
	assert.Equal(t, 1, h.logs.FilterMessage("Compensation step failed").Len())
}

func TestNewOrchestratorPanicsOnMissingCollaborator(t *testing.T) {
	h := newHarness(t)
	full := Deps{Store: h.store, Objects: h.objects, Identities: h.ids, Links: fakeLinks{f: h.faults}, Mailer: h.mailer}

	mutations := map[string]func(*Deps){
		"store":      func(d *Deps) { d.Store = nil },
		"objects":    func(d *Deps) { d.Objects = nil },
		"identities": func(d *Deps) { d.Identities = nil },
		"links":      func(d *Deps) { d.Links = nil },
		"mailer":     func(d *Deps) { d.Mailer = nil },
	}
	for name, mutate := range mutations {
		d := full
		mutate(&d)
		assert.Panics(t, func() { NewOrchestrator(d, Options{}, nil) }, name)
	}
	assert.NotPanics(t, func() { NewOrchestrator(full, Options{}, nil) })
}

func TestFloorPlanPath(t *testing.T) {
	assert.Equal(t, "c1/floor-plan.pdf", FloorPlanPath("c1", "Site Plan.PDF"))
	assert.Equal(t, "c1/floor-plan.png", FloorPlanPath("c1", "a.b.png"))
	assert.Equal(t, "c1/floor-plan", FloorPlanPath("c1", "noext"))
}
