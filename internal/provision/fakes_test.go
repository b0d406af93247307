package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"facilityops/internal/identity"
	"facilityops/internal/store"
)

// rule injects a fault into the nth call of an operation (every call when
// nth is 0).
type rule struct {
	nth   int
	err   error
	panic bool
	hook  func()
}

// faults is shared by every fake so calls are recorded in one global order.
type faults struct {
	mu     sync.Mutex
	rules  map[string]rule
	counts map[string]int
	calls  []string
}

func newFaults() *faults {
	return &faults{rules: map[string]rule{}, counts: map[string]int{}}
}

func (f *faults) set(op string, r rule) { f.rules[op] = r }

func (f *faults) hit(ctx context.Context, op string) error {
	f.mu.Lock()
	f.counts[op]++
	f.calls = append(f.calls, op)
	r, ok := f.rules[op]
	n := f.counts[op]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if !ok || (r.nth != 0 && r.nth != n) {
		return nil
	}
	if r.hook != nil {
		r.hook()
	}
	if r.panic {
		panic(op + " exploded")
	}
	return r.err
}

func (f *faults) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[op]
}

func (f *faults) callsSince(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.calls {
		if c == op {
			return append([]string(nil), f.calls[i:]...)
		}
	}
	return nil
}

// memStore is an in-memory Store that enforces the same ownership rules as
// the schema's foreign keys.
type memStore struct {
	f         *faults
	mu        sync.Mutex
	customers map[string]store.Customer
	services  map[string]store.ServiceRecord
	details   map[string]store.FilterDetail
	auths     map[string]store.Authorization
}

func newMemStore(f *faults) *memStore {
	return &memStore{
		f:         f,
		customers: map[string]store.Customer{},
		services:  map[string]store.ServiceRecord{},
		details:   map[string]store.FilterDetail{},
		auths:     map[string]store.Authorization{},
	}
}

func (m *memStore) CreateCustomer(ctx context.Context, c *store.Customer) error {
	if err := m.f.hit(ctx, "CreateCustomer"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = *c
	return nil
}

func (m *memStore) SetFloorPlanPath(ctx context.Context, customerID, path string) error {
	if err := m.f.hit(ctx, "SetFloorPlanPath"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok {
		return store.ErrNotFound
	}
	c.FloorPlanPath = &path
	m.customers[customerID] = c
	return nil
}

func (m *memStore) DeleteCustomer(ctx context.Context, customerID string) error {
	if err := m.f.hit(ctx, "DeleteCustomer"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.services {
		if s.CustomerID == customerID {
			return fmt.Errorf("customer %s still owns service %s", customerID, s.ID)
		}
	}
	delete(m.customers, customerID)
	return nil
}

func (m *memStore) CreateServiceRecord(ctx context.Context, r *store.ServiceRecord) error {
	if err := m.f.hit(ctx, "CreateServiceRecord"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[r.CustomerID]; !ok {
		return fmt.Errorf("unknown customer %s", r.CustomerID)
	}
	m.services[r.ID] = *r
	return nil
}

func (m *memStore) DeleteServiceRecord(ctx context.Context, id string) error {
	if err := m.f.hit(ctx, "DeleteServiceRecord"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.details {
		if d.ServiceRecordID == id {
			return fmt.Errorf("service %s still owns detail %s", id, d.ID)
		}
	}
	delete(m.services, id)
	return nil
}

func (m *memStore) CreateFilterDetail(ctx context.Context, d *store.FilterDetail) error {
	if err := m.f.hit(ctx, "CreateFilterDetail"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[d.ServiceRecordID]; !ok {
		return fmt.Errorf("unknown service %s", d.ServiceRecordID)
	}
	m.details[d.ID] = *d
	return nil
}

func (m *memStore) DeleteFilterDetails(ctx context.Context, serviceRecordID string) error {
	if err := m.f.hit(ctx, "DeleteFilterDetails"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.details {
		if d.ServiceRecordID == serviceRecordID {
			delete(m.details, id)
		}
	}
	return nil
}

func (m *memStore) CreateAuthorization(ctx context.Context, a *store.Authorization) error {
	if err := m.f.hit(ctx, "CreateAuthorization"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auths[a.IdentityID] = *a
	return nil
}

func (m *memStore) servicesOf(customerID string) []store.ServiceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ServiceRecord
	for _, s := range m.services {
		if s.CustomerID == customerID {
			out = append(out, s)
		}
	}
	return out
}

func (m *memStore) detailsOf(serviceID string) []store.FilterDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.FilterDetail
	for _, d := range m.details {
		if d.ServiceRecordID == serviceID {
			out = append(out, d)
		}
	}
	return out
}

type memObjects struct {
	f       *faults
	mu      sync.Mutex
	objects map[string][]byte
}

func (o *memObjects) Upload(ctx context.Context, bucket, path string, data []byte, _ string) (string, error) {
	if err := o.f.hit(ctx, "Upload"); err != nil {
		return "", err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[bucket+"/"+path] = data
	return path, nil
}

func (o *memObjects) Remove(ctx context.Context, bucket string, paths []string) error {
	if err := o.f.hit(ctx, "Remove"); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range paths {
		delete(o.objects, bucket+"/"+p)
	}
	return nil
}

func (o *memObjects) under(prefix string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for k := range o.objects {
		if strings.Contains(k, "/"+prefix+"/") {
			out = append(out, k)
		}
	}
	return out
}

type fakeIdentities struct {
	f       *faults
	mu      sync.Mutex
	created map[string]identity.NewIdentity
	// assignID, when set, replaces the requested id the way a provider
	// that picks its own ids would.
	assignID string
}

func (i *fakeIdentities) CreateIdentity(ctx context.Context, in identity.NewIdentity) (string, error) {
	if err := i.f.hit(ctx, "CreateIdentity"); err != nil {
		return "", err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	id := in.ID
	if i.assignID != "" {
		id = i.assignID
	}
	i.created[id] = in
	return id, nil
}

func (i *fakeIdentities) get(id string) (identity.NewIdentity, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	in, ok := i.created[id]
	return in, ok
}

type fakeLinks struct{ f *faults }

func (l fakeLinks) GenerateResetLink(ctx context.Context, email, redirectTo string) (string, error) {
	if err := l.f.hit(ctx, "GenerateResetLink"); err != nil {
		return "", err
	}
	return "https://auth.test/verify?email=" + email + "&redirect_to=" + redirectTo, nil
}

type sentMail struct{ to, subject, html string }

type fakeMailer struct {
	f    *faults
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendEmail(ctx context.Context, to, subject, html string) error {
	if err := m.f.hit(ctx, "SendEmail"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, html})
	return nil
}

type harness struct {
	faults  *faults
	store   *memStore
	objects *memObjects
	ids     *fakeIdentities
	mailer  *fakeMailer
	logs    *observer.ObservedLogs
	orch    *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	f := newFaults()
	core, logs := observer.New(zap.DebugLevel)
	h := &harness{
		faults:  f,
		store:   newMemStore(f),
		objects: &memObjects{f: f, objects: map[string][]byte{}},
		ids:     &fakeIdentities{f: f, created: map[string]identity.NewIdentity{}},
		mailer:  &fakeMailer{f: f},
		logs:    logs,
	}

	var mu sync.Mutex
	seq := 0
	h.orch = NewOrchestrator(Deps{
		Store:      h.store,
		Objects:    h.objects,
		Identities: h.ids,
		Links:      fakeLinks{f: f},
		Mailer:     h.mailer,
	}, Options{
		ResetRedirectURL: "https://app.test/reset",
		LoginURL:         "https://app.test/login",
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	}, zap.New(core))
	return h
}

// assertNoTrace fails if anything referencing customerID is left behind.
func (h *harness) assertNoTrace(t *testing.T, customerID string) {
	t.Helper()
	h.store.mu.Lock()
	_, customerLeft := h.store.customers[customerID]
	detailsLeft := len(h.store.details)
	h.store.mu.Unlock()

	if customerLeft {
		t.Errorf("customer %s still exists", customerID)
	}
	if s := h.store.servicesOf(customerID); len(s) > 0 {
		t.Errorf("%d service records remain for %s", len(s), customerID)
	}
	if detailsLeft > 0 {
		t.Errorf("%d filter details remain", detailsLeft)
	}
	if o := h.objects.under(customerID); len(o) > 0 {
		t.Errorf("objects remain: %v", o)
	}
}

var errInjected = errors.New("injected failure")
