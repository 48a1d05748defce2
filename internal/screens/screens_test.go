package screens

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/gymsync/internal/gymapi"
	"github.com/five82/gymsync/internal/livesync"
	"github.com/five82/gymsync/internal/livesync/livesynctest"
	"github.com/five82/gymsync/internal/realtime"
	"github.com/five82/gymsync/internal/state"
)

// fakeSource answers from fixed data and records list queries.
type fakeSource struct {
	mu        sync.Mutex
	customers map[string]gymapi.Customer
	payments  map[string][]gymapi.Payment
	queries   []gymapi.CustomerQuery
	listErr   error
	calls     map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		customers: map[string]gymapi.Customer{
			"c-1": {ID: "c-1", FirstName: "Dana", Contract: &gymapi.Contract{Plan: "Annual"}},
		},
		payments: map[string][]gymapi.Payment{
			"c-1": {{ID: "p-1", Amount: decimal.RequireFromString("39.90"), Status: gymapi.PaymentPaid}},
		},
		calls: map[string]int{},
	}
}

func (f *fakeSource) FetchCustomer(_ context.Context, id string) (gymapi.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["customer"]++
	c, ok := f.customers[id]
	if !ok {
		return gymapi.Customer{}, &gymapi.APIError{Path: "/api/customers/" + id, Status: 404, Message: "Customer not found"}
	}
	return c, nil
}

func (f *fakeSource) ListCustomers(_ context.Context, q gymapi.CustomerQuery) (gymapi.CustomerPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	f.queries = append(f.queries, q)
	if f.listErr != nil {
		return gymapi.CustomerPage{}, f.listErr
	}
	return gymapi.CustomerPage{Items: []gymapi.Customer{f.customers["c-1"]}, Total: 1}, nil
}

func (f *fakeSource) FetchPayments(_ context.Context, id string) ([]gymapi.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["payments"]++
	return f.payments[id], nil
}

func (f *fakeSource) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeSource) lastQuery() gymapi.CustomerQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func testDeps(src gymapi.Source, hub *realtime.Hub, sched livesync.Scheduler) Deps {
	return Deps{
		Source:           src,
		Events:           hub,
		Scheduler:        sched,
		ListDebounce:     time.Second,
		DetailDebounce:   500 * time.Millisecond,
		PaymentsDebounce: time.Second,
		PageSize:         10,
	}
}

func emit(hub *realtime.Hub, name, payload string) {
	hub.Emit(livesync.Event{Name: name, Payload: []byte(payload)})
}

func TestCustomerList_FetchesWithFiltersAndBranch(t *testing.T) {
	src := newFakeSource()
	hub := realtime.NewHub(nil)
	sched := livesynctest.NewScheduler()
	deps := testDeps(src, hub, sched)
	deps.BranchID = "north"

	list, err := NewCustomerList(deps, gymapi.StatusFrozen, ListObserver{})
	require.NoError(t, err)
	t.Cleanup(list.Dispose)

	require.NoError(t, list.Load(livesync.Loud))
	require.Eventually(t, func() bool { return list.State().Status == state.StatusReady }, time.Second, time.Millisecond)

	q := src.lastQuery()
	assert.Equal(t, gymapi.CustomerQuery{Page: 1, PageSize: 10, Status: "frozen", Branch: "north"}, q)
	st := list.State()
	assert.Equal(t, 1, st.Value.Page, "missing paging echo falls back to the request")
	assert.Equal(t, 10, st.Value.PageSize)
	assert.Len(t, st.Value.Items, 1)

	// Other branches do not invalidate this list.
	emit(hub, realtime.CustomerCreated, `{"branchId":"south"}`)
	sched.Advance(time.Minute)
	assert.Equal(t, 1, src.count("list"))

	emit(hub, realtime.CustomerDeleted, `{"branchId":"north"}`)
	sched.Advance(999 * time.Millisecond)
	assert.Equal(t, 1, src.count("list"))
	sched.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return src.count("list") == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, "frozen", src.lastQuery().Status)
}

func TestCustomerList_WithoutBranchAcceptsAllEvents(t *testing.T) {
	src := newFakeSource()
	hub := realtime.NewHub(nil)
	sched := livesynctest.NewScheduler()

	list, err := NewCustomerList(testDeps(src, hub, sched), "", ListObserver{})
	require.NoError(t, err)
	t.Cleanup(list.Dispose)

	emit(hub, realtime.CustomerUpdated, `{}`)
	sched.Advance(time.Second)
	require.Eventually(t, func() bool { return src.count("list") == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, src.lastQuery().Status)
}

func TestCustomerList_BackgroundFailureIsReported(t *testing.T) {
	src := newFakeSource()
	hub := realtime.NewHub(nil)
	sched := livesynctest.NewScheduler()

	errs := make(chan state.ErrorInfo, 1)
	list, err := NewCustomerList(testDeps(src, hub, sched), "", ListObserver{
		OnBackgroundError: func(info state.ErrorInfo) { errs <- info },
	})
	require.NoError(t, err)
	t.Cleanup(list.Dispose)

	require.NoError(t, list.Load(livesync.Loud))
	require.Eventually(t, func() bool { return list.State().Status == state.StatusReady }, time.Second, time.Millisecond)

	src.mu.Lock()
	src.listErr = errors.New("connection reset")
	src.mu.Unlock()
	emit(hub, realtime.CustomerUpdated, `{}`)
	sched.Advance(time.Second)

	select {
	case info := <-errs:
		assert.Equal(t, "connection reset", info.Message)
	case <-time.After(time.Second):
		t.Fatal("background error not reported")
	}
	assert.Equal(t, state.StatusReady, list.State().Status)
}

func TestNewBindings_RequireSource(t *testing.T) {
	_, err := NewCustomerList(Deps{}, "", ListObserver{})
	assert.Error(t, err)
	_, err = NewCustomerDetail(Deps{}, "c-1", nil, nil)
	assert.Error(t, err)
	_, err = NewPaymentHistory(Deps{}, "c-1", nil, nil)
	assert.Error(t, err)
	_, err = OpenDetail(Deps{}, "c-1", DetailObserver{})
	assert.Error(t, err)
}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, gymapi.StatusActive, NextStatus(""))
	assert.Equal(t, gymapi.StatusFrozen, NextStatus(gymapi.StatusActive))
	assert.Equal(t, "", NextStatus(gymapi.StatusCancelled))
	assert.Equal(t, "", NextStatus("bogus"))
	assert.Nil(t, StatusFilter(""))
	assert.Equal(t, map[string]string{FilterStatus: "active"}, StatusFilter("active"))
}

func TestDetail_RefreshesEachHalfOnItsOwnEvents(t *testing.T) {
	src := newFakeSource()
	hub := realtime.NewHub(nil)
	sched := livesynctest.NewScheduler()

	var (
		mu        sync.Mutex
		customers []state.SyncState[gymapi.Customer]
		payments  []state.SyncState[[]gymapi.Payment]
	)
	d, err := OpenDetail(testDeps(src, hub, sched), "c-1", DetailObserver{
		OnCustomer: func(s state.SyncState[gymapi.Customer]) {
			mu.Lock()
			defer mu.Unlock()
			customers = append(customers, s)
		},
		OnPayments: func(s state.SyncState[[]gymapi.Payment]) {
			mu.Lock()
			defer mu.Unlock()
			payments = append(payments, s)
		},
	})
	require.NoError(t, err)
	t.Cleanup(d.Dispose)
	assert.Equal(t, "c-1", d.ID())
	assert.Equal(t, 500*time.Millisecond, d.Customer.DebounceWindow())
	assert.Equal(t, time.Second, d.Payments.DebounceWindow())

	require.NoError(t, d.Load(livesync.Loud))
	require.Eventually(t, func() bool {
		return d.Customer.State().Status == state.StatusReady && d.Payments.State().Status == state.StatusReady
	}, time.Second, time.Millisecond)
	assert.Equal(t, "Dana", d.Customer.State().Value.FirstName)
	assert.Equal(t, "39.9", gymapi.PaidTotal(d.Payments.State().Value).String())

	emit(hub, realtime.ContractUpdated, `{"customerId":"c-1"}`)
	emit(hub, realtime.PaymentCreated, `{"customerId":"c-2"}`)
	sched.Advance(500 * time.Millisecond)
	require.Eventually(t, func() bool { return src.count("customer") == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, src.count("payments"))

	emit(hub, realtime.PaymentRefunded, `{"customerId":"c-1"}`)
	sched.Advance(time.Second)
	require.Eventually(t, func() bool { return src.count("payments") == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 2, src.count("customer"))

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, customers)
	assert.NotEmpty(t, payments)
}

func TestDetail_GuardCoversBothHalves(t *testing.T) {
	src := newFakeSource()
	hub := realtime.NewHub(nil)
	sched := livesynctest.NewScheduler()

	d, err := OpenDetail(testDeps(src, hub, sched), "c-1", DetailObserver{})
	require.NoError(t, err)
	t.Cleanup(d.Dispose)

	require.NoError(t, d.Load(livesync.Loud))
	require.Eventually(t, func() bool {
		return d.Customer.State().Status == state.StatusReady && d.Payments.State().Status == state.StatusReady
	}, time.Second, time.Millisecond)

	wizardOpen := true
	d.AddGuard(func() bool { return wizardOpen })

	emit(hub, realtime.CustomerUpdated, `{"customerId":"c-1"}`)
	emit(hub, realtime.PaymentCreated, `{"customerId":"c-1"}`)
	sched.Advance(time.Minute)
	assert.Equal(t, 1, src.count("customer"))
	assert.Equal(t, 1, src.count("payments"))
}

func TestDetail_DisposeDetachesEverything(t *testing.T) {
	src := newFakeSource()
	hub := realtime.NewHub(nil)

	d, err := OpenDetail(testDeps(src, hub, livesynctest.NewScheduler()), "c-1", DetailObserver{})
	require.NoError(t, err)
	require.Equal(t, 1, hub.Listeners(realtime.CustomerUpdated))
	require.Equal(t, 1, hub.Listeners(realtime.PaymentCreated))

	d.Dispose()
	for _, name := range []string{realtime.CustomerUpdated, realtime.ContractUpdated, realtime.PaymentCreated, realtime.PaymentRefunded} {
		assert.Zero(t, hub.Listeners(name), name)
	}
	assert.ErrorIs(t, d.Load(livesync.Loud), livesync.ErrDisposed)
}

func TestDetail_LoudFailureUsesServerMessage(t *testing.T) {
	src := newFakeSource()
	d, err := OpenDetail(testDeps(src, realtime.NewHub(nil), livesynctest.NewScheduler()), "c-404", DetailObserver{})
	require.NoError(t, err)
	t.Cleanup(d.Dispose)

	require.NoError(t, d.Customer.Load(livesync.Loud))
	require.Eventually(t, func() bool { return d.Customer.State().Status == state.StatusError }, time.Second, time.Millisecond)
	assert.Equal(t, "Customer not found", d.Customer.State().LastError.Message)
}
