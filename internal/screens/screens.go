package screens

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/five82/gymsync/internal/gymapi"
	"github.com/five82/gymsync/internal/livesync"
	"github.com/five82/gymsync/internal/realtime"
	"github.com/five82/gymsync/internal/state"
)

// Diagnostic labels, one per screen.
const (
	LabelCustomerList   = "customer-list"
	LabelCustomerDetail = "customer-detail"
	LabelPaymentHistory = "payment-history"
)

// Filter keys understood by the customer list fetcher.
const (
	FilterStatus = "status"
	FilterSearch = "search"
)

// Deps are the collaborators shared by every screen binding.
type Deps struct {
	Source      gymapi.Source
	Events      livesync.EventSource
	Diagnostics livesync.Diagnostics
	// Context bounds every fetch; cancelling it tears down in-flight requests.
	Context   context.Context
	Scheduler livesync.Scheduler

	ListDebounce     time.Duration
	DetailDebounce   time.Duration
	PaymentsDebounce time.Duration

	// BranchID limits list invalidations to one branch when set.
	BranchID string
	PageSize int
	Strict   bool
}

// ListObserver receives customer list notifications.
type ListObserver struct {
	OnStateChange     func(livesync.ListState[gymapi.Customer])
	OnBackgroundError func(state.ErrorInfo)
}

// NewCustomerList binds a list controller to the customer directory. status
// seeds the status filter.
func NewCustomerList(deps Deps, status string, obs ListObserver) (*livesync.ListController[gymapi.Customer], error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("customer list requires a data source")
	}
	var relevant livesync.Predicate
	if deps.BranchID != "" {
		relevant = livesync.FieldEquals("branchId", deps.BranchID)
	}
	return livesync.NewList(livesync.ListOptions[gymapi.Customer]{
		ID:                "customers",
		Fetch:             customerPages(deps.Source, deps.BranchID),
		Query:             livesync.Query{Page: 1, PageSize: deps.PageSize, Filters: StatusFilter(status)},
		Label:             LabelCustomerList,
		Context:           deps.Context,
		Debounce:          deps.ListDebounce,
		Scheduler:         deps.Scheduler,
		Events:            deps.Events,
		EventNames:        []string{realtime.CustomerCreated, realtime.CustomerUpdated, realtime.CustomerDeleted},
		Relevant:          relevant,
		OnStateChange:     obs.OnStateChange,
		OnBackgroundError: obs.OnBackgroundError,
		Diagnostics:       deps.Diagnostics,
		Strict:            deps.Strict,
	})
}

func customerPages(src gymapi.Source, branch string) livesync.PageFetcher[gymapi.Customer] {
	return func(ctx context.Context, _ livesync.EntityID, q livesync.Query) (livesync.Page[gymapi.Customer], error) {
		page, err := src.ListCustomers(ctx, gymapi.CustomerQuery{
			Page:     q.Page,
			PageSize: q.PageSize,
			Status:   q.Filters[FilterStatus],
			Search:   q.Filters[FilterSearch],
			Branch:   branch,
		})
		if err != nil {
			return livesync.Page[gymapi.Customer]{}, err
		}
		// Servers that omit paging echo get the requested values.
		return livesync.Page[gymapi.Customer]{
			Items:    page.Items,
			Page:     lo.Ternary(page.Page > 0, page.Page, q.Page),
			PageSize: lo.Ternary(page.PageSize > 0, page.PageSize, q.PageSize),
			Total:    page.Total,
		}, nil
	}
}

// StatusFilter returns list filters for status; empty means no filter.
func StatusFilter(status string) map[string]string {
	if status == "" {
		return nil
	}
	return map[string]string{FilterStatus: status}
}

// NextStatus cycles the list status filter: all, then each customer status.
func NextStatus(current string) string {
	cycle := append([]string{""}, gymapi.CustomerStatuses...)
	_, idx, found := lo.FindIndexOf(cycle, func(s string) bool { return s == current })
	if !found {
		return ""
	}
	return cycle[(idx+1)%len(cycle)]
}

// NewCustomerDetail binds a controller to one customer. It refreshes on
// customer and contract changes for that customer only.
func NewCustomerDetail(deps Deps, id string, onChange func(state.SyncState[gymapi.Customer]), onBackgroundError func(state.ErrorInfo)) (*livesync.Controller[gymapi.Customer], error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("customer detail requires a data source")
	}
	return livesync.New(livesync.Options[gymapi.Customer]{
		ID: livesync.EntityID(id),
		Fetch: func(ctx context.Context, id livesync.EntityID) (gymapi.Customer, error) {
			return deps.Source.FetchCustomer(ctx, string(id))
		},
		Label:             LabelCustomerDetail,
		Context:           deps.Context,
		Debounce:          deps.DetailDebounce,
		Scheduler:         deps.Scheduler,
		Events:            deps.Events,
		EventNames:        []string{realtime.CustomerUpdated, realtime.ContractUpdated},
		Relevant:          livesync.FieldEquals("customerId", id),
		OnStateChange:     onChange,
		OnBackgroundError: onBackgroundError,
		Diagnostics:       deps.Diagnostics,
		Clone:             gymapi.Customer.Clone,
		Strict:            deps.Strict,
	})
}

// NewPaymentHistory binds a controller to one customer's payments.
func NewPaymentHistory(deps Deps, customerID string, onChange func(state.SyncState[[]gymapi.Payment]), onBackgroundError func(state.ErrorInfo)) (*livesync.Controller[[]gymapi.Payment], error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("payment history requires a data source")
	}
	return livesync.New(livesync.Options[[]gymapi.Payment]{
		ID: livesync.EntityID(customerID),
		Fetch: func(ctx context.Context, id livesync.EntityID) ([]gymapi.Payment, error) {
			return deps.Source.FetchPayments(ctx, string(id))
		},
		Label:             LabelPaymentHistory,
		Context:           deps.Context,
		Debounce:          deps.PaymentsDebounce,
		Scheduler:         deps.Scheduler,
		Events:            deps.Events,
		EventNames:        []string{realtime.PaymentCreated, realtime.PaymentRefunded},
		Relevant:          livesync.FieldEquals("customerId", customerID),
		OnStateChange:     onChange,
		OnBackgroundError: onBackgroundError,
		Diagnostics:       deps.Diagnostics,
		Clone:             clonePayments,
		Strict:            deps.Strict,
	})
}

func clonePayments(p []gymapi.Payment) []gymapi.Payment {
	return append([]gymapi.Payment(nil), p...)
}
