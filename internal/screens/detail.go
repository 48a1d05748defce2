package screens

import (
	"github.com/five82/gymsync/internal/gymapi"
	"github.com/five82/gymsync/internal/livesync"
	"github.com/five82/gymsync/internal/state"
)

// DetailObserver receives notifications from both halves of a detail screen.
type DetailObserver struct {
	OnCustomer        func(state.SyncState[gymapi.Customer])
	OnPayments        func(state.SyncState[[]gymapi.Payment])
	OnBackgroundError func(label string, info state.ErrorInfo)
}

// Detail is the customer detail screen: the customer with their contract and
// the payment history below it. Both controllers live and die together.
type Detail struct {
	Customer *livesync.Controller[gymapi.Customer]
	Payments *livesync.Controller[[]gymapi.Payment]
}

// OpenDetail builds both controllers for customer id. Nothing is fetched
// until Load.
func OpenDetail(deps Deps, id string, obs DetailObserver) (*Detail, error) {
	bgErr := func(label string) func(state.ErrorInfo) {
		if obs.OnBackgroundError == nil {
			return nil
		}
		return func(info state.ErrorInfo) { obs.OnBackgroundError(label, info) }
	}

	customer, err := NewCustomerDetail(deps, id, obs.OnCustomer, bgErr(LabelCustomerDetail))
	if err != nil {
		return nil, err
	}
	payments, err := NewPaymentHistory(deps, id, obs.OnPayments, bgErr(LabelPaymentHistory))
	if err != nil {
		customer.Dispose()
		return nil, err
	}
	return &Detail{Customer: customer, Payments: payments}, nil
}

// ID returns the customer id.
func (d *Detail) ID() string { return string(d.Customer.ID()) }

// Load loads both halves.
func (d *Detail) Load(mode livesync.Mode) error {
	if err := d.Customer.Load(mode); err != nil {
		return err
	}
	return d.Payments.Load(mode)
}

// AddGuard vetoes background refreshes of both halves while g returns true.
func (d *Detail) AddGuard(g livesync.Guard) {
	d.Customer.AddGuard(g)
	d.Payments.AddGuard(g)
}

// Dispose tears down both controllers.
func (d *Detail) Dispose() {
	d.Customer.Dispose()
	d.Payments.Dispose()
}
