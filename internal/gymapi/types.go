package gymapi

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const backendDateLayout = "2006-01-02"

// Customer statuses used by the list filter.
const (
	StatusActive    = "active"
	StatusFrozen    = "frozen"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// CustomerStatuses lists the filterable statuses in display order.
var CustomerStatuses = []string{StatusActive, StatusFrozen, StatusExpired, StatusCancelled}

// Customer mirrors /api/customers/{id}.
type Customer struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	BranchID  string    `json:"branchId"`
	Contract  *Contract `json:"contract"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

// FullName joins the non-empty name parts.
func (c Customer) FullName() string {
	parts := lo.Compact([]string{strings.TrimSpace(c.FirstName), strings.TrimSpace(c.LastName)})
	if len(parts) == 0 {
		return c.ID
	}
	return strings.Join(parts, " ")
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (c Customer) ParsedUpdatedAt() time.Time {
	return parseTime(c.UpdatedAt)
}

// Clone returns a copy that shares no pointers with c.
func (c Customer) Clone() Customer {
	if c.Contract != nil {
		contract := *c.Contract
		c.Contract = &contract
	}
	return c
}

// Contract is a customer's membership contract.
type Contract struct {
	ID         string          `json:"id"`
	Plan       string          `json:"plan"`
	Status     string          `json:"status"`
	MonthlyFee decimal.Decimal `json:"monthlyFee"`
	StartsAt   string          `json:"startsAt"`
	EndsAt     string          `json:"endsAt"`
	AutoRenew  bool            `json:"autoRenew"`
}

// ParsedEndsAt returns the contract end date.
func (c Contract) ParsedEndsAt() time.Time {
	return parseTime(c.EndsAt)
}

// DaysLeft returns whole days until the contract ends, or 0 once it has.
func (c Contract) DaysLeft(now time.Time) int {
	end := c.ParsedEndsAt()
	if end.IsZero() || !end.After(now) {
		return 0
	}
	return int(end.Sub(now).Hours() / 24)
}

// CustomerPage mirrors /api/customers.
type CustomerPage struct {
	Items    []Customer `json:"items"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
	Total    int        `json:"total"`
}

// Payment statuses.
const (
	PaymentPaid     = "paid"
	PaymentPending  = "pending"
	PaymentRefunded = "refunded"
	PaymentFailed   = "failed"
)

// Payment is one charge against a customer.
type Payment struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customerId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	Method     string          `json:"method"`
	PaidAt     string          `json:"paidAt"`
}

// ParsedPaidAt returns the parsed PaidAt timestamp.
func (p Payment) ParsedPaidAt() time.Time {
	return parseTime(p.PaidAt)
}

// PaymentListResponse mirrors /api/customers/{id}/payments.
type PaymentListResponse struct {
	Items []Payment `json:"items"`
}

// PaidTotal sums the amounts of settled payments. Refunded, pending and failed
// payments are excluded.
func PaidTotal(payments []Payment) decimal.Decimal {
	paid := lo.Filter(payments, func(p Payment, _ int) bool {
		return strings.EqualFold(p.Status, PaymentPaid)
	})
	return lo.Reduce(paid, func(sum decimal.Decimal, p Payment, _ int) decimal.Decimal {
		return sum.Add(p.Amount)
	}, decimal.Zero)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendDateLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
