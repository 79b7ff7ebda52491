package entities

import (
	"time"

	"circletel_billing/internal/domain/money"
)

type ServiceStatus string

const (
	ServiceStatusActive    ServiceStatus = "active"
	ServiceStatusPending   ServiceStatus = "pending"
	ServiceStatusSuspended ServiceStatus = "suspended"
	ServiceStatusCancelled ServiceStatus = "cancelled"
)

// OneOffCharge is a not-yet-billed installation or hardware fee attached to a service.
type OneOffCharge struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Type        LineItemType `json:"type"`
	AmountCents money.Cents  `json:"amount_cents"`
	Quantity    int64        `json:"quantity"`
	// Period is the "YYYY-MM" the charge is billed in. Empty means the activation month.
	Period string `json:"period,omitempty"`
}

// DueIn reports whether the charge belongs on the invoice for period.
func (c OneOffCharge) DueIn(period string, activation time.Time) bool {
	if c.Period != "" {
		return c.Period == period
	}
	return !activation.IsZero() && BillingPeriodOf(activation) == period
}

// Service is the billable contract as read from the customer/service store.
type Service struct {
	ID                string         `json:"id"`
	CustomerID        string         `json:"customer_id"`
	CustomerName      string         `json:"customer_name"`
	CustomerEmail     string         `json:"customer_email"`
	CustomerPhone     string         `json:"customer_phone,omitempty"`
	PackageName       string         `json:"package_name"`
	Status            ServiceStatus  `json:"status"`
	BillingDay        int            `json:"billing_day"`
	MonthlyPriceCents money.Cents    `json:"monthly_price_cents"`
	Currency          string         `json:"currency"`
	TaxRate           *money.Rate    `json:"tax_rate_bp,omitempty"`
	ActivationDate    time.Time      `json:"activation_date"`
	TrialEndsAt       *time.Time     `json:"trial_ends_at,omitempty"`
	PendingCharges    []OneOffCharge `json:"pending_charges,omitempty"`
	CRMCustomerID     string         `json:"crm_customer_id,omitempty"`
}

// HasBillingConfig reports whether the service carries a usable billing setup.
func (s Service) HasBillingConfig() bool {
	return ValidBillingDay(s.BillingDay) && s.MonthlyPriceCents >= 0 && s.PackageName != ""
}

// ValidBillingDay keeps runs inside 1..28 so every month has the day.
func ValidBillingDay(day int) bool {
	return day >= 1 && day <= 28
}

// ServiceFilter narrows which services a billing run considers.
type ServiceFilter struct {
	BillingDay int
	CustomerID string
	ServiceID  string
}
