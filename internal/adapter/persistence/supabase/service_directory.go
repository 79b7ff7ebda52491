// Package supabase reads billable services from the CircleTel Supabase project.
package supabase

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	supa "github.com/nedpals/supabase-go"
	"github.com/shopspring/decimal"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

const (
	servicesTable  = "customer_services"
	serviceColumns = "id,customer_id,package_name,monthly_price,billing_day,status,activation_date,trial_end_date,zoho_customer_id," +
		"customer:customers(first_name,last_name,email,phone)"
)

// filter is one "column = value" condition.
type filter struct {
	column string
	value  string
}

// queryFunc runs a select on customer_services and decodes the rows into out.
type queryFunc func(ctx context.Context, filters []filter, out *[]serviceRow) error

type customerRow struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type serviceRow struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customer_id"`
	PackageName    string          `json:"package_name"`
	MonthlyPrice   decimal.Decimal `json:"monthly_price"`
	BillingDay     int             `json:"billing_day"`
	Status         string          `json:"status"`
	ActivationDate string          `json:"activation_date"`
	TrialEndDate   string          `json:"trial_end_date"`
	ZohoCustomerID string          `json:"zoho_customer_id"`
	Customer       *customerRow    `json:"customer"`
}

// ServiceDirectory implements IServiceDirectory over the customer_services table.
// Prices are stored in rands and converted to cents once, here.
type ServiceDirectory struct {
	query    queryFunc
	currency string
	log      *logger.Logger
}

var _ interfaces.IServiceDirectory = (*ServiceDirectory)(nil)

func NewServiceDirectory(url, serviceKey, currency string, log *logger.Logger) (*ServiceDirectory, error) {
	if url == "" || serviceKey == "" {
		return nil, errors.New("supabase url and service key are required")
	}
	client := supa.CreateClient(url, serviceKey)
	if client == nil {
		return nil, errors.New("failed to create supabase client")
	}
	query := func(_ context.Context, filters []filter, out *[]serviceRow) error {
		q := client.DB.From(servicesTable).Select(serviceColumns)
		if len(filters) == 0 {
			return q.Execute(out)
		}
		f := q.Eq(filters[0].column, filters[0].value)
		for _, fl := range filters[1:] {
			f = f.Eq(fl.column, fl.value)
		}
		return f.Execute(out)
	}
	return newServiceDirectory(query, currency, log), nil
}

func newServiceDirectory(query queryFunc, currency string, log *logger.Logger) *ServiceDirectory {
	if currency == "" {
		currency = "ZAR"
	}
	return &ServiceDirectory{query: query, currency: currency, log: logger.OrNop(log).Named("supabase_services")}
}

// ListBillableServices returns active services on the billing day. A service ID filter
// returns that service whatever its status.
func (d *ServiceDirectory) ListBillableServices(ctx context.Context, f entities.ServiceFilter) ([]entities.Service, error) {
	var filters []filter
	if f.ServiceID != "" {
		filters = append(filters, filter{"id", f.ServiceID})
	} else {
		filters = append(filters, filter{"status", string(entities.ServiceStatusActive)})
		if f.BillingDay != 0 {
			filters = append(filters, filter{"billing_day", strconv.Itoa(f.BillingDay)})
		}
		if f.CustomerID != "" {
			filters = append(filters, filter{"customer_id", f.CustomerID})
		}
	}

	var rows []serviceRow
	if err := d.query(ctx, filters, &rows); err != nil {
		d.log.Errorw("[billing][services] fetch failed", "filters", len(filters), "err", err)
		return nil, entities.External("supabase list services", err)
	}
	out := make([]entities.Service, 0, len(rows))
	for _, r := range rows {
		out = append(out, d.toService(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *ServiceDirectory) GetService(ctx context.Context, id string) (entities.Service, error) {
	var rows []serviceRow
	if err := d.query(ctx, []filter{{"id", id}}, &rows); err != nil {
		return entities.Service{}, entities.External("supabase get service", err)
	}
	if len(rows) == 0 {
		return entities.Service{}, nil
	}
	return d.toService(rows[0]), nil
}

func (d *ServiceDirectory) toService(r serviceRow) entities.Service {
	svc := entities.Service{
		ID:                r.ID,
		CustomerID:        r.CustomerID,
		PackageName:       r.PackageName,
		Status:            entities.ServiceStatus(strings.ToLower(r.Status)),
		BillingDay:        r.BillingDay,
		MonthlyPriceCents: money.FromMajor(r.MonthlyPrice),
		Currency:          d.currency,
		ActivationDate:    parseDate(r.ActivationDate),
		CRMCustomerID:     r.ZohoCustomerID,
	}
	if t := parseDate(r.TrialEndDate); !t.IsZero() {
		svc.TrialEndsAt = &t
	}
	if c := r.Customer; c != nil {
		svc.CustomerName = strings.TrimSpace(c.FirstName + " " + c.LastName)
		svc.CustomerEmail = c.Email
		svc.CustomerPhone = c.Phone
	}
	return svc
}

// parseDate accepts the date and timestamp shapes PostgREST returns.
func parseDate(v string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
