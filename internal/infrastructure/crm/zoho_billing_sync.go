package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

type ZohoSettings struct {
	BaseURL        string
	AccessToken    string
	OrganizationID string
	Timeout        time.Duration
	RetryMax       int
}

// ZohoBillingSync mirrors issued invoices into Zoho Billing so finance sees them next to the
// subscription records.
type ZohoBillingSync struct {
	client   *retryablehttp.Client
	settings ZohoSettings
	log      *logger.Logger
}

var _ interfaces.ICRMSync = (*ZohoBillingSync)(nil)

func NewZohoBillingSync(settings ZohoSettings, log *logger.Logger) *ZohoBillingSync {
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	if settings.RetryMax <= 0 {
		settings.RetryMax = 3
	}
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")

	client := retryablehttp.NewClient()
	client.RetryMax = settings.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = settings.Timeout
	client.Logger = nil

	return &ZohoBillingSync{client: client, settings: settings, log: logger.OrNop(log).Named("zoho")}
}

type zohoLineItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Rate        float64 `json:"rate"`
	Quantity    int64   `json:"quantity"`
}

type zohoInvoiceRequest struct {
	CustomerID    string         `json:"customer_id"`
	InvoiceNumber string         `json:"invoice_number,omitempty"`
	Date          string         `json:"date"`
	DueDate       string         `json:"due_date"`
	ReferenceID   string         `json:"reference_number"`
	LineItems     []zohoLineItem `json:"line_items"`
	Notes         string         `json:"notes,omitempty"`
}

type zohoResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Invoice *struct {
		InvoiceID string `json:"invoice_id"`
	} `json:"invoice"`
}

func (z *ZohoBillingSync) SyncInvoice(ctx context.Context, inv entities.Invoice, svc entities.Service) (bool, error) {
	if svc.CRMCustomerID == "" {
		return false, errors.Newf("service %s has no zoho customer id", svc.ID)
	}

	req := zohoInvoiceRequest{
		CustomerID:    svc.CRMCustomerID,
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.IssueDate.Format("2006-01-02"),
		DueDate:       inv.DueDate.Format("2006-01-02"),
		ReferenceID:   inv.ID,
		Notes:         fmt.Sprintf("Billing period %s", inv.BillingPeriod),
	}
	for _, li := range inv.LineItems {
		req.LineItems = append(req.LineItems, zohoLineItem{
			Name:     li.Description,
			Rate:     money.ToMajor(li.UnitPriceCents).InexactFloat64(),
			Quantity: li.Quantity,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return false, errors.Wrap(err, "marshal zoho invoice")
	}
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, z.settings.BaseURL+"/invoices", bytes.NewReader(body))
	if err != nil {
		return false, errors.Wrap(err, "build zoho request")
	}
	httpReq.Header.Set("Authorization", "Zoho-oauthtoken "+z.settings.AccessToken)
	httpReq.Header.Set("X-com-zoho-subscriptions-organizationid", z.settings.OrganizationID)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := z.client.Do(httpReq)
	if err != nil {
		return false, entities.External("zoho create invoice", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out zohoResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode >= 300 || out.Code != 0 {
		return false, entities.External("zoho create invoice",
			errors.Newf("zoho responded %d: %s (code %d)", resp.StatusCode, out.Message, out.Code))
	}

	zohoID := ""
	if out.Invoice != nil {
		zohoID = out.Invoice.InvoiceID
	}
	z.log.Infow("[crm][zoho] invoice synced", "invoice_id", inv.ID, "zoho_invoice_id", zohoID)
	return true, nil
}
