package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

const defaultNetCashPaymentURL = "https://paynow.netcash.co.za/site/paynow.aspx"

type NetCashSettings struct {
	ServiceKey    string
	PCIVaultKey   string
	WebhookSecret string
	PaymentURL    string
	ReturnURL     string
	CancelURL     string
	NotifyURL     string
}

// NetCashProvider integrates NetCash Pay Now. The hosted page is a form POST target; results
// arrive only by callback, and refunds are done by hand in the merchant portal.
type NetCashProvider struct {
	settings NetCashSettings
	log      *logger.Logger
	now      func() time.Time
}

var _ interfaces.IPaymentProvider = (*NetCashProvider)(nil)

func NewNetCashProvider(settings NetCashSettings, log *logger.Logger) *NetCashProvider {
	if settings.PaymentURL == "" {
		settings.PaymentURL = defaultNetCashPaymentURL
	}
	p := &NetCashProvider{
		settings: settings,
		log:      logger.OrNop(log).Named("netcash"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	if settings.ServiceKey == "" || settings.PCIVaultKey == "" {
		p.log.Warnw("[payment][netcash] provider not fully configured")
	}
	if settings.WebhookSecret == "" {
		p.log.Warnw("[payment][netcash] webhook secret missing, every callback will be rejected")
	}
	return p
}

func (p *NetCashProvider) Name() entities.ProviderType { return entities.ProviderNetCash }

func (p *NetCashProvider) Capabilities() entities.ProviderCapabilities {
	return entities.ProviderCapabilities{Webhooks: true, Recurring: true}
}

// InitiatePayment builds the Pay Now form. The reference doubles as p2 and m4 so the
// callback can be matched back to the transaction.
func (p *NetCashProvider) InitiatePayment(_ context.Context, req interfaces.PaymentInitiation) (interfaces.PaymentInitiationResult, error) {
	if req.AmountCents <= 0 {
		return interfaces.PaymentInitiationResult{}, entities.Validationf("netcash amount must be positive")
	}
	if strings.TrimSpace(req.CustomerEmail) == "" {
		return interfaces.PaymentInitiationResult{}, entities.Validationf("netcash requires a customer email")
	}
	ref := req.InvoiceNumber
	if ref == "" {
		ref = req.InvoiceID
	}
	reference := fmt.Sprintf("CT-%s-%d", ref, p.now().UnixMilli())

	description := req.Description
	if description == "" {
		description = "Payment"
	}
	fields := map[string]string{
		"m1":                   p.settings.ServiceKey,
		"m2":                   p.settings.PCIVaultKey,
		"p2":                   reference,
		"p3":                   description,
		"p4":                   strconv.FormatInt(int64(req.AmountCents), 10),
		"Budget":               "N",
		"CustomerEmailAddress": req.CustomerEmail,
		"m4":                   reference,
		"m9":                   p.settings.ReturnURL,
		"m10":                  p.settings.CancelURL,
	}

	q := url.Values{}
	for k, v := range fields {
		if v != "" {
			q.Set(k, v)
		}
	}
	p.log.Infow("[payment][netcash] payment initiated", "reference", reference, "invoice_id", req.InvoiceID, "amount_cents", req.AmountCents)
	return interfaces.PaymentInitiationResult{
		PaymentURL:        p.settings.PaymentURL + "?" + q.Encode(),
		ProviderReference: reference,
		FormFields:        fields,
	}, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 hex digest of the raw body.
func (p *NetCashProvider) VerifyWebhookSignature(payload []byte, headers map[string]string) bool {
	return validHex(p.settings.WebhookSecret, payload, header(headers, "x-netcash-signature", "x-signature"))
}

type netCashCallback struct {
	TransactionAccepted string `json:"TransactionAccepted"`
	Complete            string `json:"Complete"`
	Amount              string `json:"Amount"`
	Reference           string `json:"Reference"`
	M4                  string `json:"m4"`
	Reason              string `json:"Reason"`
	TransactionDate     string `json:"TransactionDate"`
	Extra1              string `json:"Extra1"`
	RequestTrace        string `json:"RequestTrace"`
	Result              string `json:"Result"`
}

// ParseWebhook accepts the callback as JSON or as a form-encoded body.
func (p *NetCashProvider) ParseWebhook(_ context.Context, payload []byte) (entities.CanonicalPaymentResult, error) {
	cb, err := decodeNetCashCallback(payload)
	if err != nil {
		return entities.CanonicalPaymentResult{}, err
	}
	reference := cb.Reference
	if reference == "" {
		reference = cb.M4
	}
	if reference == "" {
		return entities.CanonicalPaymentResult{}, entities.Validationf("netcash callback has no reference")
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(cb.Amount), 10, 64)
	if err != nil && cb.Amount != "" {
		return entities.CanonicalPaymentResult{}, entities.Validationf("netcash callback amount %q is not in cents", cb.Amount)
	}

	res := entities.CanonicalPaymentResult{
		Provider:          entities.ProviderNetCash,
		ProviderReference: reference,
		AmountCents:       money.Cents(amount),
		Status:            entities.TransactionPending,
		OccurredAt:        p.now(),
		Raw:               payload,
	}
	if t, err := time.Parse(time.RFC3339, cb.TransactionDate); err == nil {
		res.OccurredAt = t.UTC()
	}

	switch {
	case strings.EqualFold(cb.Complete, "true") && (strings.EqualFold(cb.Result, "success") || strings.EqualFold(cb.TransactionAccepted, "true")):
		res.Status = entities.TransactionCompleted
	case strings.EqualFold(cb.Complete, "true") && strings.EqualFold(cb.Result, "cancelled"):
		res.Status = entities.TransactionFailed
		res.FailureReason = "Payment cancelled by user"
	case strings.EqualFold(cb.Complete, "true") && (strings.EqualFold(cb.Result, "failed") || strings.EqualFold(cb.TransactionAccepted, "false")):
		res.Status = entities.TransactionFailed
		res.FailureReason = cb.Reason
		if res.FailureReason == "" {
			res.FailureReason = "Payment failed"
		}
	}
	return res, nil
}

func decodeNetCashCallback(payload []byte) (netCashCallback, error) {
	var cb netCashCallback
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(payload, &cb); err != nil {
			return cb, errors.Wrap(err, "decode netcash callback")
		}
		return cb, nil
	}
	form, err := url.ParseQuery(trimmed)
	if err != nil {
		return cb, errors.Wrap(err, "decode netcash callback form")
	}
	cb = netCashCallback{
		TransactionAccepted: form.Get("TransactionAccepted"),
		Complete:            form.Get("Complete"),
		Amount:              form.Get("Amount"),
		Reference:           form.Get("Reference"),
		M4:                  form.Get("m4"),
		Reason:              form.Get("Reason"),
		TransactionDate:     form.Get("TransactionDate"),
		Extra1:              form.Get("Extra1"),
		RequestTrace:        form.Get("RequestTrace"),
		Result:              form.Get("Result"),
	}
	return cb, nil
}

func (p *NetCashProvider) QueryStatus(context.Context, string) (entities.CanonicalPaymentResult, error) {
	return entities.CanonicalPaymentResult{}, errors.Wrap(entities.ErrNotSupported, "netcash pay now has no status query api")
}

func (p *NetCashProvider) Refund(_ context.Context, reference string, amount money.Cents) (interfaces.RefundResult, error) {
	p.log.Warnw("[payment][netcash] refund requested, process it in the merchant portal", "reference", reference, "amount_cents", amount)
	return interfaces.RefundResult{}, errors.Wrap(entities.ErrNotSupported, "netcash refunds are processed manually")
}
