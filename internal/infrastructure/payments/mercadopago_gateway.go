package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/mercadopago/sdk-go/pkg/refund"
	"github.com/shopspring/decimal"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

var (
	ErrMissingMercadoPagoAccessToken   = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")
	ErrMercadoPagoGatewayNotConfigured = errors.New("mercado pago gateway not configured")
)

type MercadoPagoSettings struct {
	AccessToken     string
	WebhookSecret   string
	NotificationURL string
}

// MercadoPagoGateway opens a checkout preference per payment and resolves callbacks and polls
// by looking the payment up through the SDK. The transaction reference travels as the
// preference external_reference.
type MercadoPagoGateway struct {
	payments    payment.Client
	preferences preference.Client
	refunds     refund.Client
	settings    MercadoPagoSettings
	log         *logger.Logger
	now         func() time.Time
}

var _ interfaces.IPaymentProvider = (*MercadoPagoGateway)(nil)

func NewMercadoPagoGateway(settings MercadoPagoSettings, log *logger.Logger) (*MercadoPagoGateway, error) {
	log = logger.OrNop(log).Named("mercadopago")
	if settings.AccessToken == "" {
		log.Warnw("[payment][gateway] missing MERCADOPAGO_ACCESS_TOKEN")
		return nil, ErrMissingMercadoPagoAccessToken
	}

	cfg, err := config.New(settings.AccessToken)
	if err != nil {
		log.Errorw("[payment][gateway] failed creating sdk config", "err", err)
		return nil, err
	}
	log.Infow("[payment][gateway] Mercado Pago client initialized")

	return &MercadoPagoGateway{
		payments:    payment.NewClient(cfg),
		preferences: preference.NewClient(cfg),
		refunds:     refund.NewClient(cfg),
		settings:    settings,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (g *MercadoPagoGateway) Name() entities.ProviderType { return entities.ProviderMercadoPago }

func (g *MercadoPagoGateway) Capabilities() entities.ProviderCapabilities {
	return entities.ProviderCapabilities{Refunds: true, PartialRefund: true, StatusQueries: true, Webhooks: true}
}

func (g *MercadoPagoGateway) InitiatePayment(ctx context.Context, req interfaces.PaymentInitiation) (interfaces.PaymentInitiationResult, error) {
	if g == nil || g.preferences == nil {
		return interfaces.PaymentInitiationResult{}, ErrMercadoPagoGatewayNotConfigured
	}
	ref := req.InvoiceNumber
	if ref == "" {
		ref = req.InvoiceID
	}
	reference := fmt.Sprintf("CT-%s-%d", ref, g.now().UnixMilli())
	g.log.Infow("[payment][gateway] create start", "reference", reference, "amount_cents", req.AmountCents)

	resp, err := g.preferences.Create(ctx, preference.Request{
		ExternalReference: reference,
		NotificationURL:   g.settings.NotificationURL,
		Items: []preference.ItemRequest{{
			ID:         req.InvoiceID,
			Title:      req.Description,
			Quantity:   1,
			UnitPrice:  toMercadoPago(req.AmountCents),
			CurrencyID: req.Currency,
		}},
		Payer: &preference.PayerRequest{Name: req.CustomerName, Email: req.CustomerEmail},
	})
	if err != nil {
		g.log.Errorw("[payment][gateway] sdk create failed", "reference", reference, "err", err)
		return interfaces.PaymentInitiationResult{}, err
	}
	g.log.Infow("[payment][gateway] create success", "reference", reference, "preference_id", resp.ID)
	return interfaces.PaymentInitiationResult{PaymentURL: resp.InitPoint, ProviderReference: reference}, nil
}

// VerifyWebhookSignature validates the x-signature header ("ts=...,v1=...") against the
// manifest "id:{data.id};request-id:{x-request-id};ts:{ts};".
func (g *MercadoPagoGateway) VerifyWebhookSignature(payload []byte, headers map[string]string) bool {
	ts, v1 := splitMercadoPagoSignature(header(headers, "x-signature"))
	if ts == "" || v1 == "" {
		return false
	}
	n, err := decodeMercadoPagoNotification(payload)
	if err != nil || n.Data.ID == "" {
		return false
	}
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(n.Data.ID), header(headers, "x-request-id"), ts)
	return validHex(g.settings.WebhookSecret, []byte(manifest), v1)
}

func splitMercadoPagoSignature(sig string) (ts, v1 string) {
	for _, part := range strings.Split(sig, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	return ts, v1
}

type mercadoPagoNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func decodeMercadoPagoNotification(payload []byte) (mercadoPagoNotification, error) {
	var n mercadoPagoNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		// Some notifications carry a numeric id.
		var alt struct {
			Type string `json:"type"`
			Data struct {
				ID json.Number `json:"id"`
			} `json:"data"`
		}
		if altErr := json.Unmarshal(payload, &alt); altErr != nil {
			return n, errors.Wrap(err, "decode mercado pago notification")
		}
		n.Type = alt.Type
		n.Data.ID = alt.Data.ID.String()
	}
	return n, nil
}

// ParseWebhook resolves the notified payment through the API; the notification body itself
// carries no amount or status.
func (g *MercadoPagoGateway) ParseWebhook(ctx context.Context, payload []byte) (entities.CanonicalPaymentResult, error) {
	n, err := decodeMercadoPagoNotification(payload)
	if err != nil {
		return entities.CanonicalPaymentResult{}, entities.Validationf("mercado pago notification is not valid json")
	}
	if n.Type != "" && n.Type != "payment" {
		return entities.CanonicalPaymentResult{}, entities.Validationf("mercado pago notification type %q is not handled", n.Type)
	}
	id, err := strconv.Atoi(n.Data.ID)
	if err != nil {
		return entities.CanonicalPaymentResult{}, entities.Validationf("mercado pago payment id %q is not numeric", n.Data.ID)
	}
	resp, err := g.payments.Get(ctx, id)
	if err != nil {
		return entities.CanonicalPaymentResult{}, entities.External("mercadopago get payment", err)
	}
	return g.canonical(*resp), nil
}

func (g *MercadoPagoGateway) QueryStatus(ctx context.Context, reference string) (entities.CanonicalPaymentResult, error) {
	resp, err := g.findPayment(ctx, reference)
	if err != nil {
		return entities.CanonicalPaymentResult{}, err
	}
	if resp == nil {
		// The customer has not paid yet.
		return entities.CanonicalPaymentResult{
			Provider:          entities.ProviderMercadoPago,
			ProviderReference: reference,
			Status:            entities.TransactionInitiated,
			OccurredAt:        g.now(),
		}, nil
	}
	return g.canonical(*resp), nil
}

func (g *MercadoPagoGateway) Refund(ctx context.Context, reference string, amount money.Cents) (interfaces.RefundResult, error) {
	resp, err := g.findPayment(ctx, reference)
	if err != nil {
		return interfaces.RefundResult{}, err
	}
	if resp == nil || resp.Status != "approved" {
		return interfaces.RefundResult{}, entities.Validationf("mercado pago has no approved payment for %s", reference)
	}

	var out *refund.Response
	if amount > 0 && fromMercadoPago(resp.TransactionAmount) != amount {
		out, err = g.refunds.CreatePartialRefund(ctx, resp.ID, toMercadoPago(amount))
	} else {
		out, err = g.refunds.Create(ctx, resp.ID)
	}
	if err != nil {
		g.log.Errorw("[payment][gateway] refund failed", "reference", reference, "payment_id", resp.ID, "err", err)
		return interfaces.RefundResult{}, err
	}
	g.log.Infow("[payment][gateway] refund success", "reference", reference, "refund_id", out.ID, "status", out.Status)
	return interfaces.RefundResult{
		ProviderReference: strconv.Itoa(out.ID),
		AmountCents:       fromMercadoPago(out.Amount),
		Status:            entities.TransactionCompleted,
	}, nil
}

// findPayment returns the most relevant payment for the external reference, or nil when none exists.
func (g *MercadoPagoGateway) findPayment(ctx context.Context, reference string) (*payment.Response, error) {
	res, err := g.payments.Search(ctx, payment.SearchRequest{
		Filters: map[string]string{"external_reference": reference},
	})
	if err != nil {
		return nil, entities.External("mercadopago search payment", err)
	}
	var found *payment.Response
	for i := range res.Results {
		p := &res.Results[i]
		if found == nil || p.Status == "approved" {
			found = p
		}
	}
	return found, nil
}

func (g *MercadoPagoGateway) canonical(resp payment.Response) entities.CanonicalPaymentResult {
	raw, _ := json.Marshal(resp)
	res := entities.CanonicalPaymentResult{
		Provider:          entities.ProviderMercadoPago,
		ProviderReference: resp.ExternalReference,
		AmountCents:       fromMercadoPago(resp.TransactionAmount),
		Status:            mercadoPagoStatus(resp.Status),
		OccurredAt:        g.now(),
		Raw:               raw,
	}
	if res.Status == entities.TransactionFailed {
		res.FailureReason = resp.StatusDetail
	}
	return res
}

func mercadoPagoStatus(status string) entities.TransactionStatus {
	switch status {
	case "approved":
		return entities.TransactionCompleted
	case "rejected", "cancelled":
		return entities.TransactionFailed
	case "refunded", "charged_back":
		return entities.TransactionRefunded
	}
	return entities.TransactionPending
}

// The SDK speaks float major units; conversion happens only here.
func toMercadoPago(c money.Cents) float64 {
	return money.ToMajor(c).InexactFloat64()
}

func fromMercadoPago(v float64) money.Cents {
	return money.FromMajor(decimal.NewFromFloat(v))
}
