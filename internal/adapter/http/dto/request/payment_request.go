package request

import (
	"github.com/shopspring/decimal"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/usecase"
)

// InitiatePaymentRequest starts a hosted payment for an invoice. Amount is in major units
// ("575.00") and defaults to the amount due.
type InitiatePaymentRequest struct {
	Provider string           `json:"provider"`
	Amount   *decimal.Decimal `json:"amount"`
}

func (r InitiatePaymentRequest) ToUseCase(invoiceID string) (usecase.InitiatePaymentRequest, error) {
	out := usecase.InitiatePaymentRequest{InvoiceID: invoiceID, Provider: normalizeProvider(r.Provider)}
	if r.Amount != nil {
		if !r.Amount.IsPositive() {
			return usecase.InitiatePaymentRequest{}, entities.Validationf("amount must be positive")
		}
		if !r.Amount.Equal(r.Amount.Round(2)) {
			return usecase.InitiatePaymentRequest{}, entities.Validationf("amount %s has more than two decimals", r.Amount.String())
		}
		out.AmountCents = money.FromMajor(*r.Amount)
	}
	return out, nil
}
