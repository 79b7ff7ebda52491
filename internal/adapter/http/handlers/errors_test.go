package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"circletel_billing/internal/domain/entities"
)

func TestMapBillingError(t *testing.T) {
	guard := &entities.InvalidStateTransitionError{From: entities.InvoiceStatusSent, To: entities.InvoiceStatusVoid, Guard: "Only draft invoices can be voided"}

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errors.Wrapf(entities.ErrNotFound, "invoice %s", "inv-1"), http.StatusNotFound, "NOT_FOUND"},
		{"unknown provider", errors.Wrap(entities.ErrUnknownProvider, "payfast"), http.StatusNotFound, "UNKNOWN_PROVIDER"},
		{"bad signature", errors.Wrap(entities.ErrInvalidSignature, "provider netcash"), http.StatusUnauthorized, "INVALID_SIGNATURE"},
		{"guard", errors.Wrap(guard, "void invoice"), http.StatusConflict, "INVALID_STATE_TRANSITION"},
		{"duplicate invoice", entities.ErrDuplicateInvoice, http.StatusConflict, "DUPLICATE_INVOICE"},
		{"not payable", errors.Wrap(entities.ErrInvoiceNotPayable, "inv-1"), http.StatusConflict, "INVOICE_NOT_PAYABLE"},
		{"validation", entities.Validationf("billing period %q must be YYYY-MM", "March"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"amount mismatch", entities.ErrAmountMismatch, http.StatusUnprocessableEntity, "RECONCILIATION_FAILED"},
		{"version conflict", entities.ErrVersionConflict, http.StatusServiceUnavailable, "TEMPORARILY_UNAVAILABLE"},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable, "TEMPORARILY_UNAVAILABLE"},
		{"gateway down", entities.External("initiate netcash payment", errors.New("502")), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"not supported", entities.ErrNotSupported, http.StatusUnprocessableEntity, "NOT_SUPPORTED"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := mapBillingError(tc.err)
			assert.Equal(t, tc.status, appErr.HTTPStatus)
			assert.Equal(t, tc.code, appErr.Code)
		})
	}

	assert.Equal(t, "Only draft invoices can be voided", mapBillingError(guard).Message)
	assert.Equal(t, `billing period "March" must be YYYY-MM`,
		mapBillingError(errors.Wrap(entities.Validationf("billing period %q must be YYYY-MM", "March"), "generate")).Message)
}
