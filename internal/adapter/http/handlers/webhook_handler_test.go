package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	response "circletel_billing/internal/adapter/http/dto/response"
	"circletel_billing/internal/adapter/http/handlers/mocks"
	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase"
)

func newWebhookRouter(t *testing.T) (*gin.Engine, *mocks.MockIWebhookReconciliationUseCase) {
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockIWebhookReconciliationUseCase(ctrl)
	h := NewWebhookHandler(uc, nil)
	r := gin.New()
	r.POST("/v1/webhooks/:provider", h.HandleWebhook)
	return r, uc
}

func TestWebhookHandler_HandleWebhook(t *testing.T) {
	const payload = `{"TransactionAccepted":"true","Reference":"INV-2026-001-1","Amount":"575.00"}`

	t.Run("passes raw body and lowercased headers", func(t *testing.T) {
		r, uc := newWebhookRouter(t)
		uc.EXPECT().HandleWebhook(gomock.Any(), "netcash", []byte(payload), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ []byte, headers map[string]string) (usecase.ReconcileResult, error) {
				assert.Equal(t, "abc123", headers["x-netcash-signature"])
				return usecase.ReconcileResult{Outcome: usecase.OutcomeApplied, TransactionID: "tx-1", InvoiceStatus: entities.InvoiceStatusPaid}, nil
			})

		w := perform(r, http.MethodPost, "/v1/webhooks/netcash", payload, map[string]string{"X-Netcash-Signature": "abc123"})
		assertStatus(t, w, http.StatusOK)
		var body response.ReconcileResponse
		decodeBody(t, w, &body)
		assert.True(t, body.Received)
		assert.Equal(t, "applied", body.Outcome)
	})

	t.Run("redelivery is still 200", func(t *testing.T) {
		r, uc := newWebhookRouter(t)
		uc.EXPECT().HandleWebhook(gomock.Any(), "netcash", gomock.Any(), gomock.Any()).Return(usecase.ReconcileResult{Outcome: usecase.OutcomeDuplicate}, nil)
		w := perform(r, http.MethodPost, "/v1/webhooks/netcash", payload, nil)
		assertStatus(t, w, http.StatusOK)
	})

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"bad signature", errors.Wrap(entities.ErrInvalidSignature, "provider netcash"), http.StatusUnauthorized},
		{"unknown provider", errors.Wrap(entities.ErrUnknownProvider, "payfast"), http.StatusNotFound},
		{"malformed payload", entities.Validationf("parse netcash webhook: bad json"), http.StatusBadRequest},
		{"amount mismatch", errors.Wrap(entities.ErrAmountMismatch, "tx-1"), http.StatusUnprocessableEntity},
		{"store busy", errors.Wrap(entities.ErrTransient, "dynamodb throttled"), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, uc := newWebhookRouter(t)
			uc.EXPECT().HandleWebhook(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(usecase.ReconcileResult{}, tc.err)
			w := perform(r, http.MethodPost, "/v1/webhooks/netcash", payload, nil)
			assertStatus(t, w, tc.status)
		})
	}
}
