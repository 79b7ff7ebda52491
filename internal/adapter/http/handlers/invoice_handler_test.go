package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	response "circletel_billing/internal/adapter/http/dto/response"
	"circletel_billing/internal/adapter/http/handlers/mocks"
	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase"
)

var handlerNow = time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)

func newInvoiceRouter(t *testing.T) (*gin.Engine, *mocks.MockIInvoiceUseCase) {
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockIInvoiceUseCase(ctrl)
	h := NewInvoiceHandler(uc, nil)
	h.now = func() time.Time { return handlerNow }

	r := gin.New()
	r.POST("/v1/invoices/generate", h.GenerateInvoice)
	r.GET("/v1/invoices", h.ListInvoices)
	r.GET("/v1/invoices/:id", h.GetInvoice)
	r.POST("/v1/invoices/:id/send", h.SendInvoice)
	r.POST("/v1/invoices/:id/void", h.VoidInvoice)
	r.POST("/v1/invoices/:id/cancel", h.CancelInvoice)
	r.POST("/v1/invoices/:id/refund", h.RefundInvoice)
	r.GET("/v1/invoices/:id/audit", h.GetAuditTrail)
	r.POST("/v1/billing/overdue-sweep", h.SweepOverdue)
	return r, uc
}

func sentInvoice() entities.Invoice {
	sentAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return entities.Invoice{
		ID: "inv-1", InvoiceNumber: "INV-2026-001", CustomerID: "cust-1", ServiceID: "svc-1", BillingPeriod: "2026-03",
		Status: entities.InvoiceStatusSent, Currency: "ZAR", TotalCents: 57500,
		DueDate: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), SentAt: &sentAt, Version: 2,
	}
}

func TestInvoiceHandler_GenerateInvoice(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		r, _ := newInvoiceRouter(t)
		w := perform(r, http.MethodPost, "/v1/invoices/generate", "{", nil)
		assertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("service id required", func(t *testing.T) {
		r, _ := newInvoiceRouter(t)
		w := perform(r, http.MethodPost, "/v1/invoices/generate", `{"period":"2026-03"}`, nil)
		assertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("created with actor", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		draft := sentInvoice()
		draft.Status, draft.InvoiceNumber, draft.SentAt = entities.InvoiceStatusDraft, "", nil
		uc.EXPECT().
			Generate(gomock.Any(), usecase.GenerateInvoiceRequest{ServiceID: "svc-1", Period: "2026-03"}).
			DoAndReturn(func(ctx context.Context, _ usecase.GenerateInvoiceRequest) (usecase.GenerateInvoiceResult, error) {
				assert.Equal(t, "ops@circletel.co.za", usecase.ActorFrom(ctx))
				return usecase.GenerateInvoiceResult{Invoice: draft}, nil
			})

		w := perform(r, http.MethodPost, "/v1/invoices/generate", `{"service_id":" svc-1 ","period":"2026-03"}`,
			map[string]string{HeaderActor: "ops@circletel.co.za"})
		assertStatus(t, w, http.StatusCreated)

		var body response.GenerateInvoiceResponse
		decodeBody(t, w, &body)
		if assert.NotNil(t, body.Invoice) {
			assert.Equal(t, "draft", body.Invoice.Status)
		}
	})

	t.Run("dry run answers 200", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		uc.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(usecase.GenerateInvoiceResult{Invoice: sentInvoice(), DryRun: true}, nil)
		w := perform(r, http.MethodPost, "/v1/invoices/generate", `{"service_id":"svc-1","dry_run":true}`, nil)
		assertStatus(t, w, http.StatusOK)
	})

	t.Run("duplicate period", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		uc.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(usecase.GenerateInvoiceResult{}, errors.Wrap(entities.ErrDuplicateInvoice, "commit"))
		w := perform(r, http.MethodPost, "/v1/invoices/generate", `{"service_id":"svc-1"}`, nil)
		assertStatus(t, w, http.StatusConflict)
		assert.Equal(t, "DUPLICATE_INVOICE", decodeError(t, w).Code)
	})
}

func TestInvoiceHandler_GetInvoice(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		uc.EXPECT().GetByID(gomock.Any(), "missing").Return(entities.Invoice{}, errors.Wrap(entities.ErrNotFound, "invoice missing"))
		w := perform(r, http.MethodGet, "/v1/invoices/missing", "", nil)
		assertStatus(t, w, http.StatusNotFound)
	})

	t.Run("past due shows overdue", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		uc.EXPECT().GetByID(gomock.Any(), "inv-1").Return(sentInvoice(), nil)
		w := perform(r, http.MethodGet, "/v1/invoices/inv-1", "", nil)
		assertStatus(t, w, http.StatusOK)

		var body response.InvoiceResponse
		decodeBody(t, w, &body)
		assert.Equal(t, "overdue", body.Status)
		assert.Equal(t, "sent", body.StoredStatus)
		assert.Equal(t, "INV-2026-001", body.InvoiceNumber)
	})
}

func TestInvoiceHandler_ListInvoices(t *testing.T) {
	t.Run("unknown status", func(t *testing.T) {
		r, _ := newInvoiceRouter(t)
		w := perform(r, http.MethodGet, "/v1/invoices?status=settled", "", nil)
		assertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("filters passed through", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		uc.EXPECT().
			List(gomock.Any(), entities.InvoiceFilter{CustomerID: "cust-1", Status: entities.InvoiceStatusSent, Limit: 5}).
			Return([]entities.Invoice{sentInvoice()}, nil)
		w := perform(r, http.MethodGet, "/v1/invoices?customer_id=cust-1&status=sent&limit=5", "", nil)
		assertStatus(t, w, http.StatusOK)

		var body []response.InvoiceResponse
		decodeBody(t, w, &body)
		assert.Len(t, body, 1)
	})
}

func TestInvoiceHandler_SendInvoice(t *testing.T) {
	t.Run("empty body sends with defaults", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		uc.EXPECT().Send(gomock.Any(), "inv-1", usecase.SendOptions{}).
			Return(usecase.SendInvoiceResult{Invoice: sentInvoice(), NotificationDelivered: true, Errors: []string{"pdf: renderer unavailable"}}, nil)
		w := perform(r, http.MethodPost, "/v1/invoices/inv-1/send", "", nil)
		assertStatus(t, w, http.StatusOK)

		var body response.SendInvoiceResponse
		decodeBody(t, w, &body)
		assert.True(t, body.NotificationDelivered)
		assert.False(t, body.PDFGenerated)
		assert.Equal(t, []string{"pdf: renderer unavailable"}, body.Warnings)
	})

	t.Run("payment link requested", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		uc.EXPECT().Send(gomock.Any(), "inv-1", usecase.SendOptions{InitiatePayment: true, Provider: entities.ProviderNetCash}).
			Return(usecase.SendInvoiceResult{Invoice: sentInvoice(), PaymentURL: "https://paynow.netcash.co.za/site/paynow.aspx"}, nil)
		w := perform(r, http.MethodPost, "/v1/invoices/inv-1/send", `{"initiate_payment":true,"provider":"netcash"}`, nil)
		assertStatus(t, w, http.StatusOK)
	})

	t.Run("already sent", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		uc.EXPECT().Send(gomock.Any(), "inv-1", gomock.Any()).Return(usecase.SendInvoiceResult{}, &entities.InvalidStateTransitionError{
			From: entities.InvoiceStatusSent, To: entities.InvoiceStatusSent, Conflict: true, Guard: "Only draft invoices can be sent"})
		w := perform(r, http.MethodPost, "/v1/invoices/inv-1/send", "", nil)
		assertStatus(t, w, http.StatusConflict)
		assert.Equal(t, "Only draft invoices can be sent", decodeError(t, w).Message)
	})
}

func TestInvoiceHandler_VoidAndCancel(t *testing.T) {
	t.Run("reason required", func(t *testing.T) {
		r, _ := newInvoiceRouter(t)
		for _, body := range []string{"", "{}", `{"reason":"   "}`} {
			w := perform(r, http.MethodPost, "/v1/invoices/inv-1/void", body, nil)
			assertStatus(t, w, http.StatusBadRequest)
			assert.Equal(t, "REASON_REQUIRED", decodeError(t, w).Code)
		}
	})

	t.Run("void with trimmed reason", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		voided := sentInvoice()
		voided.Status, voided.VoidReason = entities.InvoiceStatusVoid, "duplicate"
		uc.EXPECT().Void(gomock.Any(), "inv-1", "duplicate").Return(voided, nil)
		w := perform(r, http.MethodPost, "/v1/invoices/inv-1/void", `{"reason":" duplicate "}`, nil)
		assertStatus(t, w, http.StatusOK)

		var body response.InvoiceResponse
		decodeBody(t, w, &body)
		assert.Equal(t, "void", body.Status)
		assert.Equal(t, "duplicate", body.Reason)
	})

	t.Run("guard message surfaces", func(t *testing.T) {
		r, uc := newInvoiceRouter(t)
		uc.EXPECT().Cancel(gomock.Any(), "inv-1", "customer left").Return(entities.Invoice{}, errors.Wrap(&entities.InvalidStateTransitionError{
			From: entities.InvoiceStatusSent, To: entities.InvoiceStatusCancelled, Guard: "Only draft invoices can be cancelled"}, "cancel"))
		w := perform(r, http.MethodPost, "/v1/invoices/inv-1/cancel", `{"reason":"customer left"}`, nil)
		assertStatus(t, w, http.StatusConflict)
		assert.Equal(t, "Only draft invoices can be cancelled", decodeError(t, w).Message)
	})
}

func TestInvoiceHandler_RefundInvoice(t *testing.T) {
	r, uc := newInvoiceRouter(t)
	refunded := sentInvoice()
	refunded.Status = entities.InvoiceStatusRefunded
	uc.EXPECT().Refund(gomock.Any(), "inv-1", usecase.RefundRequest{Reason: "service never activated", Manual: true}).
		Return(usecase.RefundInvoiceResult{
			Invoice: refunded,
			Refunds: []entities.PaymentTransaction{{ID: "tx-r", Kind: entities.TransactionKindRefund, AmountCents: -57500, Currency: "ZAR", Status: entities.TransactionCompleted}},
		}, nil)

	w := perform(r, http.MethodPost, "/v1/invoices/inv-1/refund", `{"reason":"service never activated","manual":true}`, nil)
	assertStatus(t, w, http.StatusOK)

	var body response.RefundInvoiceResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "refunded", body.Invoice.Status)
	if assert.Len(t, body.Refunds, 1) {
		assert.Equal(t, "-R575.00", body.Refunds[0].Amount)
	}
}

func TestInvoiceHandler_AuditAndSweep(t *testing.T) {
	r, uc := newInvoiceRouter(t)
	uc.EXPECT().AuditTrail(gomock.Any(), "inv-1").Return([]entities.AuditLogEntry{
		{ID: "a1", Actor: "system", Action: entities.AuditInvoiceCreated, ResourceType: entities.ResourceInvoice, ResourceID: "inv-1"},
		{ID: "a2", Actor: "ops", Action: entities.AuditInvoiceSent, ResourceType: entities.ResourceInvoice, ResourceID: "inv-1"},
	}, nil)
	w := perform(r, http.MethodGet, "/v1/invoices/inv-1/audit", "", nil)
	assertStatus(t, w, http.StatusOK)
	var trail []response.AuditEntryResponse
	decodeBody(t, w, &trail)
	assert.Len(t, trail, 2)

	uc.EXPECT().SweepOverdue(gomock.Any(), handlerNow).Return(usecase.SweepResult{Checked: 4, Marked: 1, InvoiceIDs: []string{"inv-1"}}, nil)
	w = perform(r, http.MethodPost, "/v1/billing/overdue-sweep", "", nil)
	assertStatus(t, w, http.StatusOK)
	var sweep response.SweepResponse
	decodeBody(t, w, &sweep)
	assert.Equal(t, 1, sweep.Marked)
	assert.Equal(t, []string{"inv-1"}, sweep.InvoiceIDs)
}
