package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	request "circletel_billing/internal/adapter/http/dto/request"
	response "circletel_billing/internal/adapter/http/dto/response"
	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase"
)

// InvoiceHandler serves the admin surface over invoices.
type InvoiceHandler struct {
	usecase usecase.IInvoiceUseCase
	log     *logger.Logger
	now     func() time.Time
}

func NewInvoiceHandler(uc usecase.IInvoiceUseCase, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		usecase: uc,
		log:     logger.OrNop(log).Named("invoice_handler"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GenerateInvoice godoc
// @Summary      Generate an invoice for one service
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body  body      request.GenerateInvoiceRequest  true  "Service and billing period"
// @Success      201   {object}  response.GenerateInvoiceResponse
// @Success      200   {object}  response.GenerateInvoiceResponse  "dry run or skipped"
// @Failure      400   {object}  pkg.HTTPError
// @Failure      409   {object}  pkg.HTTPError
// @Router       /invoices/generate [post]
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	var payload request.GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(errInvalidPayload.HTTPStatus, errInvalidPayload.ToHTTPError())
		return
	}
	withActor(c)

	res, err := h.usecase.Generate(c.Request.Context(), payload.ToUseCase())
	if err != nil {
		h.log.Warnw("[billing][handler] generate failed", "service_id", payload.ServiceID, "period", payload.Period, "err", err)
		abortWithError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Skipped || res.DryRun {
		status = http.StatusOK
	}
	c.JSON(status, response.FromGenerateResult(res, h.now()))
}

// ListInvoices godoc
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        customer_id  query     string  false  "Customer"
// @Param        service_id   query     string  false  "Service"
// @Param        status       query     string  false  "Stored status"
// @Param        limit        query     int     false  "Page size (max 500)"
// @Success      200          {array}   response.InvoiceResponse
// @Failure      400          {object}  pkg.HTTPError
// @Router       /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var query request.ListInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(errInvalidPayload.HTTPStatus, errInvalidPayload.ToHTTPError())
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		abortWithError(c, err)
		return
	}
	invoices, err := h.usecase.List(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromInvoices(invoices, h.now()))
}

// GetInvoice godoc
// @Summary      Get an invoice with its effective status
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.InvoiceResponse
// @Failure      404  {object}  pkg.HTTPError
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	inv, err := h.usecase.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromInvoice(inv, h.now()))
}

// SendInvoice godoc
// @Summary      Send a draft invoice
// @Description  Locks the invoice and assigns its number. PDF, payment link and notification are best-effort.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path      string                      true   "Invoice ID"
// @Param        body  body      request.SendInvoiceRequest  false  "Send options"
// @Success      200   {object}  response.SendInvoiceResponse
// @Failure      409   {object}  pkg.HTTPError
// @Router       /invoices/{id}/send [post]
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	var payload request.SendInvoiceRequest
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(errInvalidPayload.HTTPStatus, errInvalidPayload.ToHTTPError())
		return
	}
	withActor(c)

	id := c.Param("id")
	res, err := h.usecase.Send(c.Request.Context(), id, payload.ToUseCase())
	if err != nil {
		h.log.Infow("[billing][handler] send rejected", "invoice_id", id, "err", err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromSendResult(res, h.now()))
}

// VoidInvoice godoc
// @Summary      Void a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Invoice ID"
// @Param        body  body      request.ReasonRequest  true  "Reason"
// @Success      200   {object}  response.InvoiceResponse
// @Failure      409   {object}  pkg.HTTPError
// @Router       /invoices/{id}/void [post]
func (h *InvoiceHandler) VoidInvoice(c *gin.Context) {
	h.closeDraft(c, h.usecase.Void)
}

// CancelInvoice godoc
// @Summary      Cancel a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Invoice ID"
// @Param        body  body      request.ReasonRequest  true  "Reason"
// @Success      200   {object}  response.InvoiceResponse
// @Failure      409   {object}  pkg.HTTPError
// @Router       /invoices/{id}/cancel [post]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	h.closeDraft(c, h.usecase.Cancel)
}

func (h *InvoiceHandler) closeDraft(c *gin.Context, fn func(ctx context.Context, id, reason string) (entities.Invoice, error)) {
	var payload request.ReasonRequest
	if err := c.ShouldBindJSON(&payload); err != nil || payload.ResolveReason() == "" {
		c.JSON(errReasonRequired.HTTPStatus, errReasonRequired.ToHTTPError())
		return
	}
	withActor(c)

	inv, err := fn(c.Request.Context(), c.Param("id"), payload.ResolveReason())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromInvoice(inv, h.now()))
}

// RefundInvoice godoc
// @Summary      Refund a paid invoice
// @Description  Records compensating refund transactions; the original payments are never edited.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Invoice ID"
// @Param        body  body      request.RefundRequest  true  "Reason"
// @Success      200   {object}  response.RefundInvoiceResponse
// @Failure      409   {object}  pkg.HTTPError
// @Router       /invoices/{id}/refund [post]
func (h *InvoiceHandler) RefundInvoice(c *gin.Context) {
	var payload request.RefundRequest
	if err := c.ShouldBindJSON(&payload); err != nil || payload.ToUseCase().Reason == "" {
		c.JSON(errReasonRequired.HTTPStatus, errReasonRequired.ToHTTPError())
		return
	}
	withActor(c)

	id := c.Param("id")
	res, err := h.usecase.Refund(c.Request.Context(), id, payload.ToUseCase())
	if err != nil {
		h.log.Warnw("[billing][handler] refund failed", "invoice_id", id, "err", err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromRefundResult(res, h.now()))
}

// GetAuditTrail godoc
// @Summary      Audit trail of an invoice and its payments
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {array}   response.AuditEntryResponse
// @Failure      404  {object}  pkg.HTTPError
// @Router       /invoices/{id}/audit [get]
func (h *InvoiceHandler) GetAuditTrail(c *gin.Context) {
	entries, err := h.usecase.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromAuditTrail(entries))
}

// SweepOverdue godoc
// @Summary      Mark unpaid invoices past their due date as overdue
// @Tags         billing
// @Produce      json
// @Success      200  {object}  response.SweepResponse
// @Router       /billing/overdue-sweep [post]
func (h *InvoiceHandler) SweepOverdue(c *gin.Context) {
	withActor(c)
	res, err := h.usecase.SweepOverdue(c.Request.Context(), h.now())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromSweepResult(res))
}
