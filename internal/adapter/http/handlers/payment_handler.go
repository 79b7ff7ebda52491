package handlers

import (
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	request "circletel_billing/internal/adapter/http/dto/request"
	response "circletel_billing/internal/adapter/http/dto/response"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase"
)

// PaymentHandler starts hosted payments and lets operators poll a gateway on demand.
type PaymentHandler struct {
	usecase usecase.IPaymentUseCase
	log     *logger.Logger
}

func NewPaymentHandler(uc usecase.IPaymentUseCase, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{usecase: uc, log: logger.OrNop(log).Named("payment_handler")}
}

// InitiatePayment godoc
// @Summary      Start a hosted payment for an invoice
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id    path      string                          true   "Invoice ID"
// @Param        body  body      request.InitiatePaymentRequest  false  "Provider and amount"
// @Success      201   {object}  response.InitiatePaymentResponse
// @Failure      400   {object}  pkg.HTTPError
// @Failure      409   {object}  pkg.HTTPError
// @Failure      502   {object}  pkg.HTTPError
// @Router       /invoices/{id}/payments [post]
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var payload request.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(errInvalidPayload.HTTPStatus, errInvalidPayload.ToHTTPError())
		return
	}
	withActor(c)

	invoiceID := c.Param("id")
	req, err := payload.ToUseCase(invoiceID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	res, err := h.usecase.Initiate(c.Request.Context(), req)
	if err != nil {
		h.log.Warnw("[payment][handler] initiate failed", "invoice_id", invoiceID, "provider", req.Provider, "err", err)
		abortWithError(c, err)
		return
	}
	h.log.Infow("[payment][handler] initiate success", "invoice_id", invoiceID, "transaction_id", res.Transaction.ID)
	c.JSON(http.StatusCreated, response.FromInitiateResult(res))
}

// ListPayments godoc
// @Summary      Payment transactions of an invoice
// @Tags         payments
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {array}   response.TransactionResponse
// @Failure      404  {object}  pkg.HTTPError
// @Router       /invoices/{id}/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	txs, err := h.usecase.ListForInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromTransactions(txs))
}

// GetPayment godoc
// @Summary      Get a payment transaction
// @Tags         payments
// @Produce      json
// @Param        transaction_id  path      string  true  "Transaction ID"
// @Success      200             {object}  response.TransactionResponse
// @Failure      404             {object}  pkg.HTTPError
// @Router       /payments/{transaction_id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	tx, err := h.usecase.GetTransaction(c.Request.Context(), c.Param("transaction_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromTransaction(tx))
}

// SyncPayment godoc
// @Summary      Poll the gateway for a transaction and apply the result
// @Tags         payments
// @Produce      json
// @Param        transaction_id  path      string  true  "Transaction ID"
// @Success      200             {object}  response.ReconcileResponse
// @Failure      422             {object}  pkg.HTTPError
// @Router       /payments/{transaction_id}/sync [post]
func (h *PaymentHandler) SyncPayment(c *gin.Context) {
	withActor(c)
	id := c.Param("transaction_id")
	res, err := h.usecase.Sync(c.Request.Context(), id)
	if err != nil {
		h.log.Warnw("[payment][handler] sync failed", "transaction_id", id, "err", err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromReconcileResult(res))
}
