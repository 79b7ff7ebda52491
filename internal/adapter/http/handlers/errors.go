package handlers

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase"
	"circletel_billing/pkg"
)

// HeaderActor names the operator recorded in audit entries.
const HeaderActor = "X-Actor-ID"

var (
	errInvalidPayload = pkg.NewDomainErrorSimple("INVALID_REQUEST", "Invalid request payload", http.StatusBadRequest)
	errReasonRequired = pkg.NewDomainErrorSimple("REASON_REQUIRED", "A reason is required", http.StatusBadRequest)
)

// withActor puts the caller named by X-Actor-ID on the request context.
func withActor(c *gin.Context) {
	actor := strings.TrimSpace(c.GetHeader(HeaderActor))
	if actor == "" {
		return
	}
	c.Request = c.Request.WithContext(usecase.WithActor(c.Request.Context(), actor))
}

func abortWithError(c *gin.Context, err error) {
	appErr := mapBillingError(err)
	c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
}

// mapBillingError turns the billing error taxonomy into an HTTP answer. Guard failures keep
// their message so operators see which rule blocked them.
func mapBillingError(err error) *pkg.AppError {
	var transition *entities.InvalidStateTransitionError
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return pkg.NewDomainErrorSimple("NOT_FOUND", "Resource not found", http.StatusNotFound)
	case errors.Is(err, entities.ErrUnknownProvider):
		return pkg.NewDomainErrorSimple("UNKNOWN_PROVIDER", "Unknown payment provider", http.StatusNotFound)
	case errors.Is(err, entities.ErrInvalidSignature):
		return pkg.NewDomainErrorSimple("INVALID_SIGNATURE", "Invalid webhook signature", http.StatusUnauthorized)
	case errors.As(err, &transition):
		msg := transition.Guard
		if msg == "" {
			msg = transition.Error()
		}
		return pkg.NewDomainErrorSimple("INVALID_STATE_TRANSITION", msg, http.StatusConflict).
			WithDetails(map[string]any{"from": transition.From, "to": transition.To})
	case errors.Is(err, entities.ErrDuplicateInvoice):
		return pkg.NewDomainErrorSimple("DUPLICATE_INVOICE", "An invoice already exists for this service and period", http.StatusConflict)
	case errors.Is(err, entities.ErrInvoiceNotPayable):
		return pkg.NewDomainError("INVOICE_NOT_PAYABLE", "Invoice does not accept payments in its current status", err, http.StatusConflict)
	case errors.Is(err, entities.ErrNotSupported):
		return pkg.NewDomainErrorSimple("NOT_SUPPORTED", "Operation not supported by the payment provider", http.StatusUnprocessableEntity)
	}

	switch entities.Classify(err) {
	case entities.ClassValidation:
		return pkg.NewDomainError("VALIDATION_ERROR", validationMessage(err), err, http.StatusBadRequest)
	case entities.ClassConflict:
		return pkg.NewDomainError("CONFLICT", "The resource changed state, reload and retry", err, http.StatusConflict)
	case entities.ClassIntegrity:
		return pkg.NewDomainError("RECONCILIATION_FAILED", "Payment flagged for manual review", err, http.StatusUnprocessableEntity)
	case entities.ClassTransient:
		return pkg.NewDomainError("TEMPORARILY_UNAVAILABLE", "Temporary failure, retry later", err, http.StatusServiceUnavailable)
	case entities.ClassExternal:
		return pkg.NewDomainError("UPSTREAM_ERROR", "An external service failed", err, http.StatusBadGateway)
	default:
		return pkg.NewDomainError("INTERNAL_ERROR", "An internal error occurred", err, http.StatusInternalServerError)
	}
}

// validationMessage drops wrap prefixes; validation messages are written for callers.
func validationMessage(err error) string {
	msg := errors.UnwrapAll(err).Error()
	if msg == "" {
		return "Invalid request"
	}
	return msg
}
