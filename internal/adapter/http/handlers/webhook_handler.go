package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	response "circletel_billing/internal/adapter/http/dto/response"
	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase"
	"circletel_billing/pkg"
)

// maxWebhookBody bounds what a gateway may post.
const maxWebhookBody = 1 << 20

// WebhookHandler receives gateway callbacks. 2xx tells the gateway to stop retrying, so it is
// only returned once the result is applied or found to be a no-op.
type WebhookHandler struct {
	usecase usecase.IWebhookReconciliationUseCase
	log     *logger.Logger
}

func NewWebhookHandler(uc usecase.IWebhookReconciliationUseCase, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{usecase: uc, log: logger.OrNop(log).Named("webhook_handler")}
}

// HandleWebhook godoc
// @Summary      Payment gateway callback
// @Description  200 when applied or already applied, 4xx when rejected, 5xx when the gateway should retry.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        provider  path      string  true  "netcash, mercadopago or zoho_billing"
// @Success      200       {object}  response.ReconcileResponse
// @Failure      401       {object}  pkg.HTTPError
// @Failure      422       {object}  pkg.HTTPError
// @Failure      503       {object}  pkg.HTTPError
// @Router       /webhooks/{provider} [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	provider := c.Param("provider")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		h.log.Warnw("[payment][webhook] unreadable body", "provider", provider, "err", err)
		appErr := pkg.NewDomainErrorSimple("INVALID_REQUEST", "Unreadable webhook body", http.StatusBadRequest)
		c.JSON(appErr.HTTPStatus, appErr.ToHTTPError())
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k, v := range c.Request.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}

	res, err := h.usecase.HandleWebhook(c.Request.Context(), provider, payload, headers)
	if err != nil {
		class := entities.Classify(err)
		if class == entities.ClassTransient || class == entities.ClassFatal {
			h.log.Errorw("[payment][webhook] processing failed, gateway will retry", "provider", provider, "class", class, "err", err)
		} else {
			h.log.Warnw("[payment][webhook] rejected", "provider", provider, "class", class, "err", err)
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromReconcileResult(res))
}
