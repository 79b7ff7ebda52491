package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	request "circletel_billing/internal/adapter/http/dto/request"
	response "circletel_billing/internal/adapter/http/dto/response"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase"
)

type BillingRunHandler struct {
	usecase usecase.IBillingRunUseCase
	log     *logger.Logger
}

func NewBillingRunHandler(uc usecase.IBillingRunUseCase, log *logger.Logger) *BillingRunHandler {
	return &BillingRunHandler{usecase: uc, log: logger.OrNop(log).Named("billing_run_handler")}
}

// TriggerBillingRun godoc
// @Summary      Run monthly billing for a billing day
// @Description  Failures are isolated per service and reported in the results.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        body  body      request.BillingRunRequest  true  "Run parameters"
// @Success      200   {object}  response.BillingRunResponse
// @Failure      400   {object}  pkg.HTTPError
// @Router       /billing-runs [post]
func (h *BillingRunHandler) TriggerBillingRun(c *gin.Context) {
	var payload request.BillingRunRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(errInvalidPayload.HTTPStatus, errInvalidPayload.ToHTTPError())
		return
	}
	withActor(c)
	actor := usecase.ActorFrom(c.Request.Context())

	run, err := h.usecase.Run(c.Request.Context(), payload.ToEntity(actor))
	if err != nil {
		h.log.Errorw("[billing][handler] billing run failed", "billing_day", payload.BillingDay, "err", err)
		abortWithError(c, err)
		return
	}
	h.log.Infow("[billing][handler] billing run finished", "run_id", run.RunID,
		"successful", run.Summary.Successful, "failed", run.Summary.Failed, "skipped", run.Summary.Skipped)
	c.JSON(http.StatusOK, response.FromBillingRun(run))
}

// ListBillingRuns godoc
// @Summary      Recent billing runs
// @Tags         billing
// @Produce      json
// @Param        limit  query     int  false  "How many runs (default 20)"
// @Success      200    {array}   response.BillingRunResponse
// @Router       /billing-runs [get]
func (h *BillingRunHandler) ListBillingRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			c.JSON(errInvalidPayload.HTTPStatus, errInvalidPayload.ToHTTPError())
			return
		}
		limit = n
	}
	runs, err := h.usecase.ListRecent(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.FromBillingRuns(runs))
}
