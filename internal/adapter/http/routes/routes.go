package routes

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "circletel_billing/docs"
	"circletel_billing/internal/adapter/http/handlers"
	"circletel_billing/internal/adapter/http/middleware"
	"circletel_billing/internal/logger"
)

// Handlers are the HTTP entry points mounted under /v1.
type Handlers struct {
	Invoices       *handlers.InvoiceHandler
	Payments       *handlers.PaymentHandler
	BillingRuns    *handlers.BillingRunHandler
	Webhooks       *handlers.WebhookHandler
	WebhookLimiter *middleware.IPRateLimiter
}

// NewRouter builds the gin engine with middlewares, swagger and the v1 routes.
func NewRouter(h Handlers, log *logger.Logger) *gin.Engine {
	router := gin.New()
	setMiddlewares(router, logger.OrNop(log).Named("http"))

	// Swagger documentation endpoint
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/v1")
	addPingRoutes(v1)
	addBillingRoutes(v1, h)
	return router
}

// Run serves router on port until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, router http.Handler, port int, log *logger.Logger) error {
	log = logger.OrNop(log).Named("http")
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("[http][server] listening", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "failed to startup the application")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Infow("[http][server] shutting down")
	return srv.Shutdown(shutdownCtx)
}

func setMiddlewares(router *gin.Engine, log *logger.Logger) {
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorw("Recovered from panic", "panic", recovered, "path", c.FullPath())
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
}
