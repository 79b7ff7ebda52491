package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	_ "circletel_billing/docs"
	"circletel_billing/internal/adapter/http/routes"
	"circletel_billing/internal/app"
	"circletel_billing/internal/config"
	"circletel_billing/internal/logger"
)

// @title           CircleTel Billing API
// @version         1.0
// @description     Invoice lifecycle, billing runs and payment reconciliation for CircleTel services.
// @termsOfService  http://swagger.io/terms/

// @contact.name   CircleTel Billing
// @contact.email  billing@circletel.co.za

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080

// @BasePath  /v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logger.L.Fatalw("[api] invalid configuration", "err", err)
	}
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		logger.L.Fatalw("[api] failed to build logger", "err", err)
	}
	defer func() { _ = log.Sync() }()
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Errorw("[api] failed to wire billing service", "err", err)
		os.Exit(1)
	}
	defer container.Close()

	if cfg.Reconciler.Enabled {
		go container.PaymentSync.Run(ctx)
	}

	router := routes.NewRouter(container.Handlers(), log)
	if err := routes.Run(ctx, router, cfg.Server.Port, log); err != nil {
		log.Errorw("[api] server stopped with error", "err", err)
		container.Close()
		os.Exit(1)
	}
	log.Infow("[api] shutdown complete")
}
