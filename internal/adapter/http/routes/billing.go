package routes

import (
	"github.com/gin-gonic/gin"
)

const (
	PathInvoices    = "/invoices"
	PathPayments    = "/payments"
	PathBillingRuns = "/billing-runs"
	PathBilling     = "/billing"
	PathWebhooks    = "/webhooks"
)

func addBillingRoutes(rg *gin.RouterGroup, h Handlers) {
	invoices := rg.Group(PathInvoices)
	{
		invoices.POST("/generate", h.Invoices.GenerateInvoice)
		invoices.GET("", h.Invoices.ListInvoices)
		invoices.GET("/:id", h.Invoices.GetInvoice)
		invoices.POST("/:id/send", h.Invoices.SendInvoice)
		invoices.POST("/:id/void", h.Invoices.VoidInvoice)
		invoices.POST("/:id/cancel", h.Invoices.CancelInvoice)
		invoices.POST("/:id/refund", h.Invoices.RefundInvoice)
		invoices.GET("/:id/audit", h.Invoices.GetAuditTrail)
		invoices.POST("/:id/payments", h.Payments.InitiatePayment)
		invoices.GET("/:id/payments", h.Payments.ListPayments)
	}

	payments := rg.Group(PathPayments)
	{
		payments.GET("/:transaction_id", h.Payments.GetPayment)
		payments.POST("/:transaction_id/sync", h.Payments.SyncPayment)
	}

	runs := rg.Group(PathBillingRuns)
	{
		runs.POST("", h.BillingRuns.TriggerBillingRun)
		runs.GET("", h.BillingRuns.ListBillingRuns)
	}

	rg.POST(PathBilling+"/overdue-sweep", h.Invoices.SweepOverdue)

	webhooks := rg.Group(PathWebhooks)
	if h.WebhookLimiter != nil {
		webhooks.Use(h.WebhookLimiter.Middleware())
	}
	webhooks.POST("/:provider", h.Webhooks.HandleWebhook)
}
