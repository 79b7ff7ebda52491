package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"circletel_billing/internal/domain/entities"
)

type actorKey struct{}

// WithActor records who is performing the operation for the audit trail.
func WithActor(ctx context.Context, actor string) context.Context {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the acting user, or "system" for scheduled and gateway-driven work.
func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return entities.ActorSystem
}

func snapshot(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func invoiceAudit(ctx context.Context, now time.Time, action string, before *entities.Invoice, after entities.Invoice, reason string) entities.AuditLogEntry {
	e := entities.AuditLogEntry{
		ID:           uuid.NewString(),
		Actor:        ActorFrom(ctx),
		Action:       action,
		ResourceType: entities.ResourceInvoice,
		ResourceID:   after.ID,
		After:        snapshot(after),
		Reason:       reason,
		CreatedAt:    now,
	}
	if before != nil {
		e.Before = snapshot(before)
	}
	return e
}

func transactionAudit(ctx context.Context, now time.Time, action string, before *entities.PaymentTransaction, after entities.PaymentTransaction, reason string) entities.AuditLogEntry {
	e := entities.AuditLogEntry{
		ID:           uuid.NewString(),
		Actor:        ActorFrom(ctx),
		Action:       action,
		ResourceType: entities.ResourceTransaction,
		ResourceID:   after.ID,
		After:        snapshot(after),
		Reason:       reason,
		CreatedAt:    now,
	}
	if before != nil {
		e.Before = snapshot(before)
	}
	return e
}
