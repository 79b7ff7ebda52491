package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"circletel_billing/internal/domain/entities"
)

func (s *Store) ListByResource(ctx context.Context, resourceType entities.ResourceType, resourceID string) ([]entities.AuditLogEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doc FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at, id
	`, string(resourceType), resourceID)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "list audit entries")
	}
	return collectDocs[entities.AuditLogEntry](rows, "audit entry")
}

func (s *Store) Save(ctx context.Context, run entities.BillingRun) error {
	doc, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "marshal billing run")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO billing_runs (run_id, period, dry_run, started_at, doc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET doc = EXCLUDED.doc
	`, run.RunID, run.Period, run.DryRun, run.StartedAt, doc)
	return errors.Wrap(mapError(err), "save billing run")
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]entities.BillingRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, "SELECT doc FROM billing_runs ORDER BY started_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "list billing runs")
	}
	return collectDocs[entities.BillingRun](rows, "billing run")
}

// PutService upserts a row of the service mirror.
func (s *Store) PutService(ctx context.Context, svc entities.Service) error {
	doc, err := json.Marshal(svc)
	if err != nil {
		return errors.Wrap(err, "marshal service")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO services (id, customer_id, status, billing_day, doc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET customer_id = EXCLUDED.customer_id, status = EXCLUDED.status, billing_day = EXCLUDED.billing_day, doc = EXCLUDED.doc
	`, svc.ID, svc.CustomerID, string(svc.Status), svc.BillingDay, doc)
	return errors.Wrap(mapError(err), "put service")
}

func (s *Store) GetService(ctx context.Context, id string) (entities.Service, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, "SELECT doc FROM services WHERE id = $1", id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.Service{}, nil
	}
	if err != nil {
		return entities.Service{}, errors.Wrap(mapError(err), "get service")
	}
	return decodeDoc[entities.Service](raw, "service")
}

// ListBillableServices returns active services on the billing day. A service ID filter
// returns that service whatever its status.
func (s *Store) ListBillableServices(ctx context.Context, f entities.ServiceFilter) ([]entities.Service, error) {
	query, args := serviceListQuery(f)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(mapError(err), "list billable services")
	}
	return collectDocs[entities.Service](rows, "service")
}

func serviceListQuery(f entities.ServiceFilter) (string, []interface{}) {
	if f.ServiceID != "" {
		return "SELECT doc FROM services WHERE id = $1", []interface{}{f.ServiceID}
	}
	where := []string{"status = $1"}
	args := []interface{}{string(entities.ServiceStatusActive)}
	if f.BillingDay != 0 {
		args = append(args, f.BillingDay)
		where = append(where, "billing_day = $"+strconv.Itoa(len(args)))
	}
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		where = append(where, "customer_id = $"+strconv.Itoa(len(args)))
	}
	return "SELECT doc FROM services WHERE " + strings.Join(where, " AND ") + " ORDER BY id", args
}
