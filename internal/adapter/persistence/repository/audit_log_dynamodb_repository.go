package repository

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase/interfaces"
)

const auditResourceIndex = "resource-index"

type auditItem struct {
	ID          string `dynamodbav:"id"`
	ResourceKey string `dynamodbav:"resource_key"`
	Action      string `dynamodbav:"action"`
	Actor       string `dynamodbav:"actor"`
	CreatedAt   string `dynamodbav:"created_at"`
	Doc         string `dynamodbav:"doc"`
}

func resourceKey(t entities.ResourceType, id string) string { return string(t) + "#" + id }

// AuditLogDynamoRepository reads the audit trail.
//
// Table requirements:
//   - PK: id (string, ULID)
//   - GSI: resource-index (PK: resource_key, SK: created_at)
type AuditLogDynamoRepository struct {
	ddb    DynamoAPI
	tables Tables
}

var _ interfaces.IAuditLogRepository = (*AuditLogDynamoRepository)(nil)

func NewAuditLogDynamoRepository(ddb DynamoAPI, tables Tables) *AuditLogDynamoRepository {
	return &AuditLogDynamoRepository{ddb: ddb, tables: tables}
}

// ListByResource returns entries oldest first. ULIDs break ties between entries of one commit.
func (r *AuditLogDynamoRepository) ListByResource(ctx context.Context, resourceType entities.ResourceType, resourceID string) ([]entities.AuditLogEntry, error) {
	raw, err := queryAll(ctx, r.ddb, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tables.Audit),
		IndexName:                 aws.String(auditResourceIndex),
		KeyConditionExpression:    aws.String("resource_key = :rk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":rk": s(resourceKey(resourceType, resourceID))},
		ScanIndexForward:          aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list audit of %s %s", resourceType, resourceID)
	}
	out := make([]entities.AuditLogEntry, 0, len(raw))
	for _, item := range raw {
		var it auditItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, err
		}
		var e entities.AuditLogEntry
		if err := json.Unmarshal([]byte(it.Doc), &e); err != nil {
			return nil, errors.Wrapf(err, "decode audit entry %s", it.ID)
		}
		out = append(out, e)
	}
	sortAudit(out)
	return out, nil
}

func toAuditItem(e entities.AuditLogEntry) (auditItem, error) {
	doc, err := marshalDoc(e)
	if err != nil {
		return auditItem{}, errors.Wrap(err, "marshal audit entry")
	}
	return auditItem{
		ID:          e.ID,
		ResourceKey: resourceKey(e.ResourceType, e.ResourceID),
		Action:      e.Action,
		Actor:       e.Actor,
		CreatedAt:   formatTime(e.CreatedAt),
		Doc:         doc,
	}, nil
}

func sortAudit(entries []entities.AuditLogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
