package repository

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase/interfaces"
)

const (
	billingRunsKindIndex = "kind-started_at-index"
	billingRunKind       = "billing_run"
)

type billingRunItem struct {
	RunID     string `dynamodbav:"run_id"`
	Kind      string `dynamodbav:"kind"`
	Period    string `dynamodbav:"period"`
	DryRun    bool   `dynamodbav:"dry_run"`
	StartedAt string `dynamodbav:"started_at"`
	Doc       string `dynamodbav:"doc"`
}

// BillingRunDynamoRepository keeps billing run records.
//
// Table requirements:
//   - PK: run_id (string)
//   - GSI: kind-started_at-index (PK: kind, SK: started_at)
type BillingRunDynamoRepository struct {
	ddb    DynamoAPI
	tables Tables
}

var _ interfaces.IBillingRunRepository = (*BillingRunDynamoRepository)(nil)

func NewBillingRunDynamoRepository(ddb DynamoAPI, tables Tables) *BillingRunDynamoRepository {
	return &BillingRunDynamoRepository{ddb: ddb, tables: tables}
}

func (r *BillingRunDynamoRepository) Save(ctx context.Context, run entities.BillingRun) error {
	doc, err := marshalDoc(run)
	if err != nil {
		return errors.Wrap(err, "marshal billing run")
	}
	av, err := attributevalue.MarshalMap(billingRunItem{
		RunID:     run.RunID,
		Kind:      billingRunKind,
		Period:    run.Period,
		DryRun:    run.DryRun,
		StartedAt: formatTime(run.StartedAt),
		Doc:       doc,
	})
	if err != nil {
		return err
	}
	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tables.BillingRuns),
		Item:      av,
	})
	return errors.Wrapf(err, "save billing run %s", run.RunID)
}

// ListRecent returns the newest runs first.
func (r *BillingRunDynamoRepository) ListRecent(ctx context.Context, limit int) ([]entities.BillingRun, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tables.BillingRuns),
		IndexName:                 aws.String(billingRunsKindIndex),
		KeyConditionExpression:    aws.String("#kind = :kind"),
		ExpressionAttributeNames:  map[string]string{"#kind": "kind"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":kind": s(billingRunKind)},
		ScanIndexForward:          aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}
	out, err := r.ddb.Query(ctx, in)
	if err != nil {
		return nil, errors.Wrap(err, "list billing runs")
	}
	runs := make([]entities.BillingRun, 0, len(out.Items))
	for _, raw := range out.Items {
		var it billingRunItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		var run entities.BillingRun
		if err := json.Unmarshal([]byte(it.Doc), &run); err != nil {
			return nil, errors.Wrapf(err, "decode billing run %s", it.RunID)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
