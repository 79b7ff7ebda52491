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

const (
	invoicesCustomerIndex = "customer_id-index"
	invoicesStatusIndex   = "status-index"
)

type invoiceItem struct {
	ID            string `dynamodbav:"id"`
	CustomerID    string `dynamodbav:"customer_id"`
	ServiceID     string `dynamodbav:"service_id,omitempty"`
	BillingPeriod string `dynamodbav:"billing_period,omitempty"`
	Status        string `dynamodbav:"status"`
	DueDate       string `dynamodbav:"due_date,omitempty"`
	CreatedAt     string `dynamodbav:"created_at"`
	Version       int64  `dynamodbav:"version"`
	Doc           string `dynamodbav:"doc"`
}

// InvoiceDynamoRepository reads invoices from DynamoDB. Writes go through DynamoUnitOfWork.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: customer_id-index (PK: customer_id, SK: created_at)
//   - GSI: status-index (PK: status, SK: due_date)
type InvoiceDynamoRepository struct {
	ddb    DynamoAPI
	tables Tables
}

var _ interfaces.IInvoiceRepository = (*InvoiceDynamoRepository)(nil)

func NewInvoiceDynamoRepository(ddb DynamoAPI, tables Tables) *InvoiceDynamoRepository {
	return &InvoiceDynamoRepository{ddb: ddb, tables: tables}
}

func (r *InvoiceDynamoRepository) GetByID(ctx context.Context, id string) (entities.Invoice, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Invoices),
		Key:            map[string]types.AttributeValue{"id": s(id)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Invoice{}, errors.Wrapf(err, "get invoice %s", id)
	}
	if len(out.Item) == 0 {
		return entities.Invoice{}, nil
	}
	return decodeInvoice(out.Item)
}

// GetByServicePeriod follows the uniqueness guard written with the invoice.
func (r *InvoiceDynamoRepository) GetByServicePeriod(ctx context.Context, serviceID, period string) (entities.Invoice, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Uniques),
		Key:            map[string]types.AttributeValue{"pk": s(invoicePeriodKey(serviceID, period))},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Invoice{}, errors.Wrap(err, "get invoice period guard")
	}
	if len(out.Item) == 0 {
		return entities.Invoice{}, nil
	}
	var g uniqueItem
	if err := attributevalue.UnmarshalMap(out.Item, &g); err != nil {
		return entities.Invoice{}, err
	}
	return r.GetByID(ctx, g.RefID)
}

func (r *InvoiceDynamoRepository) List(ctx context.Context, f entities.InvoiceFilter) ([]entities.Invoice, error) {
	var (
		items []map[string]types.AttributeValue
		err   error
	)
	switch {
	case f.CustomerID != "":
		items, err = r.query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tables.Invoices),
			IndexName:                 aws.String(invoicesCustomerIndex),
			KeyConditionExpression:    aws.String("customer_id = :cid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":cid": s(f.CustomerID)},
			ScanIndexForward:          aws.Bool(false),
		})
	case f.Status != "":
		in := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tables.Invoices),
			IndexName:                 aws.String(invoicesStatusIndex),
			KeyConditionExpression:    aws.String("#status = :st"),
			ExpressionAttributeNames:  map[string]string{"#status": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":st": s(string(f.Status))},
		}
		if f.DueBefore != nil {
			in.KeyConditionExpression = aws.String("#status = :st AND due_date < :due")
			in.ExpressionAttributeValues[":due"] = s(formatTime(*f.DueBefore))
		}
		items, err = r.query(ctx, in)
	default:
		items, err = r.scan(ctx, &dynamodb.ScanInput{TableName: aws.String(r.tables.Invoices)})
	}
	if err != nil {
		return nil, errors.Wrap(err, "list invoices")
	}

	out := make([]entities.Invoice, 0, len(items))
	for _, raw := range items {
		inv, err := decodeInvoice(raw)
		if err != nil {
			return nil, err
		}
		if !matchesInvoiceFilter(inv, f) {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchesInvoiceFilter(inv entities.Invoice, f entities.InvoiceFilter) bool {
	switch {
	case f.CustomerID != "" && inv.CustomerID != f.CustomerID:
		return false
	case f.ServiceID != "" && inv.ServiceID != f.ServiceID:
		return false
	case f.Status != "" && inv.Status != f.Status:
		return false
	case f.DueBefore != nil && !inv.DueDate.Before(*f.DueBefore):
		return false
	}
	return true
}

func (r *InvoiceDynamoRepository) query(ctx context.Context, in *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	return queryAll(ctx, r.ddb, in)
}

func (r *InvoiceDynamoRepository) scan(ctx context.Context, in *dynamodb.ScanInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := r.ddb.Scan(ctx, in)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func queryAll(ctx context.Context, ddb DynamoAPI, in *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := ddb.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func toInvoiceItem(inv entities.Invoice) (invoiceItem, error) {
	doc, err := marshalDoc(inv)
	if err != nil {
		return invoiceItem{}, errors.Wrap(err, "marshal invoice")
	}
	return invoiceItem{
		ID:            inv.ID,
		CustomerID:    inv.CustomerID,
		ServiceID:     inv.ServiceID,
		BillingPeriod: inv.BillingPeriod,
		Status:        string(inv.Status),
		DueDate:       formatTime(inv.DueDate),
		CreatedAt:     formatTime(inv.CreatedAt),
		Version:       inv.Version,
		Doc:           doc,
	}, nil
}

func decodeInvoice(raw map[string]types.AttributeValue) (entities.Invoice, error) {
	var it invoiceItem
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return entities.Invoice{}, err
	}
	var inv entities.Invoice
	if err := json.Unmarshal([]byte(it.Doc), &inv); err != nil {
		return entities.Invoice{}, errors.Wrapf(err, "decode invoice %s", it.ID)
	}
	inv.Version = it.Version
	return inv, nil
}
