package repository

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase/interfaces"
)

const (
	transactionsInvoiceIDIndex = "invoice_id-index"
	transactionsStatusIndex    = "status-index"
)

type transactionItem struct {
	ID                string `dynamodbav:"id"`
	InvoiceID         string `dynamodbav:"invoice_id"`
	Provider          string `dynamodbav:"provider"`
	ProviderReference string `dynamodbav:"provider_reference"`
	Kind              string `dynamodbav:"kind"`
	Status            string `dynamodbav:"status"`
	CreatedAt         string `dynamodbav:"created_at"`
	UpdatedAt         string `dynamodbav:"updated_at"`
	Version           int64  `dynamodbav:"version"`
	Doc               string `dynamodbav:"doc"`
}

// PaymentTransactionDynamoRepository reads payment transactions from DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: invoice_id-index (PK: invoice_id, SK: created_at)
//   - GSI: status-index (PK: status, SK: updated_at)
//
// Provider references resolve through the uniques table so lookups stay strongly consistent.
type PaymentTransactionDynamoRepository struct {
	ddb    DynamoAPI
	tables Tables
}

var _ interfaces.IPaymentTransactionRepository = (*PaymentTransactionDynamoRepository)(nil)

func NewPaymentTransactionDynamoRepository(ddb DynamoAPI, tables Tables) *PaymentTransactionDynamoRepository {
	return &PaymentTransactionDynamoRepository{ddb: ddb, tables: tables}
}

func (r *PaymentTransactionDynamoRepository) GetByID(ctx context.Context, id string) (entities.PaymentTransaction, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Transactions),
		Key:            map[string]types.AttributeValue{"id": s(id)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.PaymentTransaction{}, errors.Wrapf(err, "get payment transaction %s", id)
	}
	if len(out.Item) == 0 {
		return entities.PaymentTransaction{}, nil
	}
	return decodeTransaction(out.Item)
}

func (r *PaymentTransactionDynamoRepository) GetByProviderReference(ctx context.Context, provider entities.ProviderType, reference string) (entities.PaymentTransaction, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tables.Uniques),
		Key:            map[string]types.AttributeValue{"pk": s(transactionRefKey(provider, reference))},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.PaymentTransaction{}, errors.Wrap(err, "get provider reference guard")
	}
	if len(out.Item) == 0 {
		return entities.PaymentTransaction{}, nil
	}
	var g uniqueItem
	if err := attributevalue.UnmarshalMap(out.Item, &g); err != nil {
		return entities.PaymentTransaction{}, err
	}
	return r.GetByID(ctx, g.RefID)
}

func (r *PaymentTransactionDynamoRepository) ListByInvoiceID(ctx context.Context, invoiceID string) ([]entities.PaymentTransaction, error) {
	raw, err := queryAll(ctx, r.ddb, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tables.Transactions),
		IndexName:                 aws.String(transactionsInvoiceIDIndex),
		KeyConditionExpression:    aws.String("invoice_id = :iid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":iid": s(invoiceID)},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list transactions of invoice %s", invoiceID)
	}
	out, err := decodeTransactions(raw)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListStale queries the status index once per status, oldest update first.
func (r *PaymentTransactionDynamoRepository) ListStale(ctx context.Context, statuses []entities.TransactionStatus, olderThan time.Time, limit int) ([]entities.PaymentTransaction, error) {
	var out []entities.PaymentTransaction
	for _, st := range statuses {
		raw, err := queryAll(ctx, r.ddb, &dynamodb.QueryInput{
			TableName:                aws.String(r.tables.Transactions),
			IndexName:                aws.String(transactionsStatusIndex),
			KeyConditionExpression:   aws.String("#status = :st AND updated_at < :before"),
			FilterExpression:         aws.String("#kind = :kind"),
			ExpressionAttributeNames: map[string]string{"#status": "status", "#kind": "kind"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":st":     s(string(st)),
				":before": s(formatTime(olderThan)),
				":kind":   s(string(entities.TransactionKindPayment)),
			},
		})
		if err != nil {
			return nil, errors.Wrapf(err, "list stale %s transactions", st)
		}
		txs, err := decodeTransactions(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, txs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func toTransactionItem(tx entities.PaymentTransaction) (transactionItem, error) {
	doc, err := marshalDoc(tx)
	if err != nil {
		return transactionItem{}, errors.Wrap(err, "marshal payment transaction")
	}
	return transactionItem{
		ID:                tx.ID,
		InvoiceID:         tx.InvoiceID,
		Provider:          string(tx.Provider),
		ProviderReference: tx.ProviderReference,
		Kind:              string(tx.Kind),
		Status:            string(tx.Status),
		CreatedAt:         formatTime(tx.CreatedAt),
		UpdatedAt:         formatTime(tx.UpdatedAt),
		Version:           tx.Version,
		Doc:               doc,
	}, nil
}

func decodeTransaction(raw map[string]types.AttributeValue) (entities.PaymentTransaction, error) {
	var it transactionItem
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return entities.PaymentTransaction{}, err
	}
	var tx entities.PaymentTransaction
	if err := json.Unmarshal([]byte(it.Doc), &tx); err != nil {
		return entities.PaymentTransaction{}, errors.Wrapf(err, "decode payment transaction %s", it.ID)
	}
	tx.Version = it.Version
	return tx, nil
}

func decodeTransactions(raw []map[string]types.AttributeValue) ([]entities.PaymentTransaction, error) {
	out := make([]entities.PaymentTransaction, 0, len(raw))
	for _, item := range raw {
		tx, err := decodeTransaction(item)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
