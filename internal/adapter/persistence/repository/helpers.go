package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/entities"
)

// DynamoAPI is the subset of *dynamodb.Client the repositories use.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

var _ DynamoAPI = (*dynamodb.Client)(nil)

// Tables names every table the billing store touches.
type Tables struct {
	Invoices     string
	Transactions string
	Audit        string
	Uniques      string
	Sequences    string
	BillingRuns  string
	Services     string
}

// timeLayout is fixed-width so stored timestamps sort lexically in key conditions.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

// writeGuard says what a failed condition on one transact item means.
type writeGuard int

const (
	guardNone writeGuard = iota
	guardRowExists
	guardInvoicePeriod
	guardTransactionRef
	guardVersion
	guardSequence
)

// cancellationError maps a cancelled TransactWriteItems call onto the store errors, using the
// guard recorded for each item in request order.
func cancellationError(err error, guards []writeGuard) error {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		var tcf *types.TransactionConflictException
		if errors.As(err, &tcf) {
			return errors.Wrap(entities.ErrVersionConflict, "transaction conflict")
		}
		return errors.Wrap(err, "transact write")
	}
	for i, reason := range tce.CancellationReasons {
		code := ""
		if reason.Code != nil {
			code = *reason.Code
		}
		switch code {
		case "TransactionConflict":
			return errors.Wrap(entities.ErrVersionConflict, "transaction conflict")
		case "ConditionalCheckFailed":
			if i >= len(guards) {
				continue
			}
			switch guards[i] {
			case guardInvoicePeriod:
				return entities.ErrDuplicateInvoice
			case guardTransactionRef:
				return entities.ErrDuplicateTransaction
			case guardVersion, guardSequence:
				return entities.ErrVersionConflict
			case guardRowExists:
				return entities.ErrConflict
			}
		}
	}
	return errors.Wrap(entities.ErrTransient, tce.Error())
}

func marshalDoc(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
