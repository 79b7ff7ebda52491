package repository

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circletel_billing/internal/domain/entities"
)

var testTables = Tables{
	Invoices:     "invoices",
	Transactions: "payment_transactions",
	Audit:        "audit_logs",
	Uniques:      "uniques",
	Sequences:    "sequences",
	BillingRuns:  "billing_runs",
	Services:     "services",
}

// fakeDynamo answers GetItem from a table/key map and records transact writes.
type fakeDynamo struct {
	items     map[string]map[string]types.AttributeValue
	transacts []*dynamodb.TransactWriteItemsInput
	txErr     error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamo) put(t *testing.T, table, key string, v interface{}) {
	t.Helper()
	av, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	f.items[table+"/"+key] = av
}

func keyOf(key map[string]types.AttributeValue) string {
	for _, v := range key {
		if sv, ok := v.(*types.AttributeValueMemberS); ok {
			return sv.Value
		}
	}
	return ""
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.items[aws.ToString(in.TableName)+"/"+keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return &dynamodb.ScanOutput{}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transacts = append(f.transacts, in)
	if f.txErr != nil {
		return nil, f.txErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func cancelled(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, c := range codes {
		reasons[i] = types.CancellationReason{Code: aws.String(c)}
	}
	return &types.TransactionCanceledException{Message: aws.String("cancelled"), CancellationReasons: reasons}
}

var sentAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func draftInvoice() entities.Invoice {
	return entities.Invoice{
		ID:            "inv-1",
		CustomerID:    "cust-1",
		ServiceID:     "svc-1",
		BillingPeriod: "2026-03",
		Status:        entities.InvoiceStatusDraft,
		TotalCents:    57500,
		Currency:      "ZAR",
		DueDate:       sentAt.AddDate(0, 0, 7),
		CreatedAt:     sentAt,
		UpdatedAt:     sentAt,
	}
}

func TestCancellationError(t *testing.T) {
	guards := []writeGuard{guardRowExists, guardInvoicePeriod, guardTransactionRef, guardVersion, guardSequence, guardNone}
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"row exists", cancelled("ConditionalCheckFailed"), entities.ErrConflict},
		{"duplicate period", cancelled("None", "ConditionalCheckFailed"), entities.ErrDuplicateInvoice},
		{"duplicate reference", cancelled("None", "None", "ConditionalCheckFailed"), entities.ErrDuplicateTransaction},
		{"stale version", cancelled("None", "None", "None", "ConditionalCheckFailed"), entities.ErrVersionConflict},
		{"sequence moved", cancelled("None", "None", "None", "None", "ConditionalCheckFailed"), entities.ErrVersionConflict},
		{"conflicting transaction", cancelled("None", "TransactionConflict"), entities.ErrVersionConflict},
		{"throttled", cancelled("ThrottlingError"), entities.ErrTransient},
		{"conflict exception", &types.TransactionConflictException{Message: aws.String("busy")}, entities.ErrVersionConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, cancellationError(tc.err, guards), tc.want)
		})
	}

	other := errors.New("network down")
	assert.ErrorIs(t, cancellationError(other, guards), other)
}

func TestBuildCommit_CreateWritesGuardsAndAudit(t *testing.T) {
	inv := draftInvoice()
	tx := entities.PaymentTransaction{
		ID: "tx-1", InvoiceID: inv.ID, Provider: entities.ProviderNetCash, ProviderReference: "CT-INV-1",
		Kind: entities.TransactionKindPayment, AmountCents: 57500, Status: entities.TransactionInitiated,
		CreatedAt: sentAt, UpdatedAt: sentAt,
	}
	cs := entities.ChangeSet{
		Invoice:      &entities.InvoiceWrite{Invoice: inv, Create: true},
		Transactions: []entities.TransactionWrite{{Transaction: tx, Create: true}},
		Audit: []entities.AuditLogEntry{
			{Action: entities.AuditInvoiceCreated, ResourceType: entities.ResourceInvoice, ResourceID: inv.ID},
			{Action: entities.AuditTransactionInitiated, ResourceType: entities.ResourceTransaction, ResourceID: tx.ID},
		},
	}

	plan, err := buildCommit(testTables, cs, nil, sentAt)
	require.NoError(t, err)
	require.Len(t, plan.items, 6)
	assert.Equal(t, []writeGuard{guardRowExists, guardInvoicePeriod, guardRowExists, guardTransactionRef, guardNone, guardNone}, plan.guards)

	assert.Equal(t, "invoices", aws.ToString(plan.items[0].Put.TableName))
	assert.Equal(t, "attribute_not_exists(#id)", aws.ToString(plan.items[0].Put.ConditionExpression))

	var guard uniqueItem
	require.NoError(t, attributevalue.UnmarshalMap(plan.items[1].Put.Item, &guard))
	assert.Equal(t, uniqueItem{PK: "invoice#svc-1#2026-03", RefID: "inv-1"}, guard)
	require.NoError(t, attributevalue.UnmarshalMap(plan.items[3].Put.Item, &guard))
	assert.Equal(t, uniqueItem{PK: "tx#netcash#CT-INV-1", RefID: "tx-1"}, guard)

	var audit auditItem
	require.NoError(t, attributevalue.UnmarshalMap(plan.items[4].Put.Item, &audit))
	assert.NotEmpty(t, audit.ID)
	assert.Equal(t, "invoice#inv-1", audit.ResourceKey)
	assert.Equal(t, formatTime(sentAt), audit.CreatedAt)

	require.NotNil(t, plan.result.Invoice)
	assert.EqualValues(t, 1, plan.result.Invoice.Version)
	require.Len(t, plan.result.Transactions, 1)
	assert.EqualValues(t, 1, plan.result.Transactions[0].Version)
}

func TestBuildCommit_UpdateIsVersionGuarded(t *testing.T) {
	inv := draftInvoice()
	inv.Version = 3
	plan, err := buildCommit(testTables, entities.ChangeSet{
		Invoice: &entities.InvoiceWrite{Invoice: inv, ExpectedVersion: 3},
	}, nil, sentAt)
	require.NoError(t, err)
	require.Len(t, plan.items, 1)

	put := plan.items[0].Put
	assert.Equal(t, "attribute_exists(#id) AND #version = :v", aws.ToString(put.ConditionExpression))
	assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, put.ExpressionAttributeValues[":v"])
	assert.EqualValues(t, 4, plan.result.Invoice.Version)
}

func TestBuildCommit_RejectsRepeatedReferenceInOneChangeSet(t *testing.T) {
	tx := entities.PaymentTransaction{ID: "tx-1", Provider: entities.ProviderNetCash, ProviderReference: "CT-1"}
	other := tx
	other.ID = "tx-2"
	_, err := buildCommit(testTables, entities.ChangeSet{
		Transactions: []entities.TransactionWrite{{Transaction: tx, Create: true}, {Transaction: other, Create: true}},
	}, nil, sentAt)
	assert.ErrorIs(t, err, entities.ErrDuplicateTransaction)
}

func TestDynamoUnitOfWork_AssignsNextNumber(t *testing.T) {
	ddb := newFakeDynamo()
	ddb.put(t, "sequences", "invoice#2026", sequenceItem{PK: "invoice#2026", Seq: 4})
	uow := NewDynamoUnitOfWork(ddb, testTables, nil)

	inv := draftInvoice()
	inv.Status = entities.InvoiceStatusSent
	inv.SentAt = &sentAt
	inv.Version = 1
	res, err := uow.Commit(context.Background(), entities.ChangeSet{
		Invoice: &entities.InvoiceWrite{Invoice: inv, ExpectedVersion: 1, AssignNumber: true},
		Audit: []entities.AuditLogEntry{{
			Action: entities.AuditInvoiceSent, ResourceType: entities.ResourceInvoice, ResourceID: inv.ID,
			After: []byte(`{}`),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-005", res.Invoice.InvoiceNumber)

	require.Len(t, ddb.transacts, 1)
	upd := ddb.transacts[0].TransactItems[0].Update
	require.NotNil(t, upd)
	assert.Equal(t, "#seq = :cur", aws.ToString(upd.ConditionExpression))
	assert.Equal(t, &types.AttributeValueMemberN{Value: "5"}, upd.ExpressionAttributeValues[":next"])
}

func TestDynamoUnitOfWork_FirstNumberOfYear(t *testing.T) {
	ddb := newFakeDynamo()
	uow := NewDynamoUnitOfWork(ddb, testTables, nil)

	inv := draftInvoice()
	inv.SentAt = &sentAt
	res, err := uow.Commit(context.Background(), entities.ChangeSet{
		Invoice: &entities.InvoiceWrite{Invoice: inv, ExpectedVersion: 1, AssignNumber: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-001", res.Invoice.InvoiceNumber)
	assert.Equal(t, "attribute_not_exists(#seq)", aws.ToString(ddb.transacts[0].TransactItems[0].Update.ConditionExpression))
}

func TestDynamoUnitOfWork_MapsDuplicatePeriod(t *testing.T) {
	ddb := newFakeDynamo()
	ddb.txErr = cancelled("None", "ConditionalCheckFailed")
	uow := NewDynamoUnitOfWork(ddb, testTables, nil)

	_, err := uow.Commit(context.Background(), entities.ChangeSet{
		Invoice: &entities.InvoiceWrite{Invoice: draftInvoice(), Create: true},
	})
	assert.ErrorIs(t, err, entities.ErrDuplicateInvoice)
}

func TestDynamoUnitOfWork_EmptyChangeSetIsNoop(t *testing.T) {
	ddb := newFakeDynamo()
	_, err := NewDynamoUnitOfWork(ddb, testTables, nil).Commit(context.Background(), entities.ChangeSet{})
	require.NoError(t, err)
	assert.Empty(t, ddb.transacts)
}

func TestInvoiceDynamoRepository_GetByServicePeriodFollowsGuard(t *testing.T) {
	ddb := newFakeDynamo()
	inv := draftInvoice()
	inv.Version = 2
	it, err := toInvoiceItem(inv)
	require.NoError(t, err)
	ddb.put(t, "invoices", inv.ID, it)
	ddb.put(t, "uniques", invoicePeriodKey("svc-1", "2026-03"), uniqueItem{PK: invoicePeriodKey("svc-1", "2026-03"), RefID: inv.ID})

	repo := NewInvoiceDynamoRepository(ddb, testTables)
	got, err := repo.GetByServicePeriod(context.Background(), "svc-1", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.EqualValues(t, 2, got.Version)
	assert.EqualValues(t, 57500, got.TotalCents)

	missing, err := repo.GetByServicePeriod(context.Background(), "svc-1", "2026-04")
	require.NoError(t, err)
	assert.Empty(t, missing.ID)
}

func TestPaymentTransactionDynamoRepository_GetByProviderReference(t *testing.T) {
	ddb := newFakeDynamo()
	tx := entities.PaymentTransaction{
		ID: "tx-9", InvoiceID: "inv-1", Provider: entities.ProviderMercadoPago, ProviderReference: "CT-INV-2026-001-1",
		Kind: entities.TransactionKindPayment, Status: entities.TransactionPending, AmountCents: 1000,
		CreatedAt: sentAt, UpdatedAt: sentAt, Version: 3,
	}
	it, err := toTransactionItem(tx)
	require.NoError(t, err)
	ddb.put(t, "payment_transactions", tx.ID, it)
	key := transactionRefKey(tx.Provider, tx.ProviderReference)
	ddb.put(t, "uniques", key, uniqueItem{PK: key, RefID: tx.ID})

	repo := NewPaymentTransactionDynamoRepository(ddb, testTables)
	got, err := repo.GetByProviderReference(context.Background(), entities.ProviderMercadoPago, "CT-INV-2026-001-1")
	require.NoError(t, err)
	assert.Equal(t, "tx-9", got.ID)
	assert.Equal(t, entities.TransactionPending, got.Status)

	other, err := repo.GetByProviderReference(context.Background(), entities.ProviderNetCash, "CT-INV-2026-001-1")
	require.NoError(t, err)
	assert.Empty(t, other.ID)
}
