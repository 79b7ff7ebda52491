package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"github.com/oklog/ulid/v2"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

// uniqueItem reserves a natural key in the uniques table and points back at the row owning it.
type uniqueItem struct {
	PK    string `dynamodbav:"pk"`
	RefID string `dynamodbav:"ref_id"`
}

type sequenceItem struct {
	PK  string `dynamodbav:"pk"`
	Seq int    `dynamodbav:"seq"`
}

func invoicePeriodKey(serviceID, period string) string {
	return "invoice#" + serviceID + "#" + period
}

func transactionRefKey(provider entities.ProviderType, reference string) string {
	return "tx#" + string(provider) + "#" + reference
}

func sequenceKey(year int) string { return "invoice#" + strconv.Itoa(year) }

// sequenceClaim is the value read before commit; the write only applies if it is still current.
type sequenceClaim struct {
	Year    int
	Current int
}

// DynamoUnitOfWork applies a ChangeSet with a single TransactWriteItems call.
type DynamoUnitOfWork struct {
	ddb    DynamoAPI
	tables Tables
	log    *logger.Logger
	now    func() time.Time
}

var _ interfaces.IUnitOfWork = (*DynamoUnitOfWork)(nil)

func NewDynamoUnitOfWork(ddb DynamoAPI, tables Tables, log *logger.Logger) *DynamoUnitOfWork {
	return &DynamoUnitOfWork{
		ddb:    ddb,
		tables: tables,
		log:    logger.OrNop(log).Named("dynamodb_uow"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (u *DynamoUnitOfWork) Commit(ctx context.Context, cs entities.ChangeSet) (entities.CommitResult, error) {
	if cs.Empty() {
		return entities.CommitResult{}, nil
	}

	var claim *sequenceClaim
	if w := cs.Invoice; w != nil && w.AssignNumber && w.Invoice.InvoiceNumber == "" {
		year := u.now().Year()
		if w.Invoice.SentAt != nil {
			year = w.Invoice.SentAt.UTC().Year()
		}
		cur, err := u.currentSequence(ctx, year)
		if err != nil {
			return entities.CommitResult{}, err
		}
		if err := cs.ApplyInvoiceNumber(entities.FormatInvoiceNumber(year, cur+1)); err != nil {
			return entities.CommitResult{}, err
		}
		claim = &sequenceClaim{Year: year, Current: cur}
	}

	plan, err := buildCommit(u.tables, cs, claim, u.now())
	if err != nil {
		return entities.CommitResult{}, err
	}
	_, err = u.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: plan.items})
	if err != nil {
		mapped := cancellationError(err, plan.guards)
		u.log.Debugw("[store][dynamodb] commit rejected", "items", len(plan.items), "err", mapped)
		return entities.CommitResult{}, mapped
	}
	return plan.result, nil
}

func (u *DynamoUnitOfWork) currentSequence(ctx context.Context, year int) (int, error) {
	out, err := u.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(u.tables.Sequences),
		Key:            map[string]types.AttributeValue{"pk": s(sequenceKey(year))},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, errors.Wrapf(err, "read invoice sequence %d", year)
	}
	if len(out.Item) == 0 {
		return 0, nil
	}
	var it sequenceItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return 0, err
	}
	return it.Seq, nil
}

// commitPlan is the transact request plus, per item, what a failed condition means.
type commitPlan struct {
	items  []types.TransactWriteItem
	guards []writeGuard
	result entities.CommitResult
}

func (p *commitPlan) add(item types.TransactWriteItem, guard writeGuard) {
	p.items = append(p.items, item)
	p.guards = append(p.guards, guard)
}

func (p *commitPlan) put(table string, v interface{}, cond string, names map[string]string, values map[string]types.AttributeValue, guard writeGuard) error {
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		return err
	}
	put := &types.Put{TableName: aws.String(table), Item: av}
	if cond != "" {
		put.ConditionExpression = aws.String(cond)
		put.ExpressionAttributeNames = names
		put.ExpressionAttributeValues = values
	}
	p.add(types.TransactWriteItem{Put: put}, guard)
	return nil
}

func versionValue(v int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}}
}

// buildCommit turns a ChangeSet into transact items without touching DynamoDB.
func buildCommit(tables Tables, cs entities.ChangeSet, claim *sequenceClaim, now time.Time) (commitPlan, error) {
	var plan commitPlan

	if claim != nil {
		upd := &types.Update{
			TableName:                aws.String(tables.Sequences),
			Key:                      map[string]types.AttributeValue{"pk": s(sequenceKey(claim.Year))},
			UpdateExpression:         aws.String("SET #seq = :next"),
			ExpressionAttributeNames: map[string]string{"#seq": "seq"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":next": &types.AttributeValueMemberN{Value: strconv.Itoa(claim.Current + 1)},
			},
		}
		if claim.Current == 0 {
			upd.ConditionExpression = aws.String("attribute_not_exists(#seq)")
		} else {
			upd.ConditionExpression = aws.String("#seq = :cur")
			upd.ExpressionAttributeValues[":cur"] = &types.AttributeValueMemberN{Value: strconv.Itoa(claim.Current)}
		}
		plan.add(types.TransactWriteItem{Update: upd}, guardSequence)
	}

	if w := cs.Invoice; w != nil {
		inv := w.Invoice
		inv.LineItems = append([]entities.LineItem(nil), inv.LineItems...)
		if w.Create {
			inv.Version = 1
		} else {
			inv.Version = w.ExpectedVersion + 1
		}
		it, err := toInvoiceItem(inv)
		if err != nil {
			return commitPlan{}, err
		}
		if w.Create {
			if err := plan.put(tables.Invoices, it, "attribute_not_exists(#id)", map[string]string{"#id": "id"}, nil, guardRowExists); err != nil {
				return commitPlan{}, err
			}
			if inv.ServiceID != "" && inv.BillingPeriod != "" {
				g := uniqueItem{PK: invoicePeriodKey(inv.ServiceID, inv.BillingPeriod), RefID: inv.ID}
				if err := plan.put(tables.Uniques, g, "attribute_not_exists(#pk)", map[string]string{"#pk": "pk"}, nil, guardInvoicePeriod); err != nil {
					return commitPlan{}, err
				}
			}
		} else {
			if err := plan.put(tables.Invoices, it, "attribute_exists(#id) AND #version = :v",
				map[string]string{"#id": "id", "#version": "version"}, versionValue(w.ExpectedVersion), guardVersion); err != nil {
				return commitPlan{}, err
			}
		}
		plan.result.Invoice = &inv
	}

	seen := map[string]bool{}
	for _, w := range cs.Transactions {
		tx := w.Transaction
		if w.Create {
			key := transactionRefKey(tx.Provider, tx.ProviderReference)
			if seen[key] {
				return commitPlan{}, entities.ErrDuplicateTransaction
			}
			seen[key] = true
			tx.Version = 1
		} else {
			tx.Version = w.ExpectedVersion + 1
		}
		it, err := toTransactionItem(tx)
		if err != nil {
			return commitPlan{}, err
		}
		if w.Create {
			if err := plan.put(tables.Transactions, it, "attribute_not_exists(#id)", map[string]string{"#id": "id"}, nil, guardRowExists); err != nil {
				return commitPlan{}, err
			}
			g := uniqueItem{PK: transactionRefKey(tx.Provider, tx.ProviderReference), RefID: tx.ID}
			if err := plan.put(tables.Uniques, g, "attribute_not_exists(#pk)", map[string]string{"#pk": "pk"}, nil, guardTransactionRef); err != nil {
				return commitPlan{}, err
			}
		} else {
			if err := plan.put(tables.Transactions, it, "attribute_exists(#id) AND #version = :v",
				map[string]string{"#id": "id", "#version": "version"}, versionValue(w.ExpectedVersion), guardVersion); err != nil {
				return commitPlan{}, err
			}
		}
		plan.result.Transactions = append(plan.result.Transactions, tx)
	}

	for _, e := range cs.Audit {
		if e.ID == "" {
			e.ID = ulid.Make().String()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		it, err := toAuditItem(e)
		if err != nil {
			return commitPlan{}, err
		}
		if err := plan.put(tables.Audit, it, "", nil, nil, guardNone); err != nil {
			return commitPlan{}, err
		}
	}

	if len(plan.items) > maxTransactItems {
		return commitPlan{}, entities.Validationf("change set needs %d writes, dynamodb allows %d", len(plan.items), maxTransactItems)
	}
	return plan, nil
}

const maxTransactItems = 100
