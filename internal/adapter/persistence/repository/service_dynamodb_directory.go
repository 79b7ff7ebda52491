package repository

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase/interfaces"
)

type serviceItem struct {
	ID         string `dynamodbav:"id"`
	CustomerID string `dynamodbav:"customer_id"`
	Status     string `dynamodbav:"status"`
	BillingDay int    `dynamodbav:"billing_day"`
	Doc        string `dynamodbav:"doc"`
}

// ServiceDynamoDirectory reads billable services from a DynamoDB mirror of the service catalogue.
//
// Table requirements:
//   - PK: id (string)
type ServiceDynamoDirectory struct {
	ddb    DynamoAPI
	tables Tables
}

var _ interfaces.IServiceDirectory = (*ServiceDynamoDirectory)(nil)

func NewServiceDynamoDirectory(ddb DynamoAPI, tables Tables) *ServiceDynamoDirectory {
	return &ServiceDynamoDirectory{ddb: ddb, tables: tables}
}

// Put upserts a service into the mirror.
func (d *ServiceDynamoDirectory) Put(ctx context.Context, svc entities.Service) error {
	doc, err := marshalDoc(svc)
	if err != nil {
		return errors.Wrap(err, "marshal service")
	}
	av, err := attributevalue.MarshalMap(serviceItem{
		ID:         svc.ID,
		CustomerID: svc.CustomerID,
		Status:     string(svc.Status),
		BillingDay: svc.BillingDay,
		Doc:        doc,
	})
	if err != nil {
		return err
	}
	_, err = d.ddb.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(d.tables.Services), Item: av})
	return errors.Wrapf(err, "put service %s", svc.ID)
}

func (d *ServiceDynamoDirectory) GetService(ctx context.Context, id string) (entities.Service, error) {
	out, err := d.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tables.Services),
		Key:       map[string]types.AttributeValue{"id": s(id)},
	})
	if err != nil {
		return entities.Service{}, errors.Wrapf(err, "get service %s", id)
	}
	if len(out.Item) == 0 {
		return entities.Service{}, nil
	}
	return decodeService(out.Item)
}

// ListBillableServices returns active services on the billing day. A service ID filter
// returns that one service whatever its status.
func (d *ServiceDynamoDirectory) ListBillableServices(ctx context.Context, f entities.ServiceFilter) ([]entities.Service, error) {
	if f.ServiceID != "" {
		svc, err := d.GetService(ctx, f.ServiceID)
		if err != nil || svc.ID == "" {
			return nil, err
		}
		return []entities.Service{svc}, nil
	}

	filter := "#status = :active"
	names := map[string]string{"#status": "status"}
	values := map[string]types.AttributeValue{":active": s(string(entities.ServiceStatusActive))}
	if f.BillingDay != 0 {
		filter += " AND billing_day = :day"
		values[":day"] = &types.AttributeValueMemberN{Value: strconv.Itoa(f.BillingDay)}
	}
	if f.CustomerID != "" {
		filter += " AND customer_id = :cid"
		values[":cid"] = s(f.CustomerID)
	}

	in := &dynamodb.ScanInput{
		TableName:                 aws.String(d.tables.Services),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
	var out []entities.Service
	for {
		page, err := d.ddb.Scan(ctx, in)
		if err != nil {
			return nil, errors.Wrap(err, "scan services")
		}
		for _, raw := range page.Items {
			svc, err := decodeService(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, svc)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func decodeService(raw map[string]types.AttributeValue) (entities.Service, error) {
	var it serviceItem
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return entities.Service{}, err
	}
	var svc entities.Service
	if err := json.Unmarshal([]byte(it.Doc), &svc); err != nil {
		return entities.Service{}, errors.Wrapf(err, "decode service %s", it.ID)
	}
	return svc, nil
}
