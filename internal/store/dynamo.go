package store

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/product-view/internal/domain/product"
)

// Dynamo stores product snapshots in a DynamoDB table keyed by product_id.
// Predicate queries scan the table and filter client-side; the view is small
// by design.
type Dynamo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamo(client *dynamodb.Client, tableName string) *Dynamo {
	return &Dynamo{client: client, tableName: tableName}
}

// dynamoProduct is the DynamoDB item shape. Price is kept as its exact
// decimal string.
type dynamoProduct struct {
	ProductID   string  `dynamodbav:"product_id"`
	Name        string  `dynamodbav:"name"`
	Description *string `dynamodbav:"description,omitempty"`
	Price       *string `dynamodbav:"price,omitempty"`
	Category    *string `dynamodbav:"category,omitempty"`
	CreatedAt   string  `dynamodbav:"created_at"`
	UpdatedAt   string  `dynamodbav:"updated_at"`
	Version     int64   `dynamodbav:"version"`
}

func (d *Dynamo) FindByID(ctx context.Context, id product.ID) (*product.Product, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       productKey(id),
	})
	if err != nil {
		return nil, product.WrapStoreError("dynamodb get item", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item dynamoProduct
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, product.WrapStoreError("dynamodb unmarshal item", err)
	}
	p, err := item.toDomain()
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Dynamo) FindAll(ctx context.Context) ([]product.Product, error) {
	return d.scan(ctx, func(product.Product) bool { return true })
}

func (d *Dynamo) FindByCategory(ctx context.Context, category string) ([]product.Product, error) {
	return d.scan(ctx, func(p product.Product) bool { return matchesCategory(p, category) })
}

func (d *Dynamo) FindByPriceBetween(ctx context.Context, min, max product.Price) ([]product.Product, error) {
	return d.scan(ctx, func(p product.Product) bool { return matchesPrice(p, min, max) })
}

func (d *Dynamo) FindByCategoryAndPriceBetween(ctx context.Context, category string, min, max product.Price) ([]product.Product, error) {
	return d.scan(ctx, func(p product.Product) bool {
		return matchesCategory(p, category) && matchesPrice(p, min, max)
	})
}

func (d *Dynamo) Save(ctx context.Context, p product.Product) error {
	item, err := attributevalue.MarshalMap(fromDomain(p))
	if err != nil {
		return product.WrapStoreError("dynamodb marshal item", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return product.WrapStoreError("dynamodb put item", err)
	}
	return nil
}

func (d *Dynamo) DeleteByID(ctx context.Context, id product.ID) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       productKey(id),
	})
	if err != nil {
		return product.WrapStoreError("dynamodb delete item", err)
	}
	return nil
}

func (d *Dynamo) ExistsByID(ctx context.Context, id product.ID) (bool, error) {
	p, err := d.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

func (d *Dynamo) scan(ctx context.Context, match func(product.Product) bool) ([]product.Product, error) {
	out := []product.Product{}
	var startKey map[string]types.AttributeValue
	for {
		page, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(d.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, product.WrapStoreError("dynamodb scan", err)
		}

		var items []dynamoProduct
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, product.WrapStoreError("dynamodb unmarshal scan page", err)
		}
		for _, item := range items {
			p, err := item.toDomain()
			if err != nil {
				return nil, err
			}
			if match(*p) {
				out = append(out, *p)
			}
		}

		if page.LastEvaluatedKey == nil {
			break
		}
		startKey = page.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func productKey(id product.ID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"product_id": &types.AttributeValueMemberS{Value: string(id)},
	}
}

func fromDomain(p product.Product) dynamoProduct {
	item := dynamoProduct{
		ProductID:   string(p.ProductID),
		Name:        string(p.Name),
		Description: p.Description,
		Category:    p.Category,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Version:     p.Version,
	}
	if p.Price != nil {
		v := p.Price.String()
		item.Price = &v
	}
	return item
}

func (item dynamoProduct) toDomain() (*product.Product, error) {
	created, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, product.WrapStoreError("dynamodb parse created_at", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, product.WrapStoreError("dynamodb parse updated_at", err)
	}

	p := product.Product{
		ProductID:   product.ID(item.ProductID),
		Name:        product.Name(item.Name),
		Description: item.Description,
		Category:    item.Category,
		CreatedAt:   created,
		UpdatedAt:   updated,
		Version:     item.Version,
	}
	if item.Price != nil {
		parsed, err := product.ParsePrice(*item.Price)
		if err != nil {
			return nil, err
		}
		p.Price = &parsed
	}
	return &p, nil
}
