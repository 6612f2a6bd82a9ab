package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB key layout for the single-table design: orders under ORDER#<id>,
// grants under the owning user so entitlement lookups are one Query.
const (
	orderPKPrefix = "ORDER#"
	userPKPrefix  = "USER#"
	grantSKPrefix = "GRANT#"
	skMeta        = "META"
)

// DynamoStore implements OrderStore on a single DynamoDB table.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

var _ OrderStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table. The client
// should be initialized from the shared AWS config.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func orderPK(orderID string) string { return orderPKPrefix + orderID }

func (s *DynamoStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: orderPK(orderID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem order %s: %w", orderID, err)
	}
	if result.Item == nil {
		return nil, nil
	}
	var order Order
	if err := attributevalue.UnmarshalMap(result.Item, &order); err != nil {
		return nil, fmt.Errorf("unmarshal order %s: %w", orderID, err)
	}
	order.ID = orderID
	return &order, nil
}

func (s *DynamoStore) PutOrder(ctx context.Context, order *Order) error {
	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", order.ID, err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: orderPK(order.ID)}
	item["SK"] = &types.AttributeValueMemberS{Value: skMeta}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("PutItem order %s: %w", order.ID, err)
	}
	return nil
}

// CommitPaid flips the order to paid and writes the grant in one
// transaction. The condition on the order's status is what makes duplicate
// webhook deliveries harmless: the second transaction is cancelled by
// DynamoDB before anything is written.
func (s *DynamoStore) CommitPaid(ctx context.Context, orderID, receiptID string, grant Grant) error {
	grantItem, err := attributevalue.MarshalMap(grant)
	if err != nil {
		return fmt.Errorf("marshal grant for order %s: %w", orderID, err)
	}
	grantItem["PK"] = &types.AttributeValueMemberS{Value: userPKPrefix + grant.UserID}
	grantItem["SK"] = &types.AttributeValueMemberS{Value: grantSKPrefix + orderID}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName: &s.tableName,
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: orderPK(orderID)},
						"SK": &types.AttributeValueMemberS{Value: skMeta},
					},
					ConditionExpression: aws.String("attribute_exists(PK) AND #s <> :paid"),
					UpdateExpression:    aws.String("SET #s = :paid, receiptId = :rcpt, paidAt = :now"),
					ExpressionAttributeNames: map[string]string{
						"#s": "status",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":paid": &types.AttributeValueMemberS{Value: string(StatusPaid)},
						":rcpt": &types.AttributeValueMemberS{Value: receiptID},
						":now":  &types.AttributeValueMemberS{Value: now},
					},
				},
			},
			{
				Put: &types.Put{
					TableName: &s.tableName,
					Item:      grantItem,
				},
			},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return ErrAlreadyPaid
				}
			}
		}
		return fmt.Errorf("TransactWriteItems order %s: %w", orderID, err)
	}
	return nil
}
