package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/storage"
)

var _ storage.RoomStore = (*Client)(nil)

// CreateRoom writes the room with a conditional put so that a code can
// never be allocated twice, no matter how the callers race.
func (client *Client) CreateRoom(ctx context.Context, room entities.Room) (entities.Room, error) {
	// DynamoDB has no server-assigned timestamps; the storage client is
	// the single writer of CreatedAt, which keeps expiry independent of
	// the game clients' clocks.
	room.CreatedAt = time.Now().UTC()
	if room.Ready == nil {
		room.Ready = map[string]bool{}
	}
	if room.Moves == nil {
		room.Moves = map[string]string{}
	}

	av, err := attributevalue.MarshalMap(room)
	if err != nil {
		return entities.Room{}, fmt.Errorf("failed to marshal room: %w", err)
	}
	_, err = client.dynamodb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           client.cfg.RoomsTableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(roomId)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return entities.Room{}, storage.ErrRoomExists
		}
		return entities.Room{}, fmt.Errorf("failed to put room: %w", err)
	}
	return room, nil
}

func (client *Client) GetRoom(ctx context.Context, roomId string) (entities.Room, error) {
	output, err := client.dynamodb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: client.cfg.RoomsTableName,
		Key: map[string]types.AttributeValue{
			"roomId": &types.AttributeValueMemberS{
				Value: roomId,
			},
		},
	})
	if err != nil {
		return entities.Room{}, err
	}
	if output.Item == nil {
		return entities.Room{}, storage.ErrRoomNotFound
	}
	var room entities.Room
	if err := attributevalue.UnmarshalMap(output.Item, &room); err != nil {
		return entities.Room{}, err
	}
	return room, nil
}

// UpdateRoom translates the partial merge into a single
// UpdateExpression. Map entries become document-path sets (ready.#role,
// moves.#key) so concurrent writers of disjoint keys never clobber each
// other.
func (client *Client) UpdateRoom(
	ctx context.Context,
	roomId string,
	update storage.RoomUpdate,
) error {
	updateExpression := []string{}
	expressionAttributeNames := map[string]string{}
	expressionAttributeValues := map[string]types.AttributeValue{}

	if update.JoinedId != nil {
		updateExpression = append(updateExpression, "joinedId = :joinedId")
		expressionAttributeValues[":joinedId"] = &types.AttributeValueMemberS{
			Value: *update.JoinedId,
		}
	}
	if update.JoinedName != nil {
		updateExpression = append(updateExpression, "joinedName = :joinedName")
		expressionAttributeValues[":joinedName"] = &types.AttributeValueMemberS{
			Value: *update.JoinedName,
		}
	}
	if update.IsLocked != nil {
		updateExpression = append(updateExpression, "isLocked = :isLocked")
		expressionAttributeValues[":isLocked"] = &types.AttributeValueMemberBOOL{
			Value: *update.IsLocked,
		}
	}
	i := 0
	for role, ready := range update.Ready {
		name := fmt.Sprintf("#readyKey%d", i)
		value := fmt.Sprintf(":readyValue%d", i)
		updateExpression = append(updateExpression, fmt.Sprintf("ready.%s = %s", name, value))
		expressionAttributeNames[name] = role
		expressionAttributeValues[value] = &types.AttributeValueMemberBOOL{Value: ready}
		i++
	}
	i = 0
	for key, symbol := range update.Moves {
		name := fmt.Sprintf("#moveKey%d", i)
		value := fmt.Sprintf(":moveValue%d", i)
		updateExpression = append(updateExpression, fmt.Sprintf("moves.%s = %s", name, value))
		expressionAttributeNames[name] = key
		expressionAttributeValues[value] = &types.AttributeValueMemberS{Value: symbol}
		i++
	}
	if update.LastMove != nil {
		av, err := attributevalue.Marshal(*update.LastMove)
		if err != nil {
			return fmt.Errorf("failed to marshal last move: %w", err)
		}
		updateExpression = append(updateExpression, "lastMove = :lastMove")
		expressionAttributeValues[":lastMove"] = av
	}
	if len(updateExpression) == 0 {
		return nil
	}

	input := &dynamodb.UpdateItemInput{
		TableName: client.cfg.RoomsTableName,
		Key: map[string]types.AttributeValue{
			"roomId": &types.AttributeValueMemberS{
				Value: roomId,
			},
		},
		UpdateExpression:          aws.String("SET " + strings.Join(updateExpression, ", ")),
		ExpressionAttributeValues: expressionAttributeValues,
		ConditionExpression:       aws.String("attribute_exists(roomId)"),
	}
	if len(expressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = expressionAttributeNames
	}

	_, err := client.dynamodb.UpdateItem(ctx, input)
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return storage.ErrRoomNotFound
		}
		return err
	}
	return nil
}

// DeleteRoom is a plain delete; DynamoDB treats deleting an absent item
// as success, which is exactly the idempotence the concurrent expiry
// sweeps rely on.
func (client *Client) DeleteRoom(ctx context.Context, roomId string) error {
	_, err := client.dynamodb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: client.cfg.RoomsTableName,
		Key: map[string]types.AttributeValue{
			"roomId": &types.AttributeValueMemberS{Value: roomId},
		},
	})
	if err != nil {
		return err
	}
	return nil
}

func (client *Client) ListRooms(ctx context.Context) ([]entities.Room, error) {
	var rooms []entities.Room
	var lastKey map[string]types.AttributeValue
	for {
		output, err := client.dynamodb.Scan(ctx, &dynamodb.ScanInput{
			TableName:         client.cfg.RoomsTableName,
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, err
		}
		var page []entities.Room
		if err := attributevalue.UnmarshalListOfMaps(output.Items, &page); err != nil {
			return nil, err
		}
		rooms = append(rooms, page...)
		if output.LastEvaluatedKey == nil {
			return rooms, nil
		}
		lastKey = output.LastEvaluatedKey
	}
}
