// Package storage implements the room store on DynamoDB. Partial
// updates map onto UpdateExpressions with document paths, and the
// subscription primitive is emulated by snapshot polling.
package storage

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type Config struct {
	RoomsTableName *string
	PollInterval   time.Duration
}

type Client struct {
	dynamodb *dynamodb.Client
	cfg      Config
}

func NewClient(dynamoClient *dynamodb.Client, cfg Config) *Client {
	if cfg.RoomsTableName == nil {
		cfg.RoomsTableName = aws.String("CaroRooms")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Client{
		dynamodb: dynamoClient,
		cfg:      cfg,
	}
}
