package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsstorage "github.com/caro-vn/caro-online/internal/aws/storage"
)

var (
	storageClient *awsstorage.Client
	roomTtl       time.Duration
)

type openRoom struct {
	RoomId      string `json:"roomId"`
	CreatorName string `json:"creatorName"`
	SecondsLeft int    `json:"secondsLeft"`
}

func init() {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}
	storageClient = awsstorage.NewClient(
		dynamodb.NewFromConfig(cfg),
		awsstorage.Config{
			RoomsTableName: aws.String(os.Getenv("ROOMS_TABLE_NAME")),
		},
	)
	roomTtl = 2 * time.Minute
	if v := os.Getenv("ROOM_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			roomTtl = d
		}
	}
}

// One-shot listing of joinable rooms for clients that want an HTTP view
// instead of a live store subscription.
func handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	rooms, err := storageClient.ListRooms(ctx)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}

	now := time.Now().UTC()
	open := []openRoom{}
	for _, room := range rooms {
		if room.IsLocked {
			continue
		}
		left := roomTtl - room.Age(now)
		if left <= 0 {
			continue
		}
		open = append(open, openRoom{
			RoomId:      room.RoomId,
			CreatorName: room.CreatorName,
			SecondsLeft: int(left.Seconds()),
		})
	}

	data, _ := json.Marshal(open)
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(data),
	}, nil
}

func main() {
	lambda.Start(handler)
}
