package main

import (
	"context"
	"log"
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

// Scheduled sweep of rooms that never got a second player. Clients
// already delete expired rooms opportunistically when they scan the
// list; this backstop catches rooms nobody is looking at anymore.
func handler(ctx context.Context, event events.CloudWatchEvent) error {
	rooms, err := storageClient.ListRooms(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	removed := 0
	for _, room := range rooms {
		if room.IsLocked && room.JoinedName != "" {
			continue
		}
		if room.Age(now) < roomTtl {
			continue
		}
		if err := storageClient.DeleteRoom(ctx, room.RoomId); err != nil {
			log.Printf("failed to delete room %s: %v", room.RoomId, err)
			continue
		}
		removed++
	}
	log.Printf("room cleanup finished: %d removed, %d scanned", removed, len(rooms))
	return nil
}

func main() {
	lambda.Start(handler)
}
