package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/caro-vn/caro-online/internal/app/client"
	awsstorage "github.com/caro-vn/caro-online/internal/aws/storage"
	"github.com/caro-vn/caro-online/internal/domains/entities"
	"github.com/caro-vn/caro-online/internal/game"
	"github.com/caro-vn/caro-online/internal/local"
	"github.com/caro-vn/caro-online/internal/relay"
	"github.com/caro-vn/caro-online/internal/storage"
	"github.com/caro-vn/caro-online/pkg/logging"
	"go.uber.org/zap"
)

// terminalBell is the poor man's sound trigger: one beep per cue.
type terminalBell struct{}

func (terminalBell) Play(name string) {
	fmt.Print("\a")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: caro <create|join CODE|list>")
		os.Exit(2)
	}

	cfg := client.NewConfig()
	ctx := context.Background()

	profile, err := local.Open("")
	if err != nil {
		logging.Fatal("failed to open profile", zap.Error(err))
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to open store", zap.Error(err))
	}

	registry := client.NewRegistry(store, cfg)

	switch os.Args[1] {
	case "create":
		room, err := registry.CreateRoom(ctx, profile.Name())
		if err != nil {
			logging.Fatal("failed to create room", zap.Error(err))
		}
		fmt.Printf("Room %s created. Waiting for an opponent...\n", room.RoomId)
		play(ctx, store, cfg, profile, room, entities.RoleCreator)

	case "join":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: caro join CODE")
			os.Exit(2)
		}
		room, err := registry.JoinRoom(ctx, os.Args[2], profile.Name())
		if err != nil {
			logging.Fatal("failed to join room", zap.Error(err))
		}
		fmt.Printf("Joined room %s (created by %s).\n", room.RoomId, room.CreatorName)
		play(ctx, store, cfg, profile, room, entities.RoleJoined)

	case "list":
		snapshots, err := registry.ListOpenRooms(ctx)
		if err != nil {
			logging.Fatal("failed to list rooms", zap.Error(err))
		}
		for rooms := range snapshots {
			if len(rooms) == 0 {
				fmt.Println("No open rooms.")
				continue
			}
			for _, room := range rooms {
				left := cfg.RoomTTL - room.Age(time.Now())
				fmt.Printf("%s  by %-16s expires in %ds\n", room.RoomId, room.CreatorName, int(left.Seconds()))
			}
			fmt.Println("---")
		}

	default:
		fmt.Fprintln(os.Stderr, "usage: caro <create|join CODE|list>")
		os.Exit(2)
	}
}

func openStore(ctx context.Context, cfg client.Config) (storage.RoomStore, error) {
	switch cfg.Store.Backend {
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return awsstorage.NewClient(
			dynamodb.NewFromConfig(awsCfg),
			awsstorage.Config{
				RoomsTableName: aws.String(cfg.Store.RoomsTableName),
				PollInterval:   cfg.Store.PollInterval,
			},
		), nil
	default:
		return relay.Dial(ctx, cfg.Store.RelayUrl)
	}
}

func play(
	ctx context.Context,
	store storage.RoomStore,
	cfg client.Config,
	profile *local.Profile,
	room entities.Room,
	role string,
) {
	lobby := client.NewLobby(store, room, role)

	fmt.Println("Press enter when ready.")
	bufio.NewReader(os.Stdin).ReadString('\n')
	if err := lobby.MarkReady(ctx); err != nil {
		logging.Fatal("failed to mark ready", zap.Error(err))
	}
	fmt.Println("Waiting for the other player...")

	started, err := lobby.WaitForStart(ctx)
	if err != nil {
		logging.Fatal("lobby canceled", zap.Error(err))
	}

	var session *client.Session
	session = client.NewSession(store, started, role, cfg, client.Handlers{
		Sound: terminalBell{},
		OnUrgency: func(u client.Urgency) {
			if u != client.UrgencyNormal {
				fmt.Printf("[clock: %s]\n", u)
			}
		},
		OnBoardChanged: func() {
			render(session)
		},
		OnEnd: func(result client.Result) {
			render(session)
			switch result.Outcome {
			case client.OutcomeWin:
				if err := profile.RecordWin(); err != nil {
					logging.Error("failed to record win", zap.Error(err))
				}
				fmt.Printf("You win! Level %d (%dW/%dL)\n", profile.Level(), profile.Wins(), profile.Losses())
			case client.OutcomeLoss:
				if err := profile.RecordLoss(); err != nil {
					logging.Error("failed to record loss", zap.Error(err))
				}
				fmt.Printf("You lose. Level %d (%dW/%dL)\n", profile.Level(), profile.Wins(), profile.Losses())
			case client.OutcomeTimeout:
				fmt.Println("Time is up. Draw.")
			}
		},
	})

	fmt.Printf("Match started. You play %s. Enter moves as: row col\n", session.Symbol())

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) != 2 {
				fmt.Println("Enter moves as: row col")
				continue
			}
			var row, col int
			if _, err := fmt.Sscanf(fields[0]+" "+fields[1], "%d %d", &row, &col); err != nil {
				fmt.Println("Enter moves as: row col")
				continue
			}
			if err := session.PlaceStone(ctx, row, col); err != nil {
				fmt.Println(err)
			}
		}
	}()

	if err := session.Run(ctx); err != nil {
		logging.Error("session ended with error", zap.Error(err))
	}
}

func render(session *client.Session) {
	board := session.BoardSnapshot()
	var sb strings.Builder
	sb.WriteString("   ")
	for c := 0; c < game.BoardSize; c++ {
		fmt.Fprintf(&sb, "%2d", c)
	}
	sb.WriteByte('\n')
	for r := 0; r < game.BoardSize; r++ {
		fmt.Fprintf(&sb, "%2d ", r)
		for c := 0; c < game.BoardSize; c++ {
			switch board.At(r, c) {
			case game.X:
				sb.WriteString(" X")
			case game.O:
				sb.WriteString(" O")
			default:
				sb.WriteString(" .")
			}
		}
		sb.WriteByte('\n')
	}
	fmt.Printf("%s(turn: %s)\n", sb.String(), session.Turn())
}
