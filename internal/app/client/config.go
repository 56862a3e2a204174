package client

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	MaxOpenRooms    int
	RoomTTL         time.Duration
	JoinGracePeriod time.Duration

	MatchDuration time.Duration
	TurnDuration  time.Duration
	WarningAt     time.Duration
	DangerAt      time.Duration

	Store StoreConfig
}

type StoreConfig struct {
	Backend        string // "dynamodb" or "relay"
	RelayUrl       string
	RoomsTableName string
	PollInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxOpenRooms:    10,
		RoomTTL:         2 * time.Minute,
		JoinGracePeriod: 2 * time.Minute,
		MatchDuration:   10 * time.Minute,
		TurnDuration:    30 * time.Second,
		WarningAt:       20 * time.Second,
		DangerAt:        10 * time.Second,
		Store: StoreConfig{
			Backend:        "relay",
			RelayUrl:       "ws://localhost:7420/store",
			RoomsTableName: "CaroRooms",
			PollInterval:   time.Second,
		},
	}
}

// NewConfig loads config.yaml, falling back to defaults when no file is
// present so the client runs unconfigured against a local relay.
func NewConfig() Config {
	config := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs/client")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
			return config
		}
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	viper.SetDefault("Rooms.MaxOpen", config.MaxOpenRooms)
	viper.SetDefault("Rooms.TTL", config.RoomTTL.String())
	viper.SetDefault("Rooms.JoinGracePeriod", config.JoinGracePeriod.String())
	viper.SetDefault("Match.Duration", config.MatchDuration.String())
	viper.SetDefault("Match.TurnDuration", config.TurnDuration.String())
	viper.SetDefault("Match.WarningAt", config.WarningAt.String())
	viper.SetDefault("Match.DangerAt", config.DangerAt.String())
	viper.SetDefault("Store.Backend", config.Store.Backend)
	viper.SetDefault("Store.RelayUrl", config.Store.RelayUrl)
	viper.SetDefault("Store.RoomsTableName", config.Store.RoomsTableName)
	viper.SetDefault("Store.PollInterval", config.Store.PollInterval.String())

	config.MaxOpenRooms = viper.GetInt("Rooms.MaxOpen")
	config.RoomTTL = mustDuration("Rooms.TTL")
	config.JoinGracePeriod = mustDuration("Rooms.JoinGracePeriod")
	config.MatchDuration = mustDuration("Match.Duration")
	config.TurnDuration = mustDuration("Match.TurnDuration")
	config.WarningAt = mustDuration("Match.WarningAt")
	config.DangerAt = mustDuration("Match.DangerAt")
	config.Store.Backend = viper.GetString("Store.Backend")
	config.Store.RelayUrl = viper.GetString("Store.RelayUrl")
	config.Store.RoomsTableName = viper.GetString("Store.RoomsTableName")
	config.Store.PollInterval = mustDuration("Store.PollInterval")

	return config
}

func mustDuration(key string) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	return d
}
