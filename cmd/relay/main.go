package main

import (
	"github.com/caro-vn/caro-online/internal/relay"
	"github.com/caro-vn/caro-online/pkg/logging"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	viper.SetDefault("RELAY_ADDRESS", "0.0.0.0:7420")
	viper.AutomaticEnv()
	address := viper.GetString("RELAY_ADDRESS")

	logging.Fatal("Relay server exited: ", zap.Error(
		relay.NewServer(address, relay.NewDocStore()).Start(),
	))
}
