// Package local persists the player's profile between runs: display
// name and cumulative win/loss counters, from which the shown level is
// derived.
package local

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const defaultName = "Player"

type Profile struct {
	v *viper.Viper
}

// Open loads the profile from dir, creating the file on first save. An
// empty dir places it under the user config directory.
func Open(dir string) (*Profile, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "caro-online")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("profile")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetDefault("PlayerName", defaultName)
	v.SetDefault("Wins", 0)
	v.SetDefault("Losses", 0)
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read profile: %w", err)
		}
		v.SetConfigFile(filepath.Join(dir, "profile.yaml"))
	}
	return &Profile{v: v}, nil
}

func (p *Profile) Name() string {
	name := p.v.GetString("PlayerName")
	if name == "" {
		return defaultName
	}
	return name
}

func (p *Profile) SetName(name string) error {
	if name == "" {
		name = defaultName
	}
	p.v.Set("PlayerName", name)
	return p.save()
}

func (p *Profile) Wins() int {
	return p.v.GetInt("Wins")
}

func (p *Profile) Losses() int {
	return p.v.GetInt("Losses")
}

func (p *Profile) RecordWin() error {
	p.v.Set("Wins", p.Wins()+1)
	return p.save()
}

func (p *Profile) RecordLoss() error {
	p.v.Set("Losses", p.Losses()+1)
	return p.save()
}

// Level grows one step per three wins, never below 1.
func (p *Profile) Level() int {
	return 1 + p.Wins()/3
}

func (p *Profile) save() error {
	if err := p.v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}
