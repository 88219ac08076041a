package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/onfelt/holdemd/internal/game"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerSettings
	Escrow EscrowSettings
	Tables []TableBlock
}

// fileConfig is the HCL shape: the server and escrow blocks are optional,
// a file may hold nothing but table definitions.
type fileConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Escrow *EscrowSettings `hcl:"escrow,block"`
	Tables []TableBlock    `hcl:"table,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
	DBPath   string `hcl:"db_path,optional"`
	Seed     int64  `hcl:"seed,optional"`
}

// EscrowSettings configures the escrow integration. With an empty auth URL
// the server runs in dev mode: tokens are wallet addresses and chips live in
// an in-memory vault.
type EscrowSettings struct {
	AuthURL     string `hcl:"auth_url,optional"`
	AdminSecret string `hcl:"admin_secret,optional"`
	DevFunding  int64  `hcl:"dev_funding,optional"`
}

// TableBlock defines one table.
type TableBlock struct {
	Name       string `hcl:"name,label"`
	SmallBlind int64  `hcl:"small_blind"`
	BigBlind   int64  `hcl:"big_blind"`
	BuyInMin   int64  `hcl:"buy_in_min,optional"`
	BuyInMax   int64  `hcl:"buy_in_max,optional"`
	MaxSeats   int    `hcl:"max_seats,optional"`
	MinSeats   int    `hcl:"min_seats,optional"`
	TurnTime   int    `hcl:"turn_time_seconds,optional"`
	DealMode   string `hcl:"deal_mode,optional"` // "local" or "mental-poker"
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Tables: []TableBlock{
			{
				Name:       "main",
				SmallBlind: 1,
				BigBlind:   2,
				MaxSeats:   6,
			},
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to defaults
// when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		cfg := DefaultConfig()
		applyDefaults(cfg)
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Config{Tables: fc.Tables}
	if fc.Server != nil {
		cfg.Server = *fc.Server
	}
	if fc.Escrow != nil {
		cfg.Escrow = *fc.Escrow
	}

	applyDefaults(&cfg)
	for i := range cfg.Tables {
		if _, err := cfg.Tables[i].GameConfig(); err != nil {
			return nil, fmt.Errorf("table %q: %w", cfg.Tables[i].Name, err)
		}
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	for i := range cfg.Tables {
		t := &cfg.Tables[i]
		if t.MaxSeats == 0 {
			t.MaxSeats = 6
		}
		if t.MinSeats == 0 {
			t.MinSeats = 2
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 50
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 500
		}
		if t.TurnTime == 0 {
			t.TurnTime = 30
		}
		if t.DealMode == "" {
			t.DealMode = "local"
		}
	}
}

// GameConfig converts the HCL block into the engine's table configuration.
func (t TableBlock) GameConfig() (game.TableConfig, error) {
	var mode game.DealMode
	switch t.DealMode {
	case "", "local":
		mode = game.DealLocal
	case "mental-poker":
		mode = game.DealMentalPoker
	default:
		return game.TableConfig{}, fmt.Errorf("unknown deal_mode %q", t.DealMode)
	}
	cfg := game.TableConfig{
		ID:         t.Name,
		Name:       t.Name,
		SmallBlind: t.SmallBlind,
		BigBlind:   t.BigBlind,
		MinBuyIn:   t.BuyInMin,
		MaxBuyIn:   t.BuyInMax,
		MaxSeats:   t.MaxSeats,
		MinSeats:   t.MinSeats,
		TurnTime:   time.Duration(t.TurnTime) * time.Second,
		Mode:       mode,
	}
	if err := cfg.Validate(); err != nil {
		return game.TableConfig{}, err
	}
	return cfg, nil
}
