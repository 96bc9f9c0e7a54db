package minehye

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/minehye/minehye/database"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig         `toml:"log"`
	Bot    BotConfig         `toml:"bot"`
	DB     database.DBConfig `toml:"db"`
	Game   GameConfig        `toml:"game"`
	Spaces SpacesConfig      `toml:"spaces"`
	Mongo  MongoConfig       `toml:"mongo"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type GameConfig struct {
	// DebugTools gates the force-complete command and other shortcuts that
	// must never reach a production guild.
	DebugTools bool `toml:"debug_tools"`
}

// SpacesConfig configures the S3-compatible bucket expedition outcomes are
// archived to. Leave Bucket empty to disable archiving.
type SpacesConfig struct {
	Key    string `toml:"key"`
	Secret string `toml:"secret"`
	Region string `toml:"region"`
	Bucket string `toml:"bucket"`
}

// MongoConfig points at the legacy deployment for the one-shot hero import.
// Only used by the -migrate flag.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}
