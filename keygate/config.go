package keygate

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// LoadConfig reads the TOML config at path and applies environment
// overrides for values that should not live in the file (bot token,
// operator id).
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}

	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if admin := os.Getenv("ADMIN_ID"); admin != "" {
		id, err := strconv.ParseInt(admin, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_ID: %w", err)
		}
		cfg.Bot.AdminID = id
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Health.Port = p
	}

	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is not set")
	}
	if cfg.Bot.AdminID == 0 && cfg.Bot.AdminUsername == "" {
		return nil, fmt.Errorf("no operator configured: set bot.admin_id or bot.admin_username")
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 5000
	}
	if _, err := cfg.Log.Level.slogLevel(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LogLevel is the level name from the config file ("debug", "info",
// "warn", "error"). Kept as a string through TOML decoding and
// converted explicitly; empty means info.
type LogLevel string

func (l LogLevel) slogLevel() (slog.Level, error) {
	if l == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(l)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", string(l), err)
	}
	return level, nil
}

// Slog converts the configured name to a slog.Level. Unknown names are
// rejected by LoadConfig, so conversion here cannot fail.
func (l LogLevel) Slog() slog.Level {
	level, err := l.slogLevel()
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

type Config struct {
	Log    LogConfig    `toml:"log"`
	Bot    BotConfig    `toml:"bot"`
	DB     DBConfig     `toml:"db"`
	Health HealthConfig `toml:"health"`
}

type BotConfig struct {
	Token string `toml:"token"`
	// AdminID is the operator's Telegram user id. AdminUsername is a
	// fallback identity check for the same operator.
	AdminID       int64  `toml:"admin_id"`
	AdminUsername string `toml:"admin_username"`
}

type LogConfig struct {
	Level     LogLevel `toml:"level"`
	AddSource bool     `toml:"add_source"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type HealthConfig struct {
	Port int `toml:"port"`
}
