package keygate

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const validConfig = `
[log]
level = "info"

[bot]
token = "123:abc"
admin_id = 777

[db]
host = "localhost"
port = 5432
user = "postgres"
password = "postgres"
database = "keygate"
pool_size = 10

[health]
port = 8080
`

func TestLoadConfig(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_ID", "")
	t.Setenv("PORT", "")
	path := writeConfig(t, validConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, int64(777), cfg.Bot.AdminID)
	assert.Equal(t, "keygate", cfg.DB.Database)
	assert.Equal(t, 8080, cfg.Health.Port)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level.Slog())
}

func TestLoadConfig_LogLevels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"WARN", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := `
[log]
level = "` + tt.level + `"

[bot]
token = "123:abc"
admin_id = 777
`
			loaded, err := LoadConfig(writeConfig(t, cfg))
			require.NoError(t, err)
			assert.Equal(t, tt.want, loaded.Log.Level.Slog())
		})
	}
}

func TestLoadConfig_UnknownLogLevel(t *testing.T) {
	cfg := `
[log]
level = "loud"

[bot]
token = "123:abc"
admin_id = 777
`
	_, err := LoadConfig(writeConfig(t, cfg))
	assert.ErrorContains(t, err, "invalid log level")
}

func TestLogLevel_DefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, LogLevel("").Slog())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999:zzz")
	t.Setenv("ADMIN_ID", "111")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "999:zzz", cfg.Bot.Token)
	assert.Equal(t, int64(111), cfg.Bot.AdminID)
	assert.Equal(t, 9090, cfg.Health.Port)
}

func TestLoadConfig_MissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	cfg := `
[bot]
admin_id = 777
`
	_, err := LoadConfig(writeConfig(t, cfg))
	assert.Error(t, err)
}

func TestLoadConfig_NoOperator(t *testing.T) {
	t.Setenv("ADMIN_ID", "")
	cfg := `
[bot]
token = "123:abc"
`
	_, err := LoadConfig(writeConfig(t, cfg))
	assert.Error(t, err)
}

func TestLoadConfig_DefaultHealthPort(t *testing.T) {
	cfg := `
[bot]
token = "123:abc"
admin_username = "@op"
`
	loaded, err := LoadConfig(writeConfig(t, cfg))
	require.NoError(t, err)
	assert.Equal(t, 5000, loaded.Health.Port)
}

func TestBot_IsOperator(t *testing.T) {
	tests := []struct {
		name     string
		cfg      BotConfig
		userID   int64
		username string
		want     bool
	}{
		{name: "id match", cfg: BotConfig{AdminID: 7}, userID: 7, want: true},
		{name: "id mismatch", cfg: BotConfig{AdminID: 7}, userID: 8, want: false},
		{name: "username match", cfg: BotConfig{AdminUsername: "@Op"}, userID: 1, username: "op", want: true},
		{name: "username with at sign", cfg: BotConfig{AdminUsername: "op"}, userID: 1, username: "@OP", want: true},
		{name: "username mismatch", cfg: BotConfig{AdminUsername: "@op"}, userID: 1, username: "other", want: false},
		{name: "id beats username fallback", cfg: BotConfig{AdminID: 7, AdminUsername: "@op"}, userID: 7, username: "", want: true},
		{name: "no identity configured", cfg: BotConfig{}, userID: 7, username: "op", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(Config{Bot: tt.cfg}, "test")
			assert.Equal(t, tt.want, b.IsOperator(tt.userID, tt.username))
		})
	}
}
