// Package config loads bot configuration from the process environment,
// optionally seeded from a .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"telegram-deepseek-bot/internal/deepseek"
	"telegram-deepseek-bot/internal/logging"
)

// Config holds everything needed to run the bot.
type Config struct {
	// Tokens are the Telegram bot tokens. One poller is started per token.
	Tokens []string
	// DeepSeekKey authenticates against the DeepSeek API.
	DeepSeekKey string
	// DeepSeekBaseURL points the OpenAI-compatible client at DeepSeek.
	DeepSeekBaseURL string
	// Model is the chat completion model name.
	Model string
	// DBPath is the bolt database file for conversation history.
	DBPath string
}

// Load reads a .env file if present and assembles the configuration from
// environment variables. TG_TOKEN_1 and DEEPSEEK_API_KEY are required;
// TG_TOKEN_2 adds a second bot sharing the same handlers.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		logging.Log.Debug().Msg("no .env file found, using process environment")
	}

	cfg := &Config{
		DeepSeekKey:     os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekBaseURL: envDefault("DEEPSEEK_BASE_URL", deepseek.DefaultBaseURL),
		Model:           envDefault("DEEPSEEK_MODEL", deepseek.DefaultModel),
		DBPath:          envDefault("BOT_DB", "bot.db"),
	}
	for _, name := range []string{"TG_TOKEN_1", "TG_TOKEN_2"} {
		if tok := strings.TrimSpace(os.Getenv(name)); tok != "" {
			cfg.Tokens = append(cfg.Tokens, tok)
		}
	}

	var missing []string
	if len(cfg.Tokens) == 0 {
		missing = append(missing, "TG_TOKEN_1")
	}
	if cfg.DeepSeekKey == "" {
		missing = append(missing, "DEEPSEEK_API_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func envDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
