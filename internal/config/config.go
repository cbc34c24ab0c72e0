package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
// The two secrets are required; everything else has a sensible default.
type Config struct {
	TelegramToken    string        `envconfig:"TELEGRAM_TOKEN" required:"true"`
	OpenRouterAPIKey string        `envconfig:"OPENROUTER_API_KEY" required:"true"`
	OpenRouterURL    string        `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	Model            string        `envconfig:"MODEL" default:"gpt-4o-mini"`
	UsersFile        string        `envconfig:"USERS_FILE" default:"./data/users.json"`
	Timezone         string        `envconfig:"TZ_NAME" default:"America/Lima"`
	FollowupInterval time.Duration `envconfig:"FOLLOWUP_INTERVAL" default:"10m"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
