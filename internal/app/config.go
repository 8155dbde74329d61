package app

import (
	"errors"
	"strings"

	"github.com/caarlos0/env/v11"
)

// runConfig is the environment-driven configuration of the run command.
// Flags override the environment; the environment overrides defaults.
type runConfig struct {
	Token       string `env:"PESTER_TOKEN"`
	LegacyToken string `env:"DISCORD_TOKEN"`

	StateFile string `env:"PESTER_STATE_FILE" envDefault:"./state.json"`
	LogLevel  string `env:"PESTER_LOG_LEVEL" envDefault:"info"`
	PIDFile   string `env:"PESTER_PID_FILE"`
	OpsAddr   string `env:"PESTER_OPS_ADDR"`
	Watch     bool   `env:"PESTER_WATCH"`

	TracingEndpoint string `env:"PESTER_TRACING_ENDPOINT"`
	TracingInsecure bool   `env:"PESTER_TRACING_INSECURE"`
}

func loadRunConfig() (runConfig, error) {
	cfg, err := env.ParseAs[runConfig]()
	if err != nil {
		return runConfig{}, err
	}
	return cfg, nil
}

// resolveToken returns the bot token, preferring PESTER_TOKEN over the
// legacy DISCORD_TOKEN name.
func (c runConfig) resolveToken() (string, error) {
	if token := strings.TrimSpace(c.Token); token != "" {
		return token, nil
	}
	if token := strings.TrimSpace(c.LegacyToken); token != "" {
		return token, nil
	}
	return "", errors.New("no bot token configured (set PESTER_TOKEN)")
}
