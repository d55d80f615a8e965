package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SEASHAIL"

// Config contains the runtime parameters read from the environment.  It is
// loaded once at startup and passed down explicitly.
type Config struct {
	DataDir       string        `envconfig:"DATA_DIR"`
	Port          string        `envconfig:"PORT" default:"8080"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON       bool          `envconfig:"LOG_JSON" default:"false"`
	SolanaRPCURL  string        `envconfig:"SOLANA_RPC_URL" default:"https://api.mainnet-beta.solana.com"`
	USDCMint      string        `envconfig:"SOLANA_USDC_MINT"`
	CoinGeckoURL  string        `envconfig:"COINGECKO_URL" default:"https://api.coingecko.com/api/v3"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	ElicitTimeout time.Duration `envconfig:"ELICIT_TIMEOUT" default:"5m"`
	LockTimeout   time.Duration `envconfig:"LOCK_TIMEOUT" default:"10s"`
}

// Load reads the configuration from SEASHAIL_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".seashail")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.ElicitTimeout <= 0 {
		return nil, fmt.Errorf("ELICIT_TIMEOUT must be positive")
	}
	return cfg, nil
}

// DocumentPath returns the location of config.toml inside the data dir.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.DataDir, DocumentName)
}
