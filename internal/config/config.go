package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Db      DbConfig      `mapstructure:"db"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Vault   VaultConfig   `mapstructure:"vault"`
	Staking StakingConfig `mapstructure:"staking"`
}

func (cfg *Config) Validate() error {
	if err := cfg.Server.Validate(); err != nil {
		return err
	}

	if err := cfg.Db.Validate(); err != nil {
		return err
	}

	if err := cfg.Metrics.Validate(); err != nil {
		return err
	}

	if err := cfg.Queue.Validate(); err != nil {
		return err
	}

	if err := cfg.Runtime.Validate(); err != nil {
		return err
	}

	if err := cfg.Vault.Validate(); err != nil {
		return err
	}

	if err := cfg.Staking.Validate(); err != nil {
		return err
	}

	// every staking agent must stake for a registered pool
	for _, agent := range cfg.Staking.Agents {
		if _, ok := cfg.Vault.Pool(agent.Symbol); !ok {
			return fmt.Errorf("staking agent %s has no vault pool", agent.Symbol)
		}
	}

	return nil
}

// New returns a fully parsed Config object from a given file directory
func New(cfgFile string) (*Config, error) {
	_, err := os.Stat(cfgFile)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(cfgFile)

	v.AutomaticEnv()
	/*
		Nested fields in yml are replaced by `_` and any `-` by `__` when overriding
		this config via env variables:
		1. `runtime.block-interval` can be overridden by `RUNTIME_BLOCK__INTERVAL`
		2. `db.db-name` can be overridden by `DB_DB__NAME`
		`-` is not supported in every terminal, hence the double underscore.
	*/
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "__"))

	err = v.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err = v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
