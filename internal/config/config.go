// Package config loads fabricd's configuration via Viper, generalized from
// hive/config/config.go's TOML-file-plus-environment-variable pattern.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for fabricd.
type Config struct {
	Daemon DaemonConfig `mapstructure:"daemon"`
	NATS   NATSConfig   `mapstructure:"nats"`
	OVN    OVNConfig    `mapstructure:"ovn"`
	Store  StoreConfig  `mapstructure:"store"`

	BaseDir string `mapstructure:"base_dir"`
	Debug   bool   `mapstructure:"debug"`
}

// DaemonConfig holds the control-plane API listener configuration.
type DaemonConfig struct {
	Host string `mapstructure:"host"`
}

// NATSConfig holds the NATS connection configuration.
type NATSConfig struct {
	Host  string `mapstructure:"host"`
	Token string `mapstructure:"token"`
}

// OVNConfig holds the OVN Northbound/Southbound DB addresses.
type OVNConfig struct {
	NBAddr string `mapstructure:"nb_addr"`
	SBAddr string `mapstructure:"sb_addr"`
}

// StoreConfig holds VNI allocator window settings named after
// fabric/vpcstore.Store.VNIStep/MaxVNISearchWindows. No command copies
// them into a vpcstore.Store, so the Store's own defaults apply.
type StoreConfig struct {
	VNIStep             int64 `mapstructure:"vni_step"`
	MaxVNISearchWindows int   `mapstructure:"max_vni_search_windows"`
}

// LoadConfig loads the configuration from configPath (TOML) and environment
// variables prefixed FABRICD_, falling back to defaults when configPath is
// empty or missing.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetEnvPrefix("FABRICD")
	viper.AutomaticEnv()

	viper.SetDefault("daemon.host", "0.0.0.0:4430")
	viper.SetDefault("nats.host", "0.0.0.0:4222")
	viper.SetDefault("ovn.nb_addr", "unix:/var/run/ovn/ovnnb_db.sock")
	viper.SetDefault("store.vni_step", 2048)
	viper.SetDefault("store.max_vni_search_windows", 4096)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			viper.SetConfigFile(configPath)
			viper.SetConfigType("toml")
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		} else {
			fmt.Fprintf(os.Stderr, "Config file not found: %s, using environment variables and defaults\n", configPath)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.NATS.Host == "" {
		return nil, fmt.Errorf("NATS host is required")
	}

	return &cfg, nil
}
