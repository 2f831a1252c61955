package config

import (
	"fmt"
	"net"
	"regexp"
)

var metricNamespaceRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MetricsConfig defines the server's metric configuration
type MetricsConfig struct {
	// IP of the prometheus server
	Host string `mapstructure:"host"`
	// Port of the prometheus server
	Port int `mapstructure:"port"`
	// Prefix of every exported metric, empty for none
	Namespace string `mapstructure:"namespace"`
}

func (cfg *MetricsConfig) Validate() error {
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return fmt.Errorf("metrics server port must be between 1024 and 65535 (inclusive)")
	}

	ip := net.ParseIP(cfg.Host)
	if ip == nil {
		return fmt.Errorf("invalid metrics server host: %v", cfg.Host)
	}

	if cfg.Namespace != "" && !metricNamespaceRegex.MatchString(cfg.Namespace) {
		return fmt.Errorf("invalid metrics namespace: %s", cfg.Namespace)
	}

	return nil
}

func (cfg *MetricsConfig) GetMetricsAddress() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
