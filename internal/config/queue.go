package config

import (
	"fmt"
	"time"
)

const (
	XcmOutboundQueueName = "xcm_outbound_queue"
	XcmResponseQueueName = "xcm_response_queue"
	TimeUnitQueueName    = "time_unit_queue"
	VaultEventQueueName  = "vault_event_queue"
)

type QueueConfig struct {
	QueueUser     string `mapstructure:"queue_user"`
	QueuePassword string `mapstructure:"queue_password"`
	Url           string `mapstructure:"url"`
	// seconds
	QueueProcessingTimeout int `mapstructure:"processing_timeout"`
	// attempts before a message is parked in unprocessable_messages
	MaxRetryAttempts int32         `mapstructure:"max_retry_attempts"`
	SendRetryDelay   time.Duration `mapstructure:"send_retry_delay"`
	SendAttempts     uint          `mapstructure:"send_attempts"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.QueueUser == "" {
		return fmt.Errorf("missing queue user")
	}

	if cfg.QueuePassword == "" {
		return fmt.Errorf("missing queue password")
	}

	if cfg.Url == "" {
		return fmt.Errorf("missing queue url")
	}

	if cfg.QueueProcessingTimeout <= 0 {
		return fmt.Errorf("invalid queue processing timeout")
	}

	if cfg.MaxRetryAttempts <= 0 {
		return fmt.Errorf("max retry attempts must be positive")
	}

	if cfg.SendAttempts == 0 {
		return fmt.Errorf("send attempts must be positive")
	}

	if cfg.SendRetryDelay < 0 {
		return fmt.Errorf("send retry delay cannot be negative")
	}

	return nil
}

func (cfg *QueueConfig) ProcessingTimeout() time.Duration {
	return time.Duration(cfg.QueueProcessingTimeout) * time.Second
}
