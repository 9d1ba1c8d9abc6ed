// Package config holds the file/env/flag configuration surface of the
// tagstream CLI.
package config

import "time"

type Config struct {
	DatabaseURL     string        `mapstructure:"database_url"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	HTTPAddr        string        `mapstructure:"http_addr"`
	Codec           string        `mapstructure:"codec"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	MaxBufferSize   int           `mapstructure:"max_buffer_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Journal         JournalConfig `mapstructure:"journal"`
	SSE             SSEConfig     `mapstructure:"sse"`
}

type JournalConfig struct {
	Table     string `mapstructure:"table"`
	BatchSize int    `mapstructure:"batch_size"`
}

type SSEConfig struct {
	Window            uint64        `mapstructure:"window"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}
