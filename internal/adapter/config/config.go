// Package config provides configuration management for the SCADA gateway.
// It supports environment variables, config files (YAML) and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway process.
type Config struct {
	// Environment is the deployment environment (development, staging, production)
	Environment string `mapstructure:"environment"`

	// ServersConfigPath is the path to the declarative server/tag file
	ServersConfigPath string `mapstructure:"servers_config_path"`

	// HTTP server configuration
	HTTP HTTPConfig `mapstructure:"http"`

	// MQTT egress configuration
	MQTT MQTTConfig `mapstructure:"mqtt"`

	// OPC UA client configuration
	OPCUA OPCUAConfig `mapstructure:"opcua"`

	// Polling configuration
	Polling PollingConfig `mapstructure:"polling"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// MQTTConfig holds MQTT publisher configuration. Publishing is optional:
// with Enabled false the gateway only keeps the in-process value registry.
type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BrokerURL      string        `mapstructure:"broker_url"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	TopicPrefix    string        `mapstructure:"topic_prefix"`
	QoS            byte          `mapstructure:"qos"`
	KeepAlive      time.Duration `mapstructure:"keep_alive"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// OPCUAConfig holds OPC UA client configuration.
type OPCUAConfig struct {
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	SessionTimeout  time.Duration `mapstructure:"session_timeout"`
	ApplicationName string        `mapstructure:"application_name"`
	ApplicationURI  string        `mapstructure:"application_uri"`
	// Circuit breaker for the shared wire read
	CBMaxRequests      uint32        `mapstructure:"cb_max_requests"`
	CBInterval         time.Duration `mapstructure:"cb_interval"`
	CBTimeout          time.Duration `mapstructure:"cb_timeout"`
	CBFailureThreshold uint32        `mapstructure:"cb_failure_threshold"`
}

// PollingConfig holds polling service configuration.
type PollingConfig struct {
	DefaultInterval time.Duration `mapstructure:"default_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	Output     string `mapstructure:"output"` // stdout, stderr, or file path
	TimeFormat string `mapstructure:"time_format"`
}

// Load loads configuration from files and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/scada-gateway")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("servers_config_path", "./config/servers.yaml")

	// HTTP
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	// MQTT
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker_url", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "scada-gateway")
	v.SetDefault("mqtt.topic_prefix", "scada")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.keep_alive", 30*time.Second)
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)
	v.SetDefault("mqtt.publish_timeout", 5*time.Second)

	// OPC UA
	v.SetDefault("opcua.connect_timeout", 15*time.Second)
	v.SetDefault("opcua.request_timeout", 5*time.Second)
	v.SetDefault("opcua.session_timeout", 30*time.Minute)
	v.SetDefault("opcua.application_name", "SCADA Gateway")
	v.SetDefault("opcua.application_uri", "urn:scada:gateway")
	v.SetDefault("opcua.cb_max_requests", 3)
	v.SetDefault("opcua.cb_interval", 10*time.Second)
	v.SetDefault("opcua.cb_timeout", 30*time.Second)
	v.SetDefault("opcua.cb_failure_threshold", 5)

	// Polling
	v.SetDefault("polling.default_interval", 1*time.Second)
	v.SetDefault("polling.shutdown_timeout", 5*time.Second)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)
}

// bindEnvVars binds environment variables to config keys.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("environment", "ENVIRONMENT")
	_ = v.BindEnv("servers_config_path", "SERVERS_CONFIG_PATH")

	_ = v.BindEnv("http.port", "HTTP_PORT")

	_ = v.BindEnv("mqtt.enabled", "MQTT_ENABLED")
	_ = v.BindEnv("mqtt.broker_url", "MQTT_BROKER_URL")
	_ = v.BindEnv("mqtt.username", "MQTT_USERNAME")
	_ = v.BindEnv("mqtt.password", "MQTT_PASSWORD")
	_ = v.BindEnv("mqtt.client_id", "MQTT_CLIENT_ID")

	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.MQTT.Enabled && c.MQTT.BrokerURL == "" {
		return fmt.Errorf("MQTT broker URL is required when MQTT is enabled")
	}
	if c.Polling.ShutdownTimeout <= 0 {
		return fmt.Errorf("polling shutdown timeout must be positive")
	}
	return nil
}
