package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SerialConfig is the board link configuration.
type SerialConfig struct {
	Device      string        `mapstructure:"device"`
	BaudRate    int           `mapstructure:"baudRate"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"maxAttempts"`
	RetryDelay  time.Duration `mapstructure:"retryDelay"`
}

// MQTTConfig is the platform bridge configuration.
type MQTTConfig struct {
	Enable         bool          `mapstructure:"enable"`
	BrokerURL      string        `mapstructure:"brokerUrl"`
	ClientID       string        `mapstructure:"clientId"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	DeviceIdx      string        `mapstructure:"deviceIdx"`
	DivisionIdx    string        `mapstructure:"divisionIdx"`
	HealthInterval time.Duration `mapstructure:"healthInterval"`
}

// LumberjackConfig is the log rotation configuration.
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig selects level, encoder, and rotation.
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig exposes Prometheus metrics over HTTP.
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Addr   string `mapstructure:"addr"`
	Path   string `mapstructure:"path"`
}

// Config is the daemon's top-level configuration.
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoadConfig reads a YAML/TOML/JSON file plus IOBOARD_-prefixed
// environment overrides. A missing file is allowed; defaults and the
// environment then carry the configuration.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("ioboardd")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("IOBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.device", "/dev/ttyUSB0")
	v.SetDefault("serial.baudRate", 38400)
	v.SetDefault("serial.timeout", "1s")
	v.SetDefault("serial.maxAttempts", 3)
	v.SetDefault("serial.retryDelay", "100ms")

	v.SetDefault("mqtt.enable", true)
	v.SetDefault("mqtt.brokerUrl", "tcp://127.0.0.1:1883")
	v.SetDefault("mqtt.deviceIdx", "DE0001")
	v.SetDefault("mqtt.healthInterval", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/ioboardd.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.addr", ":9102")
	v.SetDefault("metrics.path", "/metrics")
}
