package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Govee    GoveeConfig    `yaml:"govee"`
	Settings SettingsConfig `yaml:"settings"`
	Server   ServerConfig   `yaml:"server"`
	Mirror   MirrorConfig   `yaml:"mirror"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Log      LogConfig      `yaml:"log"`
}

type GoveeConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type SettingsConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	ControlRate   int    `yaml:"control_rate"`
	ControlWindow string `yaml:"control_window"`
}

type MirrorConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path, expanding environment variables first. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Govee.BaseURL == "" {
		c.Govee.BaseURL = "https://openapi.api.govee.com"
	}
	if c.Govee.Timeout == "" {
		c.Govee.Timeout = "10s"
	}
	if c.Settings.Backend == "" {
		c.Settings.Backend = "file"
	}
	if c.Settings.Path == "" {
		c.Settings.Path = defaultSettingsPath(c.Settings.Backend)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8787"
	}
	if c.Server.ControlRate == 0 {
		c.Server.ControlRate = 30
	}
	if c.Server.ControlWindow == "" {
		c.Server.ControlWindow = "1m"
	}
	if c.Mirror.Interval == "" {
		c.Mirror.Interval = "5m"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "govee-bar"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "govee"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	for name, v := range map[string]string{
		"govee.timeout":         c.Govee.Timeout,
		"server.control_window": c.Server.ControlWindow,
		"mirror.interval":       c.Mirror.Interval,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt.qos %d: must be 0, 1 or 2", c.MQTT.QoS)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		return fmt.Errorf("influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}
	return nil
}

// Duration parses a validated duration field.
func Duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}

func defaultSettingsPath(backend string) string {
	name := "settings.yaml"
	if backend == "sqlite" {
		name = "settings.db"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "govee-bar", name)
}
