// Package config loads the controller configuration from an optional YAML
// file, applies environment overrides and validates the result.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Account Account `yaml:"account"`
	Delays  Delays  `yaml:"delays"`
	MQTT    MQTT    `yaml:"mqtt"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

type Account struct {
	// Identity is the local account URI, used for self-call detection
	Identity string `yaml:"identity" env:"ACCOUNT_IDENTITY"`
	// Blocked lists rejected URIs; "@example.com" entries block a whole domain
	Blocked []string `yaml:"blocked" env:"ACCOUNT_BLOCKED" envSeparator:","`
	// SpeakerphoneDefault starts calls with the speakerphone on
	SpeakerphoneDefault bool `yaml:"speakerphone_default" env:"SPEAKERPHONE_DEFAULT"`
}

type Delays struct {
	Default           time.Duration `yaml:"-" env:"DELAY_DEFAULT"`
	CancelledIncoming time.Duration `yaml:"-" env:"DELAY_CANCELLED_INCOMING"`
	Hangup            time.Duration `yaml:"-" env:"DELAY_HANGUP"`
	ConferenceGrace   time.Duration `yaml:"-" env:"DELAY_CONFERENCE_GRACE"`
}

// UnmarshalYAML accepts Go duration strings ("6s", "10ms") and only touches
// the fields the document provides.
func (d *Delays) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Default           string `yaml:"default"`
		CancelledIncoming string `yaml:"cancelled_incoming"`
		Hangup            string `yaml:"hangup"`
		ConferenceGrace   string `yaml:"conference_grace"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	set := func(dst *time.Duration, s, name string) error {
		if s == "" {
			return nil
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("delays.%s: %w", name, err)
		}
		*dst = parsed
		return nil
	}

	if err := set(&d.Default, raw.Default, "default"); err != nil {
		return err
	}
	if err := set(&d.CancelledIncoming, raw.CancelledIncoming, "cancelled_incoming"); err != nil {
		return err
	}
	if err := set(&d.Hangup, raw.Hangup, "hangup"); err != nil {
		return err
	}
	return set(&d.ConferenceGrace, raw.ConferenceGrace, "conference_grace")
}

type MQTT struct {
	// Broker is empty when call history publishing is disabled
	Broker      string `yaml:"broker" env:"MQTT_BROKER"`
	ClientID    string `yaml:"client_id" env:"MQTT_CLIENT_ID"`
	TopicPrefix string `yaml:"topic_prefix" env:"MQTT_TOPIC_PREFIX"`
	QoS         byte   `yaml:"qos" env:"MQTT_QOS"`
}

// Load reads the YAML file at path when it exists, layers environment
// variables on top and validates. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Delays: Delays{
			Default:           5 * time.Second,
			CancelledIncoming: 10 * time.Millisecond,
			Hangup:            6 * time.Second,
			ConferenceGrace:   15 * time.Second,
		},
		MQTT: MQTT{
			ClientID:    "callcore",
			TopicPrefix: "callcore",
			QoS:         1,
		},
		LogLevel: "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Delays.Default <= 0 {
		return fmt.Errorf("delays.default must be positive, got %s", c.Delays.Default)
	}
	if c.Delays.CancelledIncoming <= 0 {
		return fmt.Errorf("delays.cancelled_incoming must be positive, got %s", c.Delays.CancelledIncoming)
	}
	if c.Delays.Hangup <= 0 {
		return fmt.Errorf("delays.hangup must be positive, got %s", c.Delays.Hangup)
	}
	if c.Delays.ConferenceGrace <= 0 {
		return fmt.Errorf("delays.conference_grace must be positive, got %s", c.Delays.ConferenceGrace)
	}
	if c.MQTT.Broker != "" {
		if c.MQTT.ClientID == "" {
			return fmt.Errorf("mqtt.client_id is required when mqtt.broker is set")
		}
		if c.MQTT.TopicPrefix == "" {
			return fmt.Errorf("mqtt.topic_prefix is required when mqtt.broker is set")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
	}
	return nil
}
