package config

import (
	"fmt"
	"os"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Config represents the complete acquisition service configuration
type Config struct {
	SystemDB     DBConfig      `yaml:"system_db"`
	HistoricalDB DBConfig      `yaml:"historical_db"`
	MQTTBroker   BrokerConfig  `yaml:"mqtt_broker"`
	Periods      PeriodsConfig `yaml:"periods"`
}

// DBConfig contains MySQL connection settings for one database
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DSN returns the driver connection string for this database
func (c *DBConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.DBName = c.Database
	return cfg.FormatDSN()
}

// BrokerConfig contains MQTT broker settings
type BrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PeriodsConfig contains the acquisition timing settings, in seconds
type PeriodsConfig struct {
	SaveToDatabase int `yaml:"save_to_database"`
}

// LoadConfig loads configuration from specified file
func LoadConfig(configPath string) (*Config, error) {
	// Try to find configuration file in different locations
	paths := []string{
		configPath,
		"/etc/modbus-acquisition/config.yaml",
		"/etc/modbus-acquisition.yaml",
		"./config.yaml",
	}

	var data []byte
	var err error
	var usedPath string

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("cannot read configuration file from any of the locations: %v. Last error: %w", paths, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing configuration from %s: %w", usedPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", usedPath, err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.SystemDB.validate("system_db"); err != nil {
		return err
	}
	if err := c.HistoricalDB.validate("historical_db"); err != nil {
		return err
	}
	if c.MQTTBroker.Host == "" {
		return fmt.Errorf("MQTT broker host is not specified")
	}
	if c.MQTTBroker.Port <= 0 {
		return fmt.Errorf("MQTT broker port must be positive")
	}
	if c.Periods.SaveToDatabase <= 0 {
		return fmt.Errorf("periods.save_to_database must be positive")
	}
	return nil
}

func (c *DBConfig) validate(name string) error {
	if c.Host == "" {
		return fmt.Errorf("%s host is not specified", name)
	}
	if c.Port <= 0 {
		return fmt.Errorf("%s port must be positive", name)
	}
	if c.User == "" {
		return fmt.Errorf("%s user is not specified", name)
	}
	if c.Database == "" {
		return fmt.Errorf("%s database is not specified", name)
	}
	return nil
}
