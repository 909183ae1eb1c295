// Package config loads the mockhost configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddress  = "127.0.0.1:53500"
	DefaultMaxConnections = 1000
	DefaultProjectsDir    = "database/projects"
	DefaultLogLevel       = "info"
	DefaultMaxBodyBytes   = 10 << 20
)

// Config is the root of the configuration file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Projects ProjectsConfig `yaml:"projects"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	ListenAddress  string        `yaml:"listen_address"`
	MaxConnections int           `yaml:"max_connections"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	// Serialize handles one connection at a time. Off by default.
	Serialize bool `yaml:"serialize"`
}

type ProjectsConfig struct {
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type MetricsConfig struct {
	// ListenAddress serves /metrics when set.
	ListenAddress string `yaml:"listen_address"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:  DefaultListenAddress,
			MaxConnections: DefaultMaxConnections,
			MaxBodyBytes:   DefaultMaxBodyBytes,
		},
		Projects: ProjectsConfig{Dir: DefaultProjectsDir},
		Logging:  LoggingConfig{Level: DefaultLogLevel},
	}
}

// Load reads the YAML file at path on top of Default(). An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, c.Validate()
}

var (
	ErrNoListenAddress = errors.New("server.listen_address is required")
	ErrNoWorkers       = errors.New("server.max_connections must be greater than zero")
	ErrNoProjectsDir   = errors.New("projects.dir is required")
)

func (c *Config) Validate() error {
	var errs []error
	if c.Server.ListenAddress == "" {
		errs = append(errs, ErrNoListenAddress)
	}
	if c.Server.MaxConnections <= 0 {
		errs = append(errs, ErrNoWorkers)
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must not be negative, got %s", c.Server.ReadTimeout))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must not be negative, got %d", c.Server.MaxBodyBytes))
	}
	if c.Projects.Dir == "" {
		errs = append(errs, ErrNoProjectsDir)
	}
	return errors.Join(errs...)
}
