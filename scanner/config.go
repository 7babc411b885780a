package scanner

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultRefreshInterval = 300 * time.Second
)

type DatabaseConfig struct {
	// Driver is postgres (production) or sqlite (bench testing without a server).
	Driver string `yaml:"driver"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// PasswordEnv names an environment variable holding the password. It wins over Password.
	PasswordEnv    string        `yaml:"password_env"`
	SSLMode        string        `yaml:"sslmode"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// Path is the sqlite database file.
	Path string `yaml:"path"`
}

func (d DatabaseConfig) password() string {
	if d.PasswordEnv != "" {
		if v, ok := os.LookupEnv(d.PasswordEnv); ok {
			return v
		}
	}
	return d.Password
}

type TerminalConfig struct {
	// Hostname overrides the OS hostname as the terminal identifier.
	Hostname        string        `yaml:"hostname"`
	ProbeAddr       string        `yaml:"probe_addr"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// SoundFiles accepts either:
//  1. scalar form: a directory holding positive.wav / negative.wav (or .mp3)
//     sounds: /opt/scanner/sounds
//  2. mapping form with explicit files:
//     sounds:
//     positive: /opt/scanner/sounds/ding.wav
//     negative: /opt/scanner/sounds/buzz.wav
type SoundFiles struct {
	Dir      string
	Positive string
	Negative string
}

func (s *SoundFiles) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case yaml.ScalarNode:
		s.Dir = strings.TrimSpace(value.Value)
		return nil
	case yaml.MappingNode:
		var tmp struct {
			Dir      string `yaml:"dir"`
			Positive string `yaml:"positive"`
			Negative string `yaml:"negative"`
		}
		if err := value.Decode(&tmp); err != nil {
			return err
		}
		s.Dir = strings.TrimSpace(tmp.Dir)
		s.Positive = strings.TrimSpace(tmp.Positive)
		s.Negative = strings.TrimSpace(tmp.Negative)
		return nil
	default:
		return fmt.Errorf("sounds: expected directory or mapping, got yaml kind %d", value.Kind)
	}
}

type SoundConfig struct {
	// Enabled defaults to true; nil means unset.
	Enabled *bool      `yaml:"enabled"`
	Player  string     `yaml:"player"`
	Sounds  SoundFiles `yaml:"sounds"`
}

func (s SoundConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Output is stderr, stdout or a file path.
	Output string `yaml:"output"`
}

type MetricsConfig struct {
	// ListenAddr serves /metrics when set (e.g. ":9105").
	ListenAddr string `yaml:"listen_addr"`
}

type UIConfig struct {
	// Headless reads job numbers line by line from stdin instead of drawing the kiosk screen.
	Headless bool `yaml:"headless"`
}

// Config is the whole terminal configuration. It is built once at start-up
// and passed by value into each component.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Terminal TerminalConfig `yaml:"terminal"`
	Sound    SoundConfig    `yaml:"sound"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	UI       UIConfig       `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// WithDefaults returns a copy with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.Driver == DriverPostgres {
		if c.Database.Host == "" {
			c.Database.Host = "localhost"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.Name == "" {
			c.Database.Name = "postgres"
		}
		if c.Database.User == "" {
			c.Database.User = "postgres"
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
		if c.Database.ConnectTimeout == 0 {
			c.Database.ConnectTimeout = 10 * time.Second
		}
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "scanner.db"
	}
	if c.Terminal.ProbeAddr == "" {
		c.Terminal.ProbeAddr = DefaultProbeAddr
	}
	if c.Terminal.RefreshInterval == 0 {
		c.Terminal.RefreshInterval = DefaultRefreshInterval
	}
	if c.Sound.Player == "" {
		c.Sound.Player = "aplay"
	}
	if c.Sound.Sounds.Dir == "" && c.Sound.Sounds.Positive == "" && c.Sound.Sounds.Negative == "" {
		c.Sound.Sounds.Dir = "sounds"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return c
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if strings.TrimSpace(c.Database.Host) == "" {
			return fmt.Errorf("database.host is required for postgres")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("database.port out of range: %d", c.Database.Port)
		}
		if c.Database.ConnectTimeout < 0 {
			return fmt.Errorf("database.connect_timeout must not be negative")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Terminal.RefreshInterval <= 0 {
		return fmt.Errorf("terminal.refresh_interval must be positive")
	}
	return nil
}
