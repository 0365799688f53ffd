package config

import (
	"fmt"
	"os"
	"time"

	"RelayScope/internal/model"

	"gopkg.in/yaml.v3"
)

// MonitorConfig holds the connection-monitor behaviour settings.
type MonitorConfig struct {
	Order            []string          `yaml:"order"`             // up to 3 sort attribute names
	ResolveApps      bool              `yaml:"resolve_apps"`      // resolve applications behind socks/hidden/control ports
	ShowRawAddresses bool              `yaml:"show_raw_addresses"`
	UpdateInterval   string            `yaml:"update_interval"`   // e.g. "5s"
	CategoryColors   map[string]string `yaml:"category_colors"`   // category name -> color name
	Preseed          string            `yaml:"preseed"`           // optional "cc=N,cc=N" client locale report
}

// RelayConfig describes the monitored relay: its listeners, hidden services,
// exit policy, and traffic policy.
type RelayConfig struct {
	ORPorts        []uint16            `yaml:"or_ports"`
	DirPorts       []uint16            `yaml:"dir_ports"`
	SocksPorts     []uint16            `yaml:"socks_ports"`
	ControlPorts   []uint16            `yaml:"control_ports"`
	HiddenServices map[string][]uint16 `yaml:"hidden_services"`
	ExitPolicy     []string            `yaml:"exit_policy"` // ordered accept/reject rules
	AllowInbound   bool                `yaml:"allow_inbound"`
	AllowOutbound  bool                `yaml:"allow_outbound"`
}

// ResolverConfig selects the process whose connections are resolved.
type ResolverConfig struct {
	PID      int    `yaml:"pid"`       // 0 resolves every process
	ProcRoot string `yaml:"proc_root"` // defaults to /proc
	Interval string `yaml:"interval"`  // resolution cadence, e.g. "5s"
}

// DirectoryConfig locates the consensus cache file.
type DirectoryConfig struct {
	CachePath string `yaml:"cache_path"`
}

// GeoIPConfig locates the MaxMind country database.
type GeoIPConfig struct {
	Database string `yaml:"database"`
}

// APIConfig holds the status API settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// EventsConfig holds the optional NATS cycle-summary publisher settings.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Monitor   MonitorConfig   `yaml:"monitor"`
	Relay     RelayConfig     `yaml:"relay"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Directory DirectoryConfig `yaml:"directory"`
	GeoIP     GeoIPConfig     `yaml:"geoip"`
	API       APIConfig       `yaml:"api"`
	Events    EventsConfig    `yaml:"events"`
}

// DefaultOrder is the sort order used when the config names none.
var DefaultOrder = []model.SortAttr{model.SortByCategory, model.SortByIPAddress, model.SortByUptime}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if _, err := cfg.SortOrder(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SortOrder parses and validates the configured ordering, falling back to
// DefaultOrder when none is configured. At most three attributes are used;
// extras are an error rather than silently dropped.
func (c *Config) SortOrder() ([]model.SortAttr, error) {
	if len(c.Monitor.Order) == 0 {
		return append([]model.SortAttr(nil), DefaultOrder...), nil
	}
	if len(c.Monitor.Order) > 3 {
		return nil, fmt.Errorf("monitor.order lists %d attributes, at most 3 are supported", len(c.Monitor.Order))
	}

	order := make([]model.SortAttr, 0, len(c.Monitor.Order))
	for _, name := range c.Monitor.Order {
		attr, err := model.ParseSortAttr(name)
		if err != nil {
			return nil, fmt.Errorf("invalid monitor.order: %w", err)
		}
		order = append(order, attr)
	}
	return order, nil
}

// UpdateInterval parses monitor.update_interval, defaulting to 5s.
func (c *Config) UpdateInterval() (time.Duration, error) {
	if c.Monitor.UpdateInterval == "" {
		return 5 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Monitor.UpdateInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid monitor.update_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("monitor.update_interval must be positive")
	}
	return d, nil
}

// ResolverInterval parses resolver.interval, defaulting to 5s.
func (c *Config) ResolverInterval() (time.Duration, error) {
	if c.Resolver.Interval == "" {
		return 5 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Resolver.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid resolver.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("resolver.interval must be positive")
	}
	return d, nil
}
