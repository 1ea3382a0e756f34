package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	MPD       MPDConfig       `yaml:"mpd"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Server    ServerConfig    `yaml:"server"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
}

type MPDConfig struct {
	Network  string `yaml:"network"` // "tcp" or "unix"
	Address  string `yaml:"address"` // host:port or socket path
	Password string `yaml:"password"`
}

type MonitorConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type BroadcastConfig struct {
	Throttle         time.Duration `yaml:"throttle"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	MaxConnections   int           `yaml:"max_connections"` // 0 = unlimited
}

const (
	DefaultMPDHost = "localhost"
	DefaultMPDPort = 6600
)

func defaultConfig() *Config {
	return &Config{
		MPD: MPDConfig{
			Network: "tcp",
			Address: net.JoinHostPort(DefaultMPDHost, strconv.Itoa(DefaultMPDPort)),
		},
		Monitor: MonitorConfig{
			PollInterval: time.Second,
		},
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Broadcast: BroadcastConfig{
			Throttle:         100 * time.Millisecond,
			SnapshotInterval: 5 * time.Second,
			MaxConnections:   64,
		},
	}
}

// Load reads the yaml file at path over the defaults. A missing file is not
// an error: the defaults are returned. MPD_HOST and MPD_PORT from the
// environment override the mpd section.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv follows the MPD client convention: MPD_HOST is
// "[password@]host", where a host starting with "/" or "@" is a socket.
func (c *Config) applyEnv(getenv func(string) string) error {
	host := getenv("MPD_HOST")
	port := getenv("MPD_PORT")
	if host == "" && port == "" {
		return nil
	}

	if host != "" {
		if pw, h, ok := strings.Cut(host, "@"); ok && pw != "" {
			c.MPD.Password = pw
			host = h
		}
	}

	if strings.HasPrefix(host, "/") || strings.HasPrefix(host, "@") {
		c.MPD.Network = "unix"
		c.MPD.Address = host
		return nil
	}

	curHost, curPort := DefaultMPDHost, strconv.Itoa(DefaultMPDPort)
	if c.MPD.Network == "tcp" {
		if h, p, err := net.SplitHostPort(c.MPD.Address); err == nil {
			curHost, curPort = h, p
		}
	}
	if host != "" {
		curHost = host
	}
	if port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid MPD_PORT %q", port)
		}
		curPort = port
	}
	c.MPD.Network = "tcp"
	c.MPD.Address = net.JoinHostPort(curHost, curPort)
	return nil
}

// OverrideMPD applies command-line overrides to the mpd section. host takes
// the same forms as MPD_HOST; empty host and zero port are ignored.
func (c *Config) OverrideMPD(host string, port int, password string) error {
	vars := map[string]string{"MPD_HOST": host}
	if port != 0 {
		vars["MPD_PORT"] = strconv.Itoa(port)
	}
	if err := c.applyEnv(func(k string) string { return vars[k] }); err != nil {
		return err
	}
	if password != "" {
		c.MPD.Password = password
	}
	return c.Validate()
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.MPD.Network {
	case "tcp", "unix":
	default:
		return fmt.Errorf("mpd.network must be tcp or unix, got %q", c.MPD.Network)
	}
	if c.MPD.Address == "" {
		return errors.New("mpd.address is empty")
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be positive, got %s", c.Monitor.PollInterval)
	}
	if c.Broadcast.Throttle <= 0 {
		return fmt.Errorf("broadcast.throttle must be positive, got %s", c.Broadcast.Throttle)
	}
	if c.Broadcast.SnapshotInterval <= 0 {
		return fmt.Errorf("broadcast.snapshot_interval must be positive, got %s", c.Broadcast.SnapshotInterval)
	}
	if c.Broadcast.MaxConnections < 0 {
		return fmt.Errorf("broadcast.max_connections must not be negative, got %d", c.Broadcast.MaxConnections)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
