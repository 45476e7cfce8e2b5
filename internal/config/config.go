// File: internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/berrythewa/gpsio-bridge/internal/types"
	"gopkg.in/yaml.v3"
)

// ConfigPaths holds all relevant paths for the application
type ConfigPaths struct {
	BaseDir      string // Base directory for config files
	ActiveConfig string // Path to the config file
	DataDir      string // Directory for application data
	DBFile       string // Path to the preference database
	LogDir       string // Directory for log files
	RunDir       string // Directory for the PID file and IPC socket
	PIDFile      string // Path to the daemon PID file
	SocketFile   string // Path to the IPC socket
}

// Config holds all application configuration
type Config struct {
	// Version of the browser extension this bridge stands in for;
	// compared against the host version by the status check
	ExtensionVersion string `json:"extension_version" yaml:"extension_version"`

	// Native host configuration
	Host HostConfig `json:"host" yaml:"host"`

	// Content bridge (page-facing websocket) configuration
	Bridge BridgeConfig `json:"bridge" yaml:"bridge"`

	// CLI to daemon IPC configuration
	IPC IPCConfig `json:"ipc" yaml:"ipc"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Logging configuration
	Log LogConfig `json:"log" yaml:"log"`

	// Relay configuration
	Relay RelayConfig `json:"relay" yaml:"relay"`

	// Host manifest registration
	Install InstallConfig `json:"install" yaml:"install"`

	// System paths, resolved at load time
	SystemPaths ConfigPaths `json:"-" yaml:"-"`
}

// HostConfig describes how to launch the native host
type HostConfig struct {
	Name string   `json:"name" yaml:"name"`
	Path string   `json:"path" yaml:"path"` // empty: resolved from the browser manifest
	Args []string `json:"args" yaml:"args"`
}

// BridgeConfig holds configuration for the page-facing server
type BridgeConfig struct {
	Listen         string   `json:"listen" yaml:"listen"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// IPCConfig holds configuration for the daemon socket
type IPCConfig struct {
	Socket string `json:"socket" yaml:"socket"`
}

// StorageConfig holds storage-related configuration
type StorageConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// LogConfig holds logging-related configuration
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // "json" or "console"
	File   string `json:"file" yaml:"file"`     // empty: stderr only
}

// RelayConfig holds native relay options
type RelayConfig struct {
	// Zero means requests wait for the host indefinitely
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// InstallConfig holds what the host manifests allow
type InstallConfig struct {
	AllowedOrigins    []string `json:"allowed_origins" yaml:"allowed_origins"`       // Chrome and Edge extension origins
	AllowedExtensions []string `json:"allowed_extensions" yaml:"allowed_extensions"` // Firefox extension ids
}

// GetConfigPaths returns the platform-specific configuration paths
func GetConfigPaths() (*ConfigPaths, error) {
	// First check environment variable for base directory
	baseDir := os.Getenv("GPSIO_CONFIG_DIR")
	if baseDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(configDir, platformDirName())
	}

	dataDir := os.Getenv("GPSIO_DATA_DIR")
	if dataDir == "" {
		var err error
		dataDir, err = defaultDataDir()
		if err != nil {
			return nil, err
		}
	}

	runDir := filepath.Join(dataDir, "run")
	return &ConfigPaths{
		BaseDir:      baseDir,
		ActiveConfig: filepath.Join(baseDir, "config.yaml"),
		DataDir:      dataDir,
		DBFile:       filepath.Join(dataDir, "gpsio.db"),
		LogDir:       filepath.Join(dataDir, "logs"),
		RunDir:       runDir,
		PIDFile:      filepath.Join(runDir, "gpsio.pid"),
		SocketFile:   filepath.Join(runDir, "gpsio.sock"),
	}, nil
}

// EnsureDirs creates the directories the daemon writes into
func (p *ConfigPaths) EnsureDirs() error {
	for _, dir := range []string{p.BaseDir, p.DataDir, p.LogDir, p.RunDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	paths, err := GetConfigPaths()
	if err != nil {
		// Fall back to the working directory
		paths = &ConfigPaths{
			BaseDir:      ".",
			ActiveConfig: "config.yaml",
			DataDir:      ".",
			DBFile:       "gpsio.db",
			LogDir:       "logs",
			RunDir:       "run",
			PIDFile:      filepath.Join("run", "gpsio.pid"),
			SocketFile:   filepath.Join("run", "gpsio.sock"),
		}
	}

	return &Config{
		ExtensionVersion: DefaultExtensionVersion,
		Host: HostConfig{
			Name: types.HostName,
		},
		Bridge: BridgeConfig{
			Listen: DefaultListen,
			AllowedOrigins: []string{
				"https://caltopo.com",
				"http://caltopo.com",
				"https://sartopo.com",
				"http://sartopo.com",
				"http://localhost:8080",
			},
		},
		IPC: IPCConfig{
			Socket: paths.SocketFile,
		},
		Storage: StorageConfig{
			DBPath: paths.DBFile,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Install: InstallConfig{
			AllowedOrigins: []string{
				"chrome-extension://cbpembjdolhcjepjgdkcflipfojbjall/", // Chrome Web Store
				"chrome-extension://gnonahdiojppiacfbalpgjddpkfepihk/", // Edge Add-ons
				"chrome-extension://afgcejeehpnhafgikkimogllebbgegck/",
				"chrome-extension://hoecjlpnaeogdncffnambjemmfcajmcc/",
			},
			AllowedExtensions: []string{
				"{5da30c55-01fd-4045-a0d2-41c47ebc8b83}", // AMO
				"gpsio@caltopo.com",
			},
		},
		SystemPaths: *paths,
	}
}

// Load loads the configuration from the specified file or creates default if not exists
func Load(configPath string) (*Config, error) {
	// If no config path provided, use default
	if configPath == "" {
		var err error
		configPath, err = GetActiveConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Create default config if it doesn't exist
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.SystemPaths.ActiveConfig = configPath

	// Override with environment variables
	overrideFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to the specified file
func (c *Config) Save(configPath string) error {
	// Ensure the directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	if c.Host.Name == "" {
		return errors.New("host.name is required")
	}
	if c.Bridge.Listen == "" {
		return errors.New("bridge.listen is required")
	}
	if c.Relay.RequestTimeout < 0 {
		return fmt.Errorf("relay.request_timeout must not be negative, got %s", c.Relay.RequestTimeout)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// GetActiveConfigPath returns the path to the config file in use
func GetActiveConfigPath() (string, error) {
	if path := os.Getenv("GPSIO_CONFIG"); path != "" {
		return path, nil
	}
	paths, err := GetConfigPaths()
	if err != nil {
		return "", err
	}
	return paths.ActiveConfig, nil
}

// overrideFromEnv overrides configuration values from environment variables
func overrideFromEnv(config *Config) {
	if val := os.Getenv("GPSIO_EXTENSION_VERSION"); val != "" {
		config.ExtensionVersion = val
	}

	// Host settings
	if val := os.Getenv("GPSIO_HOST_NAME"); val != "" {
		config.Host.Name = val
	}
	if val := os.Getenv("GPSIO_HOST_PATH"); val != "" {
		config.Host.Path = val
	}

	// Bridge settings
	if val := os.Getenv("GPSIO_BRIDGE_LISTEN"); val != "" {
		config.Bridge.Listen = val
	}
	if val := os.Getenv("GPSIO_ALLOWED_ORIGINS"); val != "" {
		config.Bridge.AllowedOrigins = splitList(val)
	}

	// Paths
	if val := os.Getenv("GPSIO_SOCKET"); val != "" {
		config.IPC.Socket = val
	}
	if val := os.Getenv("GPSIO_DB_PATH"); val != "" {
		config.Storage.DBPath = val
	}

	// Logging
	if val := os.Getenv("GPSIO_LOG_LEVEL"); val != "" {
		config.Log.Level = val
	}
	if val := os.Getenv("GPSIO_LOG_FORMAT"); val != "" {
		config.Log.Format = val
	}

	if val := os.Getenv("GPSIO_RELAY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Relay.RequestTimeout = d
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
