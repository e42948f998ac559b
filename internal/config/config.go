// Package config loads jsonview settings.
//
// Values come, lowest precedence first, from Default, the TOML config file,
// JSONVIEW_* environment variables (dots become underscores, so
// JSONVIEW_DAEMON_WATCH_DIR sets daemon.watch_dir) and bound command-line
// flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName names the config and data directories.
const AppName = "jsonview"

const (
	defaultConfigFileName = "config.toml"
	envPrefix             = "JSONVIEW"
)

var (
	// ErrConfigNotFound is returned when an explicitly given config file
	// does not exist.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrConfigExists is returned by WriteDefault when the file exists.
	ErrConfigExists = errors.New("config file already exists")
)

// Config holds every setting.
type Config struct {
	DBPath         string        `mapstructure:"db_path"`
	LogFile        string        `mapstructure:"log_file"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTitle   string        `mapstructure:"default_title"`
	ConfirmRemoval bool          `mapstructure:"confirm_removal"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	FetchRetries   int           `mapstructure:"fetch_retries"`
	Daemon         DaemonConfig  `mapstructure:"daemon"`

	// Path is the config file that was read, empty when none was.
	Path string `mapstructure:"-"`
}

// DaemonConfig holds the ingestion daemon settings.
type DaemonConfig struct {
	WatchDir      string        `mapstructure:"watch_dir"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
}

// Default returns the built-in settings.
func Default() *Config {
	data := DataDir()
	return &Config{
		DBPath:         filepath.Join(data, "library.db"),
		LogFile:        filepath.Join(data, "jsonview.log"),
		LogLevel:       "info",
		DefaultTitle:   "data",
		ConfirmRemoval: true,
		FetchTimeout:   30 * time.Second,
		FetchRetries:   2,
		Daemon: DaemonConfig{
			WatchDir:      filepath.Join(data, "inbox"),
			MetricsAddr:   "127.0.0.1:7474",
			FlushInterval: 2 * time.Second,
			BatchSize:     50,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/jsonview/config.toml, falling back
// to ~/.config/jsonview/config.toml.
func DefaultPath() (string, error) {
	dir, set := os.LookupEnv("XDG_CONFIG_HOME")
	if !set || dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName, defaultConfigFileName), nil
}

// DataDir returns $XDG_DATA_HOME/jsonview, falling back to
// ~/.local/share/jsonview, or the working directory when no home exists.
func DataDir() string {
	dir, set := os.LookupEnv("XDG_DATA_HOME")
	if !set || dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, AppName)
}

// FlagKeys maps config keys to the flag names bound to them when present
// in the flag set given to Load.
var FlagKeys = map[string]string{
	"db_path":               "db",
	"log_file":              "log-file",
	"log_level":             "log-level",
	"default_title":         "title",
	"confirm_removal":       "confirm",
	"fetch_timeout":         "timeout",
	"fetch_retries":         "retries",
	"daemon.watch_dir":      "watch-dir",
	"daemon.metrics_addr":   "metrics-addr",
	"daemon.flush_interval": "flush-interval",
	"daemon.batch_size":     "batch-size",
}

// Load reads the config at path, or at DefaultPath when path is empty.
// A missing default file is not an error; a missing explicit one is.
// Flags in flags that appear in FlagKeys and were set override the file.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		path = p
	}
	path = os.ExpandEnv(path)

	readPath := ""
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		readPath = path
	} else if explicit {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	if flags != nil {
		for key, name := range FlagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Path = readPath
	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.LogFile = expandHome(cfg.LogFile)
	cfg.Daemon.WatchDir = expandHome(cfg.Daemon.WatchDir)
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("default_title", d.DefaultTitle)
	v.SetDefault("confirm_removal", d.ConfirmRemoval)
	v.SetDefault("fetch_timeout", d.FetchTimeout)
	v.SetDefault("fetch_retries", d.FetchRetries)
	v.SetDefault("daemon.watch_dir", d.Daemon.WatchDir)
	v.SetDefault("daemon.metrics_addr", d.Daemon.MetricsAddr)
	v.SetDefault("daemon.flush_interval", d.Daemon.FlushInterval)
	v.SetDefault("daemon.batch_size", d.Daemon.BatchSize)
}

// fileConfig is the on-disk shape. Durations are written as strings such
// as "30s".
type fileConfig struct {
	DBPath         string     `toml:"db_path"`
	LogFile        string     `toml:"log_file"`
	LogLevel       string     `toml:"log_level"`
	DefaultTitle   string     `toml:"default_title"`
	ConfirmRemoval bool       `toml:"confirm_removal"`
	FetchTimeout   string     `toml:"fetch_timeout"`
	FetchRetries   int        `toml:"fetch_retries"`
	Daemon         fileDaemon `toml:"daemon"`
}

type fileDaemon struct {
	WatchDir      string `toml:"watch_dir"`
	MetricsAddr   string `toml:"metrics_addr"`
	FlushInterval string `toml:"flush_interval"`
	BatchSize     int    `toml:"batch_size"`
}

// WriteDefault writes cfg as TOML to path, creating parent directories.
// It refuses to replace an existing file unless force is set.
func WriteDefault(path string, cfg *Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config %s: %w", path, err)
	}
	defer f.Close()

	fc := fileConfig{
		DBPath:         cfg.DBPath,
		LogFile:        cfg.LogFile,
		LogLevel:       cfg.LogLevel,
		DefaultTitle:   cfg.DefaultTitle,
		ConfirmRemoval: cfg.ConfirmRemoval,
		FetchTimeout:   cfg.FetchTimeout.String(),
		FetchRetries:   cfg.FetchRetries,
		Daemon: fileDaemon{
			WatchDir:      cfg.Daemon.WatchDir,
			MetricsAddr:   cfg.Daemon.MetricsAddr,
			FlushInterval: cfg.Daemon.FlushInterval.String(),
			BatchSize:     cfg.Daemon.BatchSize,
		},
	}
	if err := toml.NewEncoder(f).Encode(fc); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
