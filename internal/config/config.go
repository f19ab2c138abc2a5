package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for autosaver.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"`
	Watch      WatchConfig      `toml:"watch"`
	Journal    JournalConfig    `toml:"journal"`
	Mirror     MirrorConfig     `toml:"mirror"`
	Encryption EncryptionConfig `toml:"encryption"`
	Metrics    MetricsConfig    `toml:"metrics"`
	TUI        TUIConfig        `toml:"tui"`
}

// WatchConfig is the persisted watch target and detector tuning.
type WatchConfig struct {
	SourcePath     string   `toml:"source_path"`
	DestinationDir string   `toml:"destination_dir,omitempty"` // defaults to <source_path>-backup
	PollInterval   Duration `toml:"poll_interval"`
	GraceWindow    Duration `toml:"grace_window"`
	TurnFormats    []string `toml:"turn_formats"` // tried in order; see internal/turn
}

// Destination returns the configured destination or the default one next to
// the source.
func (w WatchConfig) Destination() string {
	if w.DestinationDir != "" {
		return w.DestinationDir
	}
	return DefaultDestination(w.SourcePath)
}

// DefaultDestination is "<source>-backup".
func DefaultDestination(sourcePath string) string {
	if sourcePath == "" {
		return ""
	}
	return filepath.Clean(sourcePath) + "-backup"
}

// JournalConfig represents configuration for the activity journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// MirrorConfig represents an optional secondary copy of every new snapshot.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type MirrorConfig struct {
	Type    string `toml:"type"` // "" (disabled), "filesystem", "memory" or "s3"
	Name    string `toml:"name"`
	Encrypt bool   `toml:"encrypt"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores
}

// EncryptionConfig holds paths to the age key pair used for mirrored content.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// MetricsConfig controls the Prometheus endpoint served by the watch loop.
type MetricsConfig struct {
	Addr string `toml:"addr,omitempty"` // e.g. "127.0.0.1:9464"; empty disables
}

// TUIConfig holds interactive view settings that persist between sessions.
type TUIConfig struct {
	TimestampWidth int `toml:"timestamp_width"`
	TurnWidth      int `toml:"turn_width"`
	LabelWidth     int `toml:"label_width"`
}

// Duration is a time.Duration written as a string such as "1s" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// NewConfig creates a new Config with default paths under baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Watch: WatchConfig{
			PollInterval: Duration{time.Second},
			TurnFormats:  []string{"civ-v2", "civ-v1"},
		},
		Journal: JournalConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "autosaver.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "autosaver.key"),
		},
		TUI: TUIConfig{
			TimestampWidth: 21,
			TurnWidth:      8,
			LabelWidth:     40,
		},
	}
}

// Validate checks the tagged unions and durations.
func (c *Config) Validate() error {
	if c.Watch.PollInterval.Duration < 0 {
		return fmt.Errorf("watch.poll_interval must not be negative")
	}
	if c.Watch.GraceWindow.Duration < 0 {
		return fmt.Errorf("watch.grace_window must not be negative")
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DataDir == "" {
			return fmt.Errorf("journal.data_dir is required for type sqlite")
		}
	case "memory", "none", "":
	default:
		return fmt.Errorf("unknown journal type: %q", c.Journal.Type)
	}
	switch c.Mirror.Type {
	case "":
	case "memory":
	case "filesystem":
		if c.Mirror.FSRoot == "" {
			return fmt.Errorf("mirror.fs_root is required for type filesystem")
		}
	case "s3":
		if c.Mirror.S3Bucket == "" {
			return fmt.Errorf("mirror.s3_bucket is required for type s3")
		}
	default:
		return fmt.Errorf("unknown mirror type: %q", c.Mirror.Type)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Save replaces the config file at path. The new content is written to a temp
// file first so a crash never leaves a truncated config.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	m := &Manager{}
	if err := m.Write(tmp, cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := Save(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
