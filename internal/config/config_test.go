package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := NewConfig("/home/user/.local/share/autosaver")
	original.Watch.SourcePath = "/games/saves/auto.sav"
	original.Watch.GraceWindow = Duration{30 * time.Second}
	original.Mirror = MirrorConfig{Type: "s3", Name: "offsite", Encrypt: true, S3Bucket: "saves", S3Prefix: "pc/", S3Region: "eu-west-1"}
	original.Metrics.Addr = "127.0.0.1:9464"

	var buf bytes.Buffer
	m := &Manager{}
	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), `poll_interval = "1s"`) {
		t.Errorf("durations should be written as strings:\n%s", buf.String())
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(got, original) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, original)
	}
}

func TestManager_Read_Durations(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", input: `poll_interval = "2s"`, want: 2 * time.Second},
		{name: "milliseconds", input: `poll_interval = "500ms"`, want: 500 * time.Millisecond},
		{name: "garbage", input: `poll_interval = "soon"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := (&Manager{}).Read(strings.NewReader("[watch]\n" + tt.input + "\n"))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if cfg.Watch.PollInterval.Duration != tt.want {
				t.Errorf("PollInterval = %v, want %v", cfg.Watch.PollInterval, tt.want)
			}
		})
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/autosaver")

	if cfg.LogDir != "/data/autosaver/log" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Journal.DataDir != "/data/autosaver/db" {
		t.Errorf("Journal.DataDir = %q", cfg.Journal.DataDir)
	}
	if cfg.Encryption.PrivateKeyPath != "/data/autosaver/keys/autosaver.key" {
		t.Errorf("Encryption.PrivateKeyPath = %q", cfg.Encryption.PrivateKeyPath)
	}
	if cfg.Watch.PollInterval.Duration != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.Watch.PollInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestWatchConfig_Destination(t *testing.T) {
	tests := []struct {
		name  string
		watch WatchConfig
		want  string
	}{
		{name: "explicit", watch: WatchConfig{SourcePath: "/s/game.sav", DestinationDir: "/b"}, want: "/b"},
		{name: "default", watch: WatchConfig{SourcePath: "/s/game.sav"}, want: "/s/game.sav-backup"},
		{name: "unset", watch: WatchConfig{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.watch.Destination(); got != tt.want {
				t.Errorf("Destination() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "unknown journal", modify: func(c *Config) { c.Journal.Type = "postgres" }},
		{name: "sqlite without dir", modify: func(c *Config) { c.Journal.DataDir = "" }},
		{name: "unknown mirror", modify: func(c *Config) { c.Mirror.Type = "ftp" }},
		{name: "filesystem mirror without root", modify: func(c *Config) { c.Mirror.Type = "filesystem" }},
		{name: "s3 mirror without bucket", modify: func(c *Config) { c.Mirror.Type = "s3" }},
		{name: "negative grace", modify: func(c *Config) { c.Watch.GraceWindow = Duration{-time.Second} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/data")
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "autosaver.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "autosaver.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autosaver.toml")
	cfg := NewConfig(dir)
	if err := Init(path, cfg); err != nil {
		t.Fatal(err)
	}

	cfg.Watch.SourcePath = "/games/auto.sav"
	cfg.TUI.LabelWidth = 12
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.Watch.SourcePath != "/games/auto.sav" {
		t.Errorf("SourcePath = %q", got.Watch.SourcePath)
	}
	if got.TUI.LabelWidth != 12 {
		t.Errorf("LabelWidth = %d", got.TUI.LabelWidth)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the config file, found %d entries", len(entries))
	}
}

func TestReadFromFile(t *testing.T) {
	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/autosaver.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
