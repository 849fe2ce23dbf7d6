package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for tvp.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Database   DatabaseConfig   `toml:"database"`
	Caller     CallerConfig     `toml:"caller"`
	Access     AccessConfig     `toml:"access"`
	Logo       LogoConfig       `toml:"logo"`
	Notify     NotifyConfig     `toml:"notify"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`

	// AutoSnapshot pushes a snapshot to the first vault after every command
	// that changed the store.
	AutoSnapshot bool `toml:"auto_snapshot"`
}

// DatabaseConfig represents configuration for the listings store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// CallerConfig is the identity the CLI acts as unless overridden by flags.
type CallerConfig struct {
	Package     string   `toml:"package"`
	Permissions []string `toml:"permissions"`
}

// AccessConfig holds store-wide access rules.
type AccessConfig struct {
	BlockedPackages []string `toml:"blocked_packages"` // refused writes to recommendations
}

// LogoConfig sizes the logo worker pool.
type LogoConfig struct {
	MaxSize    int `toml:"max_size"`    // longest side in pixels
	Workers    int `toml:"workers"`     // concurrent logo tasks
	QueueSize  int `toml:"queue_size"`  // tasks waiting for a worker
	PipeBuffer int `toml:"pipe_buffer"` // bytes buffered per logo stream
}

// NotifyConfig selects where change notifications go.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type NotifyConfig struct {
	Type string `toml:"type"` // "log", "redis" or "none"

	// Redis-specific fields (only used when Type == "redis")
	RedisAddr    string `toml:"redis_addr,omitempty"`
	RedisChannel string `toml:"redis_channel,omitempty"`
	RedisDB      int    `toml:"redis_db,omitempty"`
}

// VaultConfig represents configuration for a snapshot vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores

	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"` // default credential chain when empty
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for snapshot encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
	// Recipients are extra age public keys that can also decrypt snapshots,
	// e.g. an offline recovery key.
	Recipients []string `toml:"recipients,omitempty"`
}

const (
	DefaultLogoMaxSize    = 256
	DefaultLogoWorkers    = 4
	DefaultLogoQueueSize  = 16
	DefaultLogoPipeBuffer = 32 * 1024
	DefaultRedisChannel   = "tvp:changes"
)

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	cfg := &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "tvp.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "tvp.key"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued settings.
func (c *Config) ApplyDefaults() {
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Logo.MaxSize == 0 {
		c.Logo.MaxSize = DefaultLogoMaxSize
	}
	if c.Logo.Workers == 0 {
		c.Logo.Workers = DefaultLogoWorkers
	}
	if c.Logo.QueueSize == 0 {
		c.Logo.QueueSize = DefaultLogoQueueSize
	}
	if c.Logo.PipeBuffer == 0 {
		c.Logo.PipeBuffer = DefaultLogoPipeBuffer
	}
	if c.Notify.Type == "" {
		c.Notify.Type = "log"
	}
	if c.Notify.Type == "redis" && c.Notify.RedisChannel == "" {
		c.Notify.RedisChannel = DefaultRedisChannel
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = "age"
	}
}

// Validate rejects unknown backend types and unusable logo settings.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite":
		if c.Database.DataDir == "" {
			return fmt.Errorf("sqlite database requires data_dir to be set")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database type: %q", c.Database.Type)
	}

	if c.Logo.MaxSize <= 0 || c.Logo.Workers <= 0 || c.Logo.QueueSize <= 0 || c.Logo.PipeBuffer <= 0 {
		return fmt.Errorf("logo settings must be positive (max_size=%d workers=%d queue_size=%d pipe_buffer=%d)",
			c.Logo.MaxSize, c.Logo.Workers, c.Logo.QueueSize, c.Logo.PipeBuffer)
	}

	switch c.Notify.Type {
	case "log", "none":
	case "redis":
		if c.Notify.RedisAddr == "" {
			return fmt.Errorf("redis notifier requires redis_addr to be set")
		}
	default:
		return fmt.Errorf("unknown notify type: %q", c.Notify.Type)
	}

	for _, v := range c.Vaults {
		switch v.Type {
		case "memory", "filesystem", "s3":
		default:
			return fmt.Errorf("unknown vault type: %q", v.Type)
		}
	}

	switch c.Encryption.Type {
	case "age", "test", "":
	default:
		return fmt.Errorf("unknown encryption type: %q", c.Encryption.Type)
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

// ReadFromFile reads a Config from the specified file path and fills defaults.
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
	cfg.ApplyDefaults()
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites the config file at path.
func Save(path string, cfg *Config) error {
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
