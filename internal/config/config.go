package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Storage contains configuration for the object storage bucket.
type Storage struct {
	Bucket               string `toml:"bucket"`
	PublicBaseURL        string `toml:"public_base_url"`
	SignerEmail          string `toml:"signer_email"`
	SignerKeyPath        string `toml:"signer_key_path"`
	PresignExpirySeconds int    `toml:"presign_expiry_seconds"`
}

// FFmpeg contains configuration for the external media tools.
type FFmpeg struct {
	FFmpegBinary           string `toml:"ffmpeg_binary"`
	FFprobeBinary          string `toml:"ffprobe_binary"`
	SegmentSeconds         int    `toml:"segment_seconds"`
	EncodeTimeoutMinutes   int    `toml:"encode_timeout_minutes"`
	ThumbnailOffsetSeconds int    `toml:"thumbnail_offset_seconds"`
}

// Transfer contains configuration for source download retries.
type Transfer struct {
	DownloadAttempts  int `toml:"download_attempts"`
	RetryDelaySeconds int `toml:"retry_delay_seconds"`
}

// Callback contains configuration for the completion webhook.
type Callback struct {
	SharedSecret   string `toml:"shared_secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vodmill.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Storage  Storage  `toml:"storage"`
	FFmpeg   FFmpeg   `toml:"ffmpeg"`
	Transfer Transfer `toml:"transfer"`
	Callback Callback `toml:"callback"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vodmill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The bool result reports whether
// a config file was actually found (defaults are used otherwise).
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Storage.SignerKeyPath, err = expandPath(c.Storage.SignerKeyPath); err != nil {
		return err
	}
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	return nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures deep inside the pipeline.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must not be empty")
	}
	if c.FFmpeg.SegmentSeconds <= 0 {
		return fmt.Errorf("ffmpeg.segment_seconds must be positive, got %d", c.FFmpeg.SegmentSeconds)
	}
	if c.FFmpeg.EncodeTimeoutMinutes <= 0 {
		return fmt.Errorf("ffmpeg.encode_timeout_minutes must be positive, got %d", c.FFmpeg.EncodeTimeoutMinutes)
	}
	if c.Transfer.DownloadAttempts <= 0 {
		return fmt.Errorf("transfer.download_attempts must be positive, got %d", c.Transfer.DownloadAttempts)
	}
	if c.Transfer.RetryDelaySeconds < 0 {
		return fmt.Errorf("transfer.retry_delay_seconds must not be negative, got %d", c.Transfer.RetryDelaySeconds)
	}
	if c.Storage.PresignExpirySeconds <= 0 {
		return fmt.Errorf("storage.presign_expiry_seconds must be positive, got %d", c.Storage.PresignExpirySeconds)
	}
	return nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Sample returns the annotated sample configuration shipped with the binary.
func Sample() string {
	return sampleConfig
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}
