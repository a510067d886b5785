package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Deploy  DeployConfig  `mapstructure:"deploy"`
	Git     GitConfig     `mapstructure:"git"`
	Health  HealthConfig  `mapstructure:"health"`
	Journal JournalConfig `mapstructure:"journal"`
	Log     LogConfig     `mapstructure:"log"`
}

// DeployConfig holds the manifest and orchestration settings.
type DeployConfig struct {
	// Image is the target image reference. Required.
	Image string `mapstructure:"image"`

	// Manifest is the compose file path, relative to ProjectDir.
	Manifest string `mapstructure:"manifest"`

	// Placeholder is the sentinel image reference replaced at deploy time.
	Placeholder string `mapstructure:"placeholder"`

	// ProjectDir is the git working tree and compose project directory.
	ProjectDir string `mapstructure:"project_dir"`

	// Container is the container name checked after up. Empty skips the check.
	Container string `mapstructure:"container"`

	// Host and Port locate the deployed application.
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Verify enables post-up container inspection through the Docker SDK.
	Verify bool `mapstructure:"verify"`

	// DockerHost overrides DOCKER_HOST for verification.
	DockerHost string `mapstructure:"docker_host"`

	// Env is handed to the compose process on up.
	Env map[string]string `mapstructure:"env"`
}

// GitConfig holds version-control settings for the commit-push stage.
type GitConfig struct {
	Name    string `mapstructure:"name"`
	Email   string `mapstructure:"email"`
	Remote  string `mapstructure:"remote"`
	Branch  string `mapstructure:"branch"`
	Message string `mapstructure:"message"`

	// Token is the push credential, injected into the remote URL when
	// the URL itself carries no userinfo. Set via SHIPWARD_GIT_TOKEN.
	Token string `mapstructure:"token"`
}

// CredentialedRemote returns the remote URL with the token embedded as
// userinfo. A remote that already carries credentials, or an empty
// token, passes through unchanged.
func (c GitConfig) CredentialedRemote() string {
	if c.Token == "" || c.Remote == "" {
		return c.Remote
	}
	u, err := url.Parse(c.Remote)
	if err != nil || u.Scheme == "" || u.User != nil {
		return c.Remote
	}
	u.User = url.User(c.Token)
	return u.String()
}

// HealthConfig holds the health poller settings.
type HealthConfig struct {
	Path         string        `mapstructure:"path"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// JournalConfig holds the run journal settings.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HealthURL builds the probed endpoint URL from host, port, and path.
func (c *Config) HealthURL() string {
	path := c.Health.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://%s:%d%s", c.Deploy.Host, c.Deploy.Port, path)
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("deploy.image", "")
	v.SetDefault("deploy.manifest", "docker-compose.yml")
	v.SetDefault("deploy.placeholder", "__IMAGE__")
	v.SetDefault("deploy.project_dir", ".")
	v.SetDefault("deploy.container", "")
	v.SetDefault("deploy.host", "localhost")
	v.SetDefault("deploy.port", 5000)
	v.SetDefault("deploy.verify", true)
	v.SetDefault("deploy.docker_host", "")
	v.SetDefault("git.name", "shipward")
	v.SetDefault("git.email", "shipward@localhost")
	v.SetDefault("git.remote", "")
	v.SetDefault("git.branch", "main")
	v.SetDefault("git.message", "deploy: update image to %s")
	v.SetDefault("git.token", "")
	v.SetDefault("health.path", "/api/health")
	v.SetDefault("health.max_retries", 15)
	v.SetDefault("health.retry_delay", "5s")
	v.SetDefault("health.probe_timeout", "3s")
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.dsn", "./data/shipward.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only fail on a file that exists but does not parse
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("SHIPWARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// ValidateForDeploy checks the fields the deploy command cannot run without.
func (c *Config) ValidateForDeploy() error {
	if c.Deploy.Image == "" {
		return fmt.Errorf("deploy.image is required (or set SHIPWARD_DEPLOY_IMAGE)")
	}
	if c.Deploy.Manifest == "" {
		return fmt.Errorf("deploy.manifest is required")
	}
	if c.Deploy.Placeholder == "" {
		return fmt.Errorf("deploy.placeholder is required")
	}
	if c.Health.MaxRetries < 0 {
		return fmt.Errorf("health.max_retries must not be negative")
	}
	if c.Health.RetryDelay < 0 {
		return fmt.Errorf("health.retry_delay must not be negative")
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		})
	}

	return slog.New(handler)
}
