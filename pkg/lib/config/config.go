package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind selects how the artifact is launched.
type Kind string

const (
	// KindManaged runs the artifact through a runtime interpreter (java -jar).
	KindManaged Kind = "managed"
	// KindNative executes the artifact directly.
	KindNative Kind = "native"
)

// Config is the immutable configuration record handed to the supervisor.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Resources ResourcesConfig `yaml:"resources"`
	Shutdown  ShutdownConfig  `yaml:"shutdown"`
	Restart   RestartConfig   `yaml:"restart"`
	Console   ConsoleConfig   `yaml:"console"`
	Download  DownloadConfig  `yaml:"download"`
	Listen    ListenConfig    `yaml:"listen"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig describes the managed server process.
type ServerConfig struct {
	ArtifactPath string   `yaml:"artifact_path"`
	Kind         Kind     `yaml:"kind"`
	DownloadURL  string   `yaml:"download_url,omitempty"`
	RuntimePath  string   `yaml:"runtime_path,omitempty"`
	WorkingDir   string   `yaml:"working_dir,omitempty"`
	JVMArgs      []string `yaml:"jvm_args,omitempty"`
	ExtraArgs    []string `yaml:"extra_args,omitempty"`
	Env          []string `yaml:"env,omitempty"`
	ReadyPattern string   `yaml:"ready_pattern"`
	StopCommand  string   `yaml:"stop_command"`
	Memory       string   `yaml:"memory"`
}

// ResourcesConfig bounds the memory handed to the server.
type ResourcesConfig struct {
	// HostFraction caps the allocation at this share of host memory.
	HostFraction float64 `yaml:"host_fraction"`
	// MinFraction derives the initial allocation from the clamped maximum.
	MinFraction float64 `yaml:"min_fraction"`
	MinFloor    string  `yaml:"min_floor"`
	Fallback    string  `yaml:"fallback"`
	// Cgroup enables a cgroup v2 memory ceiling on linux when running as root.
	Cgroup bool `yaml:"cgroup"`
}

// ShutdownConfig holds the stop escalation delays, both measured from the
// moment stop is requested.
type ShutdownConfig struct {
	TerminateAfter time.Duration `yaml:"terminate_after"`
	KillAfter      time.Duration `yaml:"kill_after"`
}

// RestartConfig drives the crash restart policy.
type RestartConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	ResetWindow  time.Duration `yaml:"reset_window"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	ExitWaitTime time.Duration `yaml:"exit_wait_timeout"`
}

type ConsoleConfig struct {
	MaxCommandLength int `yaml:"max_command_length"`
	Backlog          int `yaml:"backlog"`
}

type DownloadConfig struct {
	MaxRedirects int           `yaml:"max_redirects"`
	Timeout      time.Duration `yaml:"timeout"`
}

type ListenConfig struct {
	Address        string `yaml:"address"`
	MetricsAddress string `yaml:"metrics_address,omitempty"`
}

// AuthConfig restricts control operations to known operators. An empty
// allowlist admits every authenticated peer.
type AuthConfig struct {
	AllowedOperators []string `yaml:"allowed_operators,omitempty"`
	CommandRate      float64  `yaml:"command_rate"`
	CommandBurst     int      `yaml:"command_burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Error wraps configuration failures with the offending key.
type Error struct {
	Key    string
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Key, e.Reason, e.Cause)
	}
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// Default returns a Config with the production defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ArtifactPath: "server.jar",
			Kind:         KindManaged,
			RuntimePath:  "java",
			WorkingDir:   ".",
			ExtraArgs:    []string{"nogui"},
			ReadyPattern: `Done \(`,
			StopCommand:  "stop",
			Memory:       "2G",
		},
		Resources: ResourcesConfig{
			HostFraction: 0.70,
			MinFraction:  0.25,
			MinFloor:     "512M",
			Fallback:     "1G",
		},
		Shutdown: ShutdownConfig{
			TerminateAfter: 10 * time.Second,
			KillAfter:      25 * time.Second,
		},
		Restart: RestartConfig{
			Enabled:      true,
			MaxAttempts:  5,
			BaseDelay:    5 * time.Second,
			MaxDelay:     30 * time.Second,
			ResetWindow:  5 * time.Minute,
			SettleDelay:  2 * time.Second,
			ExitWaitTime: 60 * time.Second,
		},
		Console: ConsoleConfig{
			MaxCommandLength: 1024,
			Backlog:          2000,
		},
		Download: DownloadConfig{
			MaxRedirects: 5,
			Timeout:      10 * time.Minute,
		},
		Listen: ListenConfig{
			Address: "localhost:50051",
		},
		Auth: AuthConfig{
			CommandRate:  5,
			CommandBurst: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides. Environment variables take precedence.
func Load(configPath string) (Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return Config{}, &Error{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// applyDefaults fills zero values left by a partial YAML file.
func (c *Config) applyDefaults() {
	d := Default()

	if c.Server.ArtifactPath == "" {
		c.Server.ArtifactPath = d.Server.ArtifactPath
	}
	if c.Server.Kind == "" {
		c.Server.Kind = d.Server.Kind
	}
	if c.Server.RuntimePath == "" {
		c.Server.RuntimePath = d.Server.RuntimePath
	}
	if c.Server.WorkingDir == "" {
		c.Server.WorkingDir = d.Server.WorkingDir
	}
	if c.Server.ReadyPattern == "" {
		c.Server.ReadyPattern = d.Server.ReadyPattern
	}
	if c.Server.StopCommand == "" {
		c.Server.StopCommand = d.Server.StopCommand
	}
	if c.Resources.HostFraction == 0 {
		c.Resources.HostFraction = d.Resources.HostFraction
	}
	if c.Resources.MinFraction == 0 {
		c.Resources.MinFraction = d.Resources.MinFraction
	}
	if c.Resources.MinFloor == "" {
		c.Resources.MinFloor = d.Resources.MinFloor
	}
	if c.Resources.Fallback == "" {
		c.Resources.Fallback = d.Resources.Fallback
	}
	if c.Shutdown.TerminateAfter == 0 {
		c.Shutdown.TerminateAfter = d.Shutdown.TerminateAfter
	}
	if c.Shutdown.KillAfter == 0 {
		c.Shutdown.KillAfter = d.Shutdown.KillAfter
	}
	if c.Restart.MaxAttempts == 0 {
		c.Restart.MaxAttempts = d.Restart.MaxAttempts
	}
	if c.Restart.BaseDelay == 0 {
		c.Restart.BaseDelay = d.Restart.BaseDelay
	}
	if c.Restart.MaxDelay == 0 {
		c.Restart.MaxDelay = d.Restart.MaxDelay
	}
	if c.Restart.ResetWindow == 0 {
		c.Restart.ResetWindow = d.Restart.ResetWindow
	}
	if c.Restart.SettleDelay == 0 {
		c.Restart.SettleDelay = d.Restart.SettleDelay
	}
	if c.Restart.ExitWaitTime == 0 {
		c.Restart.ExitWaitTime = d.Restart.ExitWaitTime
	}
	if c.Console.MaxCommandLength == 0 {
		c.Console.MaxCommandLength = d.Console.MaxCommandLength
	}
	if c.Console.Backlog == 0 {
		c.Console.Backlog = d.Console.Backlog
	}
	if c.Download.Timeout == 0 {
		c.Download.Timeout = d.Download.Timeout
	}
	if c.Listen.Address == "" {
		c.Listen.Address = d.Listen.Address
	}
	if c.Auth.CommandRate == 0 {
		c.Auth.CommandRate = d.Auth.CommandRate
	}
	if c.Auth.CommandBurst == 0 {
		c.Auth.CommandBurst = d.Auth.CommandBurst
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

func (c *Config) loadFromEnv() {
	if val := strings.TrimSpace(os.Getenv("GSV_ADDRESS")); val != "" {
		c.Listen.Address = val
	}
	if val := strings.TrimSpace(os.Getenv("GSV_METRICS_ADDRESS")); val != "" {
		c.Listen.MetricsAddress = val
	}
	if val := os.Getenv("GSV_MEMORY"); val != "" {
		c.Server.Memory = val
	}
	if val := os.Getenv("GSV_ARTIFACT_PATH"); val != "" {
		c.Server.ArtifactPath = val
	}
	if val := os.Getenv("GSV_DOWNLOAD_URL"); val != "" {
		c.Server.DownloadURL = val
	}
	if val := os.Getenv("GSV_AUTO_RESTART"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Restart.Enabled = enabled
		}
	}
}

// Validate reports every inconsistent setting, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	switch c.Server.Kind {
	case KindManaged, KindNative:
	default:
		errs = append(errs, &Error{Key: "server.kind", Reason: fmt.Sprintf("unknown kind %q", c.Server.Kind)})
	}
	if strings.TrimSpace(c.Server.ArtifactPath) == "" {
		errs = append(errs, &Error{Key: "server.artifact_path", Reason: "must not be empty"})
	}
	if _, err := regexp.Compile(c.Server.ReadyPattern); err != nil {
		errs = append(errs, &Error{Key: "server.ready_pattern", Reason: "does not compile", Cause: err})
	}
	if c.Resources.HostFraction <= 0 || c.Resources.HostFraction > 1 {
		errs = append(errs, &Error{Key: "resources.host_fraction", Reason: "must be in (0, 1]"})
	}
	if c.Resources.MinFraction <= 0 || c.Resources.MinFraction > 1 {
		errs = append(errs, &Error{Key: "resources.min_fraction", Reason: "must be in (0, 1]"})
	}
	if c.Shutdown.TerminateAfter <= 0 {
		errs = append(errs, &Error{Key: "shutdown.terminate_after", Reason: "must be positive"})
	}
	if c.Shutdown.KillAfter <= c.Shutdown.TerminateAfter {
		errs = append(errs, &Error{Key: "shutdown.kill_after", Reason: "must be greater than terminate_after"})
	}
	if c.Restart.MaxAttempts < 0 {
		errs = append(errs, &Error{Key: "restart.max_attempts", Reason: "must not be negative"})
	}
	if c.Restart.BaseDelay <= 0 || c.Restart.MaxDelay < c.Restart.BaseDelay {
		errs = append(errs, &Error{Key: "restart.max_delay", Reason: "must be at least base_delay"})
	}
	if c.Console.MaxCommandLength <= 0 {
		errs = append(errs, &Error{Key: "console.max_command_length", Reason: "must be positive"})
	}
	if c.Download.MaxRedirects < 0 {
		errs = append(errs, &Error{Key: "download.max_redirects", Reason: "must not be negative"})
	}

	return errors.Join(errs...)
}
