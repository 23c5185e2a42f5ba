package config

import (
	"os"
	"path/filepath"

	"github.com/shellicar/claude-cli/errors"
	"gopkg.in/yaml.v3"
)

const configDir = ".claude-cli"

type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

// Approval controls the timing and policy of the tool-approval flow.
// The policy lists are consulted by the orchestrator, never by the
// approval core itself.
type Approval struct {
	TimeoutSeconds            int      `yaml:"timeout_seconds"`
	InteractiveTimeoutSeconds int      `yaml:"interactive_timeout_seconds"`
	WarnBelowSeconds          int      `yaml:"warn_below_seconds"`
	AutoAllow                 []string `yaml:"auto_allow"`
	InteractiveTools          []string `yaml:"interactive_tools"`
}

type Config struct {
	LLMClient        string           `yaml:"llm"`
	Model            string           `yaml:"model"`
	Approval         Approval         `yaml:"approval"`
	AllowedCommands  []string         `yaml:"allowed_commands"`
	FilesystemAccess FilesystemAccess `yaml:"filesystem_access"`
	LogFile          string           `yaml:"log_file"`
}

// LoadConfig loads configuration from the user's home directory and the
// current working directory, with the latter taking precedence.
func LoadConfig() (*Config, error) {
	cfg := Default()

	// Load user-level config first
	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, configDir, "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	// Load project-level config, overriding user-level
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, configDir, "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a config with the baseline values a fresh install
// runs with.
func Default() *Config {
	cfg := &Config{}
	// The session directory is never exposed to tools.
	cfg.FilesystemAccess.Hidden = append(cfg.FilesystemAccess.Hidden, configDir, configDir+"/**")
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Approval.TimeoutSeconds <= 0 {
		c.Approval.TimeoutSeconds = 30
	}
	if c.Approval.InteractiveTimeoutSeconds <= 0 {
		c.Approval.InteractiveTimeoutSeconds = 120
	}
	if c.Approval.WarnBelowSeconds <= 0 {
		c.Approval.WarnBelowSeconds = 10
	}
	if c.Approval.InteractiveTools == nil {
		c.Approval.InteractiveTools = []string{"execute_command"}
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives a
	// simple merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

// AutoAllowed reports whether a tool is on the auto-approval list.
func (c *Config) AutoAllowed(tool string) bool {
	for _, name := range c.Approval.AutoAllow {
		if name == tool {
			return true
		}
	}
	return false
}

// Interactive reports whether a tool belongs to the long-timeout risk
// class.
func (c *Config) Interactive(tool string) bool {
	for _, name := range c.Approval.InteractiveTools {
		if name == tool {
			return true
		}
	}
	return false
}
