package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lesys-monitor/lesys/internal/errors"
)

const (
	// ConfigFileName is the config file looked up next to the working
	// directory and the executable.
	ConfigFileName = "lesys.yaml"
	// GlobalConfigDir is the per-user config directory, relative to home.
	GlobalConfigDir = ".config/lesys"
	// GlobalConfigFile is the per-user config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. LESYS_SYSTEM_INTERVAL.
	EnvPrefix = "LESYS"
)

// LoadConfig reads and validates the config file at path, applying
// environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found: "+path,
				"Run 'lesys config init' to create one, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}
	return decode(v, path)
}

// LoadDefaultConfig loads the first config file found by Find, or the
// defaults plus environment overrides when there is none.
func LoadDefaultConfig() (*Config, error) {
	return Load("")
}

// Load finds the config file (see Find) and loads it.
func Load(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return decode(newViper(), "environment")
	}
	return LoadConfig(path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. lesys.yaml in the current directory
// 3. lesys.yaml next to the executable
// 4. ~/.config/lesys/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName, nil
	}

	if exePath, err := os.Executable(); err == nil {
		configPath := filepath.Join(filepath.Dir(exePath), ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// GlobalConfigPath returns ~/.config/lesys/config.yaml.
func GlobalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine home directory",
			"Pass an explicit path")
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile), nil
}

// SaveConfig validates cfg and writes it to path as YAML, creating parent
// directories as needed.
func SaveConfig(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot create config directory "+dir,
				"Check directory permissions")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot write config file "+path,
			"Check file permissions")
	}
	return nil
}

// Validate checks cfg and fills empty optional settings with defaults.
func (c *Config) Validate() error {
	if c.SystemInterval < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("system_interval must be at least %s, got %s", MinInterval, c.SystemInterval),
			"Use a duration like 1s")
	}
	if c.ProcessInterval < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("process_interval must be at least %s, got %s", MinInterval, c.ProcessInterval),
			"Use a duration like 2s")
	}
	if c.DisplayLimit < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("display_limit cannot be negative, got %d", c.DisplayLimit),
			"Use 0 to show every process group")
	}

	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	switch c.Theme {
	case "":
		c.Theme = ThemeDark
	case ThemeDark, ThemeLight:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown theme '%s'", c.Theme),
			"Valid themes are 'dark' and 'light'")
	}

	defaults := DefaultConfig()
	if c.GPU.NvidiaSMI == "" {
		c.GPU.NvidiaSMI = defaults.GPU.NvidiaSMI
	}
	if c.GPU.QueryTimeout <= 0 {
		c.GPU.QueryTimeout = defaults.GPU.QueryTimeout
	}
	if len(c.Network.Blacklist) == 0 {
		c.Network.Blacklist = defaults.Network.Blacklist
	}
	if c.Network.FallbackLabel == "" {
		c.Network.FallbackLabel = defaults.Network.FallbackLabel
	}
	if len(c.Processes.Ignore) == 0 {
		c.Processes.Ignore = defaults.Processes.Ignore
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = defaults.Serve.Addr
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so environment overrides are picked up by
// Unmarshal even when no file mentions them.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("system_interval", d.SystemInterval)
	v.SetDefault("process_interval", d.ProcessInterval)
	v.SetDefault("display_limit", d.DisplayLimit)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("use_bits", d.UseBits)
	v.SetDefault("gpu.enabled", d.GPU.Enabled)
	v.SetDefault("gpu.nvidia_smi", d.GPU.NvidiaSMI)
	v.SetDefault("gpu.query_timeout", d.GPU.QueryTimeout)
	v.SetDefault("network.blacklist", d.Network.Blacklist)
	v.SetDefault("network.fallback_label", d.Network.FallbackLabel)
	v.SetDefault("processes.ignore", d.Processes.Ignore)
	v.SetDefault("serve.addr", d.Serve.Addr)
}

func decode(v *viper.Viper, source string) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+source)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
