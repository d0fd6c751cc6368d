package config

import (
	"time"

	"github.com/lesys-monitor/lesys/internal/metrics"
	"github.com/lesys-monitor/lesys/internal/proctree"
)

// Config holds the user-configurable settings for lesys.
type Config struct {
	SystemInterval  time.Duration `mapstructure:"system_interval" yaml:"system_interval"`
	ProcessInterval time.Duration `mapstructure:"process_interval" yaml:"process_interval"`
	// DisplayLimit caps the process groups shown unless sorted by name. 0 shows all.
	DisplayLimit int    `mapstructure:"display_limit" yaml:"display_limit"`
	Theme        string `mapstructure:"theme" yaml:"theme"`
	// UseBits shows throughput in bits per second instead of bytes.
	UseBits bool `mapstructure:"use_bits" yaml:"use_bits"`

	GPU       GPUConfig       `mapstructure:"gpu" yaml:"gpu"`
	Network   NetworkConfig   `mapstructure:"network" yaml:"network"`
	Processes ProcessesConfig `mapstructure:"processes" yaml:"processes"`
	Serve     ServeConfig     `mapstructure:"serve" yaml:"serve"`
}

// GPUConfig controls GPU probing.
type GPUConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	NvidiaSMI    string        `mapstructure:"nvidia_smi" yaml:"nvidia_smi"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

// NetworkConfig controls which interfaces count toward throughput.
type NetworkConfig struct {
	Blacklist     []string `mapstructure:"blacklist" yaml:"blacklist"`
	FallbackLabel string   `mapstructure:"fallback_label" yaml:"fallback_label"`
}

// ProcessesConfig controls process enumeration.
type ProcessesConfig struct {
	Ignore []string `mapstructure:"ignore" yaml:"ignore"`
}

// ServeConfig configures `lesys serve`.
type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

const (
	ThemeDark  = "dark"
	ThemeLight = "light"

	DefaultServeAddr    = "127.0.0.1:8787"
	DefaultNvidiaSMI    = "nvidia-smi"
	DefaultQueryTimeout = 500 * time.Millisecond

	// MinInterval is the fastest allowed sampling cadence.
	MinInterval = 100 * time.Millisecond
)

// DefaultConfig returns the hardcoded default configuration.
func DefaultConfig() *Config {
	return &Config{
		SystemInterval:  metrics.DefaultSystemInterval,
		ProcessInterval: metrics.DefaultProcessInterval,
		DisplayLimit:    proctree.DisplayLimit,
		Theme:           ThemeDark,
		GPU: GPUConfig{
			Enabled:      true,
			NvidiaSMI:    DefaultNvidiaSMI,
			QueryTimeout: DefaultQueryTimeout,
		},
		Network: NetworkConfig{
			Blacklist:     append([]string(nil), metrics.DefaultInterfaceBlacklist...),
			FallbackLabel: metrics.DefaultFallbackInterface,
		},
		Processes: ProcessesConfig{
			Ignore: append([]string(nil), metrics.DefaultIgnoredProcesses...),
		},
		Serve: ServeConfig{Addr: DefaultServeAddr},
	}
}

// SystemConfig maps the settings onto the system sampler. Probes are chosen
// by the caller.
func (c *Config) SystemConfig(probes []metrics.GPUProbe) metrics.SystemConfig {
	return metrics.SystemConfig{
		Interval:          c.SystemInterval,
		Blacklist:         c.Network.Blacklist,
		FallbackInterface: c.Network.FallbackLabel,
		GPUProbes:         probes,
	}
}

// ProcessConfig maps the settings onto the process sampler.
func (c *Config) ProcessConfig() metrics.ProcessConfig {
	return metrics.ProcessConfig{
		Interval: c.ProcessInterval,
		Ignore:   c.Processes.Ignore,
	}
}

// GPUProbes returns the probe chain for a real host, or nil when GPU
// sampling is disabled.
func (c *Config) GPUProbes() []metrics.GPUProbe {
	if !c.GPU.Enabled {
		return nil
	}
	return metrics.DefaultGPUProbes(c.GPU.NvidiaSMI, c.GPU.QueryTimeout)
}
