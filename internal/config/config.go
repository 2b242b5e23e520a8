package config

import (
	"fmt"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"

	"wrrsched/internal/job"
	"wrrsched/internal/sched"
	"wrrsched/internal/topology"
)

// Config mirrors config.yml.
type Config struct {
	TickMS        int   `yaml:"tick_ms"`        // length of one scheduler tick, 1 by default (HZ=1000)
	PaceMS        int   `yaml:"pace_ms"`        // wall-clock delay per simulated tick, 0 = as fast as possible
	BaseTimeslice int64 `yaml:"base_timeslice"` // base slice in ticks, 10 by default
	CPUs          int   `yaml:"cpus"`           // simulated CPUs, 0 = host CPU count
	Online        []int `yaml:"online"`         // online subset, empty = all
	Ticks         int64 `yaml:"ticks"`          // ticks to simulate
	Strict        bool  `yaml:"strict"`         // panic on invariant failures
	KillOnLimit   bool  `yaml:"kill_on_limit"`  // terminate tasks past their CPU-time limit

	ForegroundGroups []string `yaml:"foreground_groups"`
	BackgroundGroups []string `yaml:"background_groups"`

	CSV       string `yaml:"csv"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Tasks []job.Spec `yaml:"tasks"`
}

// If the config file is not found, we use default values
func defaultConfig() Config {
	return Config{
		TickMS:           1,
		BaseTimeslice:    sched.DefaultTimeslice,
		Ticks:            1000,
		ForegroundGroups: []string{sched.RootGroup},
		BackgroundGroups: []string{sched.BackgroundGroupDir},
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Default returns the default configuration with the CPU count resolved.
func Default() Config {
	cfg := defaultConfig()
	cfg.clamp()
	return cfg
}

// Load reads YAML and overrides defaults; empty path = defaults only.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.clamp()

	for i, s := range cfg.Tasks {
		resolved, err := s.Resolve()
		if err != nil {
			return cfg, fmt.Errorf("config %s: task %d: %w", path, i, err)
		}
		cfg.Tasks[i] = resolved
	}
	return cfg, nil
}

// sanity clamps
func (c *Config) clamp() {
	if c.TickMS <= 0 {
		c.TickMS = 1
	}
	if c.PaceMS < 0 {
		c.PaceMS = 0
	}
	if c.BaseTimeslice <= 0 {
		c.BaseTimeslice = sched.DefaultTimeslice
	}
	if c.CPUs <= 0 {
		c.CPUs = topology.NumCPU()
	}
	if c.Ticks < 0 {
		c.Ticks = 0
	}

	online := c.Online[:0]
	for _, cpu := range c.Online {
		if cpu >= 0 && cpu < c.CPUs {
			online = append(online, cpu)
		}
	}
	c.Online = online
}

// TickDuration returns the tick length.
func (c Config) TickDuration() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// OnlineSet returns the online CPUs.
func (c Config) OnlineSet() sched.CPUSet {
	if len(c.Online) == 0 {
		return sched.RangeCPUSet(c.CPUs)
	}
	return sched.NewCPUSet(c.Online...)
}
