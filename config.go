//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package registry

import (
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	yaml "gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-registry/errs"
	"trpc.group/trpc-go/trpc-registry/internal/expandenv"
	"trpc.group/trpc-go/trpc-registry/plugin"
	"trpc.group/trpc-go/trpc-registry/source"
)

// ServerConfigPath is the registry config file path.
var ServerConfigPath = defaultConfigPath

const (
	defaultConfigPath   = "./registry.yaml"
	defaultAdminIP      = "127.0.0.1"
	defaultAdminPort    = 9028
	defaultSource       = "file"
	defaultMetricsSink  = "prometheus"
	defaultNamespace    = "registry"
	defaultRateLimit    = 100
	defaultRateBurst    = 20
	defaultAdminReadMs  = 3000
	defaultAdminWriteMs = 60000
)

// Config is the registry config.
type Config struct {
	// Global is the global config.
	Global struct {
		Namespace        string `yaml:"namespace"`          // Normally Production or Development.
		EnvName          string `yaml:"env_name"`           // Environment name.
		LocalIP          string `yaml:"local_ip"`           // Local ip.
		TraceableErrors  bool   `yaml:"traceable_errors"`   // Record the creator stack of registry errors.
		ErrorStackFilter string `yaml:"error_stack_filter"` // Print only error stack frames containing it.
		TraceLog         bool   `yaml:"trace_log"`          // Enable trace logs.
		RedirectStdLog   bool   `yaml:"redirect_std_log"`   // Send the std log output to the default logger.
	}
	Server struct {
		App    string `yaml:"app"`
		Server string `yaml:"server"`
		// CloseWaitTime is the time in ms waited before the admin server stops.
		CloseWaitTime int `yaml:"close_wait_time"`
		// Admin is the admin server config.
		Admin struct {
			IP           string  `yaml:"ip"`  // Ip to bind, takes precedence over nic.
			Nic          string  `yaml:"nic"` // Nic to bind.
			Port         uint16  `yaml:"port"`
			ReadTimeout  int     `yaml:"read_timeout"`  // ms
			WriteTimeout int     `yaml:"write_timeout"` // ms
			RateLimit    float64 `yaml:"rate_limit"`    // mutations per second
			RateBurst    int     `yaml:"rate_burst"`
			Disabled     bool    `yaml:"disabled"`
		} `yaml:"admin"`
	}
	Directory DirectoryConfig `yaml:"directory"`
	Topology  TopologyConfig  `yaml:"topology"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Plugins   plugin.Config   `yaml:"plugins"`

	path string
}

// DirectoryConfig configures how the directory is fed.
type DirectoryConfig struct {
	// RefreshInterval is the polling interval in ms.
	RefreshInterval int `yaml:"refresh_interval"`
	// FullRefreshEvery makes every n-th cycle a full load, negative disables
	// periodic full loads.
	FullRefreshEvery int `yaml:"full_refresh_every"`
	// Source is the name of the source plugin feeding the directory.
	Source string `yaml:"source"`
	// Trace logs every resolution trace at info level.
	Trace bool `yaml:"trace"`
}

// TopologyConfig locates the topology file.
type TopologyConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
	// Key selects a nested section of the file, the whole file by default.
	Key string `yaml:"key"`
}

// MetricsConfig selects the metrics sink.
type MetricsConfig struct {
	// Sink is one of prometheus, console or noop.
	Sink      string `yaml:"sink"`
	Namespace string `yaml:"namespace"`
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

func (c DirectoryConfig) refreshInterval() time.Duration {
	return getMillisecond(c.RefreshInterval)
}

var globalConfig atomic.Value

func init() {
	globalConfig.Store(defaultConfig())
}

func defaultConfig() *Config {
	return &Config{}
}

// GlobalConfig returns the global Config.
func GlobalConfig() *Config {
	return globalConfig.Load().(*Config)
}

// SetGlobalConfig set the global Config.
func SetGlobalConfig(cfg *Config) {
	globalConfig.Store(cfg)
}

// LoadGlobalConfig loads a Config from the config file and then set it as the global Config.
func LoadGlobalConfig(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	SetGlobalConfig(cfg)
	return nil
}

// LoadConfig loads a Config from the config file.
func LoadConfig(configPath string) (*Config, error) {
	cfg, err := parseConfigFromFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := RepairConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseConfigFromFile(configPath string) (*Config, error) {
	buf, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errs.Wrapf(err, errs.RetConfigInvalid, "read config %s", configPath)
	}
	// expand environment variables
	buf = expandenv.ExpandEnv(buf)

	cfg := defaultConfig()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, errs.Wrapf(err, errs.RetConfigInvalid, "parse config %s", configPath)
	}
	cfg.path = configPath
	return cfg, nil
}

// SetupPlugins sets up all plugins and returns a function to close them.
func SetupPlugins(cfg plugin.Config) (func() error, error) {
	if cfg == nil {
		return func() error { return nil }, nil
	}
	return cfg.SetupClosables()
}

// RepairConfig repairs config with default values.
func RepairConfig(cfg *Config) error {
	if err := repairAdminIPWithNic(cfg); err != nil {
		return err
	}
	setDefault(&cfg.Server.Admin.IP, defaultAdminIP)
	if cfg.Server.Admin.Port == 0 {
		cfg.Server.Admin.Port = defaultAdminPort
	}
	if cfg.Server.Admin.ReadTimeout <= 0 {
		cfg.Server.Admin.ReadTimeout = defaultAdminReadMs
	}
	if cfg.Server.Admin.WriteTimeout <= 0 {
		cfg.Server.Admin.WriteTimeout = defaultAdminWriteMs
	}
	if cfg.Server.Admin.RateLimit <= 0 {
		cfg.Server.Admin.RateLimit = defaultRateLimit
	}
	if cfg.Server.Admin.RateBurst <= 0 {
		cfg.Server.Admin.RateBurst = defaultRateBurst
	}
	if cfg.Server.CloseWaitTime < 0 {
		cfg.Server.CloseWaitTime = 0
	}

	if cfg.Directory.RefreshInterval < 0 {
		return errs.Newf(errs.RetConfigInvalid, "directory.refresh_interval %d is negative",
			cfg.Directory.RefreshInterval)
	}
	if cfg.Directory.RefreshInterval == 0 {
		cfg.Directory.RefreshInterval = int(source.DefaultInterval / time.Millisecond)
	}
	if cfg.Directory.FullRefreshEvery == 0 {
		cfg.Directory.FullRefreshEvery = source.DefaultFullRefreshEvery
	}
	setDefault(&cfg.Directory.Source, defaultSource)

	setDefault(&cfg.Metrics.Sink, defaultMetricsSink)
	setDefault(&cfg.Metrics.Namespace, defaultNamespace)
	switch cfg.Metrics.Sink {
	case "prometheus", "console", "noop":
	default:
		return errs.Newf(errs.RetConfigInvalid, "unknown metrics sink %q", cfg.Metrics.Sink)
	}
	return nil
}

// repairAdminIPWithNic resolves the admin ip from its nic.
func repairAdminIPWithNic(cfg *Config) error {
	admin := &cfg.Server.Admin
	if admin.IP != "" || admin.Nic == "" {
		return nil
	}
	admin.IP = getIP(admin.Nic)
	if admin.IP == "" {
		return errs.Newf(errs.RetConfigInvalid, "can't find admin ip by the nic: %s", admin.Nic)
	}
	return nil
}

// adminAddr returns the admin listen address.
func (c *Config) adminAddr() string {
	return net.JoinHostPort(c.Server.Admin.IP, strconv.Itoa(int(c.Server.Admin.Port)))
}

func getMillisecond(ms int) time.Duration {
	return time.Millisecond * time.Duration(ms)
}

func setDefault(dst *string, def string) {
	if dst != nil && *dst == "" {
		*dst = def
	}
}
