package config

import (
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasi-host/errors"
)

// Config is the complete runtime configuration.
type Config struct {
	Pool     PoolConfig     `yaml:"pool"`
	HTTP     HTTPConfig     `yaml:"http"`
	Terminal TerminalConfig `yaml:"terminal"`
	Cache    CacheConfig    `yaml:"cache"`
	Registry RegistryConfig `yaml:"registry"`
	Log      LogConfig      `yaml:"log"`
}

// PoolConfig sizes the worker pool.
type PoolConfig struct {
	SharedWorkers int `yaml:"shared_workers" validate:"gte=1,lte=1024"`
	MaxDedicated  int `yaml:"max_dedicated" validate:"gte=1"`
	// QueueLimit caps each shared worker's backlog; -1 means unbounded.
	QueueLimit  int `yaml:"queue_limit" validate:"gte=-1"`
	Parallelism int `yaml:"parallelism" validate:"gte=1"`
}

// HTTPConfig configures the host fetch primitive.
type HTTPConfig struct {
	CORSProxy    string        `yaml:"cors_proxy" validate:"omitempty,url|hostname_port|hostname"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" validate:"gt=0"`
}

// TerminalConfig sets the initial terminal size.
type TerminalConfig struct {
	Cols uint32 `yaml:"cols" validate:"gte=1"`
	Rows uint32 `yaml:"rows" validate:"gte=1"`
	// DetectSize replaces Cols and Rows with the controlling terminal's size.
	DetectSize *bool `yaml:"detect_size"`
}

// CacheConfig configures the module cache tiers.
type CacheConfig struct {
	Path          string `yaml:"path"`
	MemoryEntries int    `yaml:"memory_entries" validate:"gte=1"`
}

// RegistryConfig points at the package registry.
type RegistryConfig struct {
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// ShouldDetectSize reports whether the terminal size should be probed.
func (t TerminalConfig) ShouldDetectSize() bool {
	return t.DetectSize == nil || *t.DetectSize
}

var validate = validator.New()

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, expands, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read "+path)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(m string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(m)[1])
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.InvalidData(errors.PhaseConfig, "parse yaml", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Op("validate").
			Cause(err).
			Detail("invalid configuration").
			Build()
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Pool.SharedWorkers == 0 {
		c.Pool.SharedWorkers = 4
	}
	if c.Pool.MaxDedicated == 0 {
		c.Pool.MaxDedicated = 256
	}
	if c.Pool.QueueLimit == 0 {
		c.Pool.QueueLimit = 4096
	}
	if c.Pool.Parallelism == 0 {
		c.Pool.Parallelism = 8
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.MaxBodyBytes == 0 {
		c.HTTP.MaxBodyBytes = 64 << 20
	}
	if c.Terminal.Cols == 0 {
		c.Terminal.Cols = 80
	}
	if c.Terminal.Rows == 0 {
		c.Terminal.Rows = 25
	}
	if c.Cache.MemoryEntries == 0 {
		c.Cache.MemoryEntries = 64
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
