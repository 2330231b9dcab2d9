// Package config loads service configuration in three layers: built-in
// defaults, an optional YAML file, then RECOMMENDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/sphinxnet/recommender/internal/controller"
	"github.com/sphinxnet/recommender/internal/logging"
	"github.com/sphinxnet/recommender/internal/validation"
	"github.com/sphinxnet/recommender/policy"
	"github.com/sphinxnet/recommender/predict"
	"github.com/sphinxnet/recommender/rules"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// EnvPrefix marks environment variables read as overrides.
const EnvPrefix = "RECOMMENDER_"

// DefaultPaths are searched in order when PathEnvVar is unset.
var DefaultPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/recommender/config.yaml",
}

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig      `koanf:"server"`
	Logging logging.Config    `koanf:"logging"`
	Catalog CatalogConfig     `koanf:"catalog"`
	Model   ModelConfig       `koanf:"model"`
	Rules   RulesConfig       `koanf:"rules"`
	Ranker  controller.Config `koanf:"ranker"`
	Store   StoreConfig       `koanf:"store"`
	Tracing TracingConfig     `koanf:"tracing"`
}

// ServerConfig configures the HTTP listener and middleware.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	BodyLimit       int64         `koanf:"body_limit" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// RateLimitRequests per RateLimitWindow per client IP; 0 disables.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// CatalogConfig points at an optional YAML catalog; empty uses the
// built-in one.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// ModelConfig lists the predictive backends in priority order.
type ModelConfig struct {
	URL                string                      `koanf:"url" validate:"omitempty,url"`
	Timeout            time.Duration               `koanf:"timeout"`
	RetryMax           int                         `koanf:"retry_max" validate:"gte=0"`
	Rate               policy.RateLimitConfig      `koanf:"rate"`
	Circuit            policy.CircuitBreakerConfig `koanf:"circuit"`
	ArtifactPath       string                      `koanf:"artifact_path"`
	LegacyArtifactPath string                      `koanf:"legacy_artifact_path"`
	Fallback           string                      `koanf:"fallback" validate:"oneof=none heuristic"`
	// Required makes /readyz fail while the model is unreachable.
	Required bool `koanf:"required"`
}

// RulesConfig overrides the rule scorer's tunables.
type RulesConfig struct {
	Weights     rules.Weights     `koanf:"weights"`
	UsagePolicy rules.UsagePolicy `koanf:"usage_policy" validate:"oneof=strict neutral"`
}

// StoreConfig configures the survey persistence sink.
type StoreConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Path         string        `koanf:"path" validate:"required_if=Enabled true"`
	Buffer       int           `koanf:"buffer" validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	SampleRatio float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	rc := rules.DefaultConfig()
	lc := logging.DefaultConfig()
	lc.Output = nil
	return &Config{
		Server: ServerConfig{
			Addr:              ":5000",
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			BodyLimit:         64 << 10,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Logging: lc,
		Model: ModelConfig{
			Timeout:  800 * time.Millisecond,
			RetryMax: 2,
			Rate: policy.RateLimitConfig{
				Capacity:     50,
				RefillTokens: 10,
				RefillEvery:  time.Second,
			},
			Circuit: policy.CircuitBreakerConfig{
				Window:               30 * time.Second,
				FailureRateThreshold: 0.5,
				MinSamples:           5,
				Cooldown:             5 * time.Second,
				HalfOpenMaxCalls:     1,
			},
			ArtifactPath:       "models/package_model.json",
			LegacyArtifactPath: "package_model.json",
			Fallback:           predict.FallbackHeuristic,
		},
		Rules: RulesConfig{
			Weights:     rc.Weights,
			UsagePolicy: rc.UsagePolicy,
		},
		Ranker: controller.DefaultConfig(),
		Store: StoreConfig{
			Path:         "survey_data.db",
			Buffer:       256,
			WriteTimeout: 2 * time.Second,
		},
		Tracing: TracingConfig{
			ServiceName: "package-recommender",
			SampleRatio: 0.1,
		},
	}
}

// Load reads defaults, the config file and the environment, then validates.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit file path; an empty path skips the file
// layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitLists(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate runs struct constraints and the cross-field checks they cannot
// express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.Rules.Weights.Validate(); err != nil {
		return err
	}
	if c.Ranker.ModelLimit+c.Ranker.RuleLimit == 0 {
		return errors.New("ranker: model_limit and rule_limit are both zero")
	}
	return nil
}

// RulesConfig returns the full rule scorer configuration with the
// overridable fields applied.
func (c *Config) RulesConfig() rules.Config {
	rc := rules.DefaultConfig()
	rc.Weights = c.Rules.Weights
	rc.UsagePolicy = c.Rules.UsagePolicy
	return rc
}

// ArtifactPaths returns the non-empty artifact paths, primary first.
func (m ModelConfig) ArtifactPaths() []string {
	var out []string
	for _, p := range []string{m.ArtifactPath, m.LegacyArtifactPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SourceConfig returns the policy guarding the remote model server.
func (m ModelConfig) SourceConfig() policy.SourceConfig {
	return policy.SourceConfig{
		Name:    predict.RemoteName,
		Timeout: m.Timeout,
		Rate:    m.Rate,
		Circuit: m.Circuit,
	}
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKeys maps RECOMMENDER_* suffixes onto config paths. Unknown variables
// are ignored.
var envKeys = map[string]string{
	"addr":                 "server.addr",
	"cors_origins":         "server.cors_origins",
	"body_limit":           "server.body_limit",
	"rate_limit_requests":  "server.rate_limit_requests",
	"rate_limit_window":    "server.rate_limit_window",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
	"log_caller":           "logging.caller",
	"catalog_path":         "catalog.path",
	"model_url":            "model.url",
	"model_timeout":        "model.timeout",
	"model_retry_max":      "model.retry_max",
	"model_artifact":       "model.artifact_path",
	"model_legacy":         "model.legacy_artifact_path",
	"model_fallback":       "model.fallback",
	"model_required":       "model.required",
	"usage_policy":         "rules.usage_policy",
	"model_limit":          "ranker.model_limit",
	"model_threshold":      "ranker.model_threshold",
	"rule_limit":           "ranker.rule_limit",
	"rule_threshold":       "ranker.rule_threshold",
	"cache_ttl":            "ranker.cache_ttl",
	"store_enabled":        "store.enabled",
	"store_path":           "store.path",
	"tracing_enabled":      "tracing.enabled",
	"tracing_sample_ratio": "tracing.sample_ratio",
}

func envKey(key string) string {
	return envKeys[strings.ToLower(strings.TrimPrefix(key, EnvPrefix))]
}

var listPaths = []string{"server.cors_origins"}

// splitLists turns comma-separated env values into slices.
func splitLists(k *koanf.Koanf) error {
	for _, path := range listPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}
