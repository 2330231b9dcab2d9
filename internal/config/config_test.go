package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/sphinxnet/recommender/predict"
	"github.com/sphinxnet/recommender/rules"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Model.Fallback != predict.FallbackHeuristic {
		t.Fatalf("fallback = %q, want heuristic", cfg.Model.Fallback)
	}
	if cfg.Ranker.ModelLimit != 3 || cfg.Ranker.RuleLimit != 3 {
		t.Fatalf("unexpected ranker limits: %+v", cfg.Ranker)
	}
	if cfg.Ranker.CacheTTL != 5*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.Ranker.CacheTTL)
	}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, []string{"*"}) {
		t.Fatalf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Rules.UsagePolicy != rules.UsagePolicyStrict {
		t.Fatalf("usage policy = %q", cfg.Rules.UsagePolicy)
	}
	want := []string{"models/package_model.json", "package_model.json"}
	if got := cfg.Model.ArtifactPaths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("artifact paths = %v, want %v", got, want)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
  cors_origins:
    - https://shop.example.com
model:
  url: http://model:8000
  fallback: none
ranker:
  model_limit: 2
  cache_ttl: 30s
store:
  enabled: true
  path: /tmp/surveys.db
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, []string{"https://shop.example.com"}) {
		t.Fatalf("cors origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Model.URL != "http://model:8000" || cfg.Model.Fallback != predict.FallbackNone {
		t.Fatalf("model config = %+v", cfg.Model)
	}
	if cfg.Ranker.ModelLimit != 2 || cfg.Ranker.RuleLimit != 3 {
		t.Fatalf("ranker limits = %d/%d", cfg.Ranker.ModelLimit, cfg.Ranker.RuleLimit)
	}
	if cfg.Ranker.CacheTTL != 30*time.Second {
		t.Fatalf("cache ttl = %v", cfg.Ranker.CacheTTL)
	}
	if !cfg.Store.Enabled || cfg.Store.Path != "/tmp/surveys.db" {
		t.Fatalf("store = %+v", cfg.Store)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "model:\n  url: http://from-file:8000\n")
	t.Setenv("RECOMMENDER_MODEL_URL", "http://from-env:8000")
	t.Setenv("RECOMMENDER_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("RECOMMENDER_MODEL_LIMIT", "1")
	t.Setenv("RECOMMENDER_UNRELATED_SETTING", "ignored")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.URL != "http://from-env:8000" {
		t.Fatalf("model url = %q", cfg.Model.URL)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, want) {
		t.Fatalf("cors origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Ranker.ModelLimit != 1 {
		t.Fatalf("model limit = %d", cfg.Ranker.ModelLimit)
	}
}

func TestLoadUsesConfigPathEnv(t *testing.T) {
	path := writeFile(t, "catalog:\n  path: /srv/catalog.yaml\n")
	t.Setenv(PathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Catalog.Path != "/srv/catalog.yaml" {
		t.Fatalf("catalog path = %q", cfg.Catalog.Path)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	tests := map[string]string{
		"fallback":       "model:\n  fallback: magic\n",
		"usage policy":   "rules:\n  usage_policy: lenient\n",
		"weights":        "rules:\n  weights:\n    usage: 0.9\n",
		"sample ratio":   "tracing:\n  sample_ratio: 2\n",
		"no limits":      "ranker:\n  model_limit: 0\n  rule_limit: 0\n",
		"store no path":  "store:\n  enabled: true\n  path: \"\"\n",
		"threshold":      "ranker:\n  rule_threshold: 1.5\n",
		"log format":     "logging:\n  format: xml\n",
		"model url":      "model:\n  url: not a url\n",
		"zero body size": "server:\n  body_limit: 0\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFile(writeFile(t, body)); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}

func TestRulesConfigAppliesOverrides(t *testing.T) {
	cfg := Default()
	cfg.Rules.UsagePolicy = rules.UsagePolicyNeutral
	rc := cfg.RulesConfig()
	if rc.UsagePolicy != rules.UsagePolicyNeutral {
		t.Fatalf("usage policy not applied")
	}
	if err := rc.Validate(); err != nil {
		t.Fatalf("rules config invalid: %v", err)
	}
}
