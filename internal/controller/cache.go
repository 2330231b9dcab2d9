package controller

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/sphinxnet/recommender/internal/contract"
)

const defaultCacheEntries = 10000

type cacheEntry struct {
	result   contract.Result
	storedAt time.Time
}

// Cache is an in-memory TTL cache of ranked results keyed by survey.
type Cache struct {
	ttl        time.Duration
	maxEntries int

	mu    sync.RWMutex
	store map[string]cacheEntry
}

// NewCache returns a cache; zero ttl disables caching.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		store:      make(map[string]cacheEntry),
	}
}

// Get returns a fresh entry.
func (c *Cache) Get(key string) (contract.Result, bool) {
	if c == nil || c.ttl <= 0 {
		return contract.Result{}, false
	}

	c.mu.RLock()
	entry, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return contract.Result{}, false
	}
	if time.Since(entry.storedAt) > c.ttl {
		c.mu.Lock()
		delete(c.store, key)
		c.mu.Unlock()
		return contract.Result{}, false
	}
	return cloneResult(entry.result), true
}

// Set stores a copy of result.
func (c *Cache) Set(key string, result contract.Result) {
	if c == nil || c.ttl <= 0 {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.store[key] = cacheEntry{result: cloneResult(result), storedAt: now}
}

// Len returns the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// evictLocked drops expired entries, then the oldest one if still full.
func (c *Cache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, e := range c.store {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.store, k)
			continue
		}
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.storedAt
		}
	}
	if len(c.store) >= c.maxEntries && oldestKey != "" {
		delete(c.store, oldestKey)
	}
}

// BuildCacheKey hashes the survey key with everything else that influences
// the ranking.
func BuildCacheKey(surveyKey string, cfg Config, backend string) string {
	payload := map[string]any{
		"survey":          surveyKey,
		"model_limit":     cfg.ModelLimit,
		"model_threshold": cfg.ModelThreshold,
		"rule_limit":      cfg.RuleLimit,
		"rule_threshold":  cfg.RuleThreshold,
		"max_results":     cfg.Fuse.MaxResults,
		"backend":         backend,
		"version":         cfg.Version,
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func cloneResult(r contract.Result) contract.Result {
	out := r
	if r.Recommendations != nil {
		out.Recommendations = make([]contract.Recommendation, len(r.Recommendations))
		copy(out.Recommendations, r.Recommendations)
		for i := range out.Recommendations {
			rec := &out.Recommendations[i]
			if rec.Confidence != nil {
				conf := *rec.Confidence
				rec.Confidence = &conf
			}
			if rec.Factors != nil {
				factors := *rec.Factors
				rec.Factors = &factors
			}
		}
	}
	return out
}
