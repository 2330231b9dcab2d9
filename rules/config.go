package rules

import (
	"fmt"
	"math"

	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/survey"
)

// Weights is the weight vector applied to the five sub-scores. Weights must
// be non-negative and sum to 1.
type Weights struct {
	Usage      float64 `json:"usage" koanf:"usage" validate:"gte=0,lte=1"`
	Budget     float64 `json:"budget" koanf:"budget" validate:"gte=0,lte=1"`
	Need       float64 `json:"need" koanf:"need" validate:"gte=0,lte=1"`
	Preference float64 `json:"preference" koanf:"preference" validate:"gte=0,lte=1"`
	Device     float64 `json:"device" koanf:"device" validate:"gte=0,lte=1"`
}

// DefaultWeights: usage 30%, budget 25%, need 20%, preference 15%, device 10%.
func DefaultWeights() Weights {
	return Weights{
		Usage:      0.30,
		Budget:     0.25,
		Need:       0.20,
		Preference: 0.15,
		Device:     0.10,
	}
}

const weightTolerance = 1e-3

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Usage + w.Budget + w.Need + w.Preference + w.Device
}

// Validate checks sign and total.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"usage": w.Usage, "budget": w.Budget, "need": w.Need,
		"preference": w.Preference, "device": w.Device,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidWeights, name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f", ErrInvalidWeights, sum)
	}
	return nil
}

// UsagePolicy selects the usage sub-score for packages no selected usage
// option points at.
type UsagePolicy string

const (
	// UsagePolicyStrict scores non-matching packages 0.
	UsagePolicyStrict UsagePolicy = "strict"
	// UsagePolicyNeutral scores non-matching packages 0.5.
	UsagePolicyNeutral UsagePolicy = "neutral"
)

// Default returns the no-match usage sub-score for the policy.
func (p UsagePolicy) Default() float64 {
	if p == UsagePolicyNeutral {
		return 0.5
	}
	return 0
}

// KeywordRule maps a lower-case keyword to the categories (or quota labels)
// it favours.
type KeywordRule struct {
	Keyword     string
	Categories  []string
	QuotaLabels []string
}

func (k KeywordRule) matches(p catalog.Package) bool {
	for _, c := range k.Categories {
		if p.Category == c {
			return true
		}
	}
	for _, q := range k.QuotaLabels {
		if p.QuotaLabel == q {
			return true
		}
	}
	return false
}

// Tier is a device class derived from the phone model.
type Tier string

const (
	TierHighEnd Tier = "high-end"
	TierMid     Tier = "mid-range"
	TierBudget  Tier = "budget"
)

// DeviceRules classifies phones and scores packages per tier.
type DeviceRules struct {
	HighEndKeywords  []string
	MidRangeKeywords []string
	// HighEndMinPrice is the price at which a package suits a high-end phone.
	HighEndMinPrice  int
	MidCategories    []string
	BudgetCategories []string
	HighEndMiss      float64
	MidMiss          float64
	BudgetMiss       float64
}

// Config holds every table the rule scorer consults.
type Config struct {
	Weights           Weights
	UsagePolicy       UsagePolicy
	UsageCategories   map[string][]string
	BudgetCeilings    map[string]int
	DefaultCeiling    int
	NeedRules         []KeywordRule
	NeedDefault       float64
	PreferenceRules   []KeywordRule
	PreferenceDefault float64
	Device            DeviceRules
}

// DefaultConfig returns the production scoring tables.
func DefaultConfig() Config {
	return Config{
		Weights:     DefaultWeights(),
		UsagePolicy: UsagePolicyStrict,
		UsageCategories: map[string][]string{
			survey.UsageGaming:     {catalog.CategoryGaming},
			survey.UsageStreaming:  {catalog.CategoryStream},
			survey.UsageBrowsing:   {catalog.CategorySocial, catalog.CategoryHemat, catalog.CategoryStable},
			survey.UsageConference: {catalog.CategoryWork, catalog.CategoryStable},
			survey.UsageTransfer:   {catalog.CategoryUnlimited},
			survey.UsageIoT:        {catalog.CategoryIoT},
		},
		BudgetCeilings: map[string]int{
			survey.BudgetUnder25k:  25000,
			survey.Budget25To50k:   50000,
			survey.Budget50To100k:  100000,
			survey.Budget100To250k: 250000,
			survey.BudgetOver250k:  500000,
		},
		DefaultCeiling: 100000,
		NeedRules: []KeywordRule{
			{Keyword: "stabil", Categories: []string{catalog.CategoryStable}},
			{Keyword: "murah", Categories: []string{catalog.CategoryHemat}},
			{Keyword: "unlimited", Categories: []string{catalog.CategoryUnlimited}},
			{Keyword: "telepon", Categories: []string{catalog.CategoryCall}},
			{Keyword: "kuota besar", Categories: []string{catalog.CategoryUnlimited}},
		},
		NeedDefault: 0.5,
		PreferenceRules: []KeywordRule{
			{Keyword: "unlimited", Categories: []string{catalog.CategoryUnlimited}},
			{Keyword: "kuota besar", QuotaLabels: []string{"50GB", "80GB", "100GB"}},
			{Keyword: "hemat", Categories: []string{catalog.CategoryHemat}},
			{Keyword: "bundling", Categories: []string{catalog.CategoryCall}},
			{Keyword: "stabil", Categories: []string{catalog.CategoryStable, catalog.CategoryWork}},
		},
		PreferenceDefault: 0.5,
		Device: DeviceRules{
			HighEndKeywords:  []string{"pro max", "galaxy s", "find", "gt"},
			MidRangeKeywords: []string{"galaxy a", "reno", "redmi note"},
			HighEndMinPrice:  70000,
			MidCategories:    []string{catalog.CategoryStable, catalog.CategoryStream},
			BudgetCategories: []string{catalog.CategoryHemat, catalog.CategorySocial},
			HighEndMiss:      0.3,
			MidMiss:          0.5,
			BudgetMiss:       0.3,
		},
	}
}

// Validate checks the weight vector and ceilings.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	switch c.UsagePolicy {
	case UsagePolicyStrict, UsagePolicyNeutral:
	default:
		return fmt.Errorf("%w: unknown usage policy %q", ErrInvalidConfig, c.UsagePolicy)
	}
	if c.DefaultCeiling <= 0 {
		return fmt.Errorf("%w: default ceiling must be positive", ErrInvalidConfig)
	}
	for bracket, ceiling := range c.BudgetCeilings {
		if ceiling <= 0 {
			return fmt.Errorf("%w: ceiling for %q must be positive", ErrInvalidConfig, bracket)
		}
	}
	return nil
}
