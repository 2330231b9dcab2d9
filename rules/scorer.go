// Package rules implements the weighted heuristic scorer: five independent
// sub-scores per package combined with a fixed weight vector.
package rules

import (
	"errors"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/survey"
)

var (
	// ErrInvalidWeights indicates a weight vector that is negative or does not sum to 1.
	ErrInvalidWeights = errors.New("invalid rule weights")
	// ErrInvalidConfig indicates an unusable scorer configuration.
	ErrInvalidConfig = errors.New("invalid rule config")
)

// Breakdown carries the sub-scores and the combined score for one package.
type Breakdown struct {
	Usage      float64 `json:"usage_match"`
	Budget     float64 `json:"budget_fit"`
	Need       float64 `json:"need_match"`
	Preference float64 `json:"preference_match"`
	Device     float64 `json:"device_relevance"`
	Total      float64 `json:"total"`
}

// Scorer computes rule scores. It is immutable and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer validates cfg and returns a scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score rates one package against a survey. r must already be normalized;
// ScoreAll normalizes for callers holding raw answers.
func (s *Scorer) Score(r survey.Response, p catalog.Package) Breakdown {
	b := Breakdown{
		Usage:      s.UsageMatch(r, p),
		Budget:     s.BudgetFit(r, p),
		Need:       s.NeedMatch(r, p),
		Preference: s.PreferenceMatch(r, p),
		Device:     s.DeviceRelevance(r, p),
	}
	w := s.cfg.Weights
	b.Total = clamp01(b.Usage*w.Usage +
		b.Budget*w.Budget +
		b.Need*w.Need +
		b.Preference*w.Preference +
		b.Device*w.Device)
	return b
}

// ScoreAll scores every package in order.
func (s *Scorer) ScoreAll(r survey.Response, pkgs []catalog.Package) []Breakdown {
	r = r.Normalize()
	out := make([]Breakdown, len(pkgs))
	for i, p := range pkgs {
		out[i] = s.Score(r, p)
	}
	return out
}

// UsageMatch is 1 when a selected usage option implies the package
// category, otherwise the usage policy default.
func (s *Scorer) UsageMatch(r survey.Response, p catalog.Package) float64 {
	for _, u := range r.Usage {
		for _, c := range s.cfg.UsageCategories[u] {
			if c == p.Category {
				return 1
			}
		}
	}
	return s.cfg.UsagePolicy.Default()
}

// Ceiling returns the price ceiling for a budget bracket.
func (s *Scorer) Ceiling(bracket string) int {
	if c, ok := s.cfg.BudgetCeilings[bracket]; ok {
		return c
	}
	return s.cfg.DefaultCeiling
}

// BudgetFit is 1 within the ceiling and decays linearly to 0 at twice it.
func (s *Scorer) BudgetFit(r survey.Response, p catalog.Package) float64 {
	ceiling := float64(s.Ceiling(r.Budget))
	price := float64(p.Price)
	if price <= ceiling {
		return 1
	}
	over := (price - ceiling) / ceiling
	return math.Max(0, 1-over)
}

// NeedMatch checks reason keywords against the package category.
func (s *Scorer) NeedMatch(r survey.Response, p catalog.Package) float64 {
	return s.keywordScore(r.Reason, p, s.cfg.NeedRules, s.cfg.NeedDefault)
}

// PreferenceMatch checks preference keywords against category or quota.
func (s *Scorer) PreferenceMatch(r survey.Response, p catalog.Package) float64 {
	return s.keywordScore(r.Preference, p, s.cfg.PreferenceRules, s.cfg.PreferenceDefault)
}

// Tier classifies a phone model by keyword.
func (s *Scorer) Tier(phone string) Tier {
	phone = lower(phone)
	if containsAny(phone, s.cfg.Device.HighEndKeywords) {
		return TierHighEnd
	}
	if containsAny(phone, s.cfg.Device.MidRangeKeywords) {
		return TierMid
	}
	return TierBudget
}

// DeviceRelevance scores a package for the phone's tier.
func (s *Scorer) DeviceRelevance(r survey.Response, p catalog.Package) float64 {
	d := s.cfg.Device
	switch s.Tier(r.PhoneModel) {
	case TierHighEnd:
		if p.Price >= d.HighEndMinPrice {
			return 1
		}
		return d.HighEndMiss
	case TierMid:
		if inList(p.Category, d.MidCategories) {
			return 1
		}
		return d.MidMiss
	default:
		if inList(p.Category, d.BudgetCategories) {
			return 1
		}
		return d.BudgetMiss
	}
}

func (s *Scorer) keywordScore(text string, p catalog.Package, rules []KeywordRule, def float64) float64 {
	text = lower(text)
	for _, rule := range rules {
		if strings.Contains(text, rule.Keyword) && rule.matches(p) {
			return 1
		}
	}
	return def
}

// lower builds a fresh Caser per call; Casers are stateful.
func lower(s string) string {
	return cases.Lower(language.Indonesian).String(s)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func inList(v string, list []string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
