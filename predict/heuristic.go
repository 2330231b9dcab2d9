package predict

import (
	"context"
	"fmt"

	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/encode"
	"github.com/sphinxnet/recommender/survey"
)

// HeuristicName identifies the fallback backend.
const HeuristicName = "heuristic"

// heuristicScale normalises phone + budget scores (max 10 + 5) into roughly
// the unit interval.
const heuristicScale = 12.0

// categoryBoosts lifts packages whose category matches a selected usage.
var categoryBoosts = map[string]struct {
	usage string
	boost float64
}{
	catalog.CategoryGaming: {survey.UsageGaming, 0.2},
	catalog.CategoryStream: {survey.UsageStreaming, 0.2},
	catalog.CategoryWork:   {survey.UsageConference, 0.2},
	catalog.CategorySocial: {survey.UsageBrowsing, 0.1},
}

// Heuristic is a deterministic stand-in for a trained model: every package
// starts from the device and budget signal and gains a boost when its
// category matches a selected usage.
type Heuristic struct {
	categories []string
	phone      int
	budget     int
	usage      map[string]int
}

// NewHeuristic binds the heuristic to a catalog and vector layout.
func NewHeuristic(c *catalog.Catalog, s encode.Schema) (*Heuristic, error) {
	phone, ok := s.Index(survey.FieldPhoneModel)
	if !ok {
		return nil, fmt.Errorf("schema has no %s field", survey.FieldPhoneModel)
	}
	budget, ok := s.Index(survey.FieldBudget)
	if !ok {
		return nil, fmt.Errorf("schema has no %s field", survey.FieldBudget)
	}
	usage := make(map[string]int)
	for _, b := range categoryBoosts {
		if i, ok := s.Index(encode.UsageField(b.usage)); ok {
			usage[b.usage] = i
		}
	}

	cats := make([]string, c.Len())
	for i := range cats {
		cats[i] = c.At(i).Category
	}
	return &Heuristic{categories: cats, phone: phone, budget: budget, usage: usage}, nil
}

func (h *Heuristic) Name() string { return HeuristicName }

// PredictConfidences implements Backend.
func (h *Heuristic) PredictConfidences(_ context.Context, v encode.Vector) ([]float64, error) {
	if len(v) <= h.phone || len(v) <= h.budget {
		return nil, fmt.Errorf("%w: feature vector has %d entries", ErrShapeMismatch, len(v))
	}
	base := (v[h.phone] + v[h.budget]) / heuristicScale
	out := make([]float64, len(h.categories))
	for i, cat := range h.categories {
		conf := base
		if b, ok := categoryBoosts[cat]; ok {
			if idx, ok := h.usage[b.usage]; ok && idx < len(v) && v[idx] > 0 {
				conf += b.boost
			}
		}
		out[i] = min(conf, 1)
	}
	return out, nil
}
