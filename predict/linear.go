package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	json "github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"

	"github.com/sphinxnet/recommender/catalog"
	"github.com/sphinxnet/recommender/encode"
)

// ErrInvalidArtifact indicates a model artifact that cannot be bound to the
// catalog and vector layout.
var ErrInvalidArtifact = errors.New("invalid model artifact")

// Activation names accepted in artifacts.
const (
	ActivationSoftmax = "softmax"
	ActivationSigmoid = "sigmoid"
)

// Artifact is the on-disk form of a linear model: one weight row and bias
// per class. Features names the input columns using schema field names;
// when empty the rows must match the schema length and order.
type Artifact struct {
	Version    int         `json:"version"`
	Features   []string    `json:"features,omitempty"`
	Classes    []string    `json:"classes"`
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// Linear evaluates a multi-class linear model. Class rows are re-ordered
// onto the catalog at load time; classes the catalog lacks still take part
// in softmax normalisation, packages the artifact lacks score 0.
type Linear struct {
	name       string
	width      int
	columns    []int
	weights    [][]float64
	bias       []float64
	slot       []int
	size       int
	activation string
}

// LoadLinear reads and binds an artifact file.
func LoadLinear(path string, c *catalog.Catalog, s encode.Schema) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidArtifact, path, err)
	}
	l, err := NewLinear(a, c, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// NewLinear binds an artifact to a catalog and schema.
func NewLinear(a Artifact, c *catalog.Catalog, s encode.Schema) (*Linear, error) {
	if len(a.Classes) == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrInvalidArtifact)
	}
	if len(a.Weights) != len(a.Classes) {
		return nil, fmt.Errorf("%w: %d weight rows for %d classes", ErrInvalidArtifact, len(a.Weights), len(a.Classes))
	}
	if a.Bias != nil && len(a.Bias) != len(a.Classes) {
		return nil, fmt.Errorf("%w: %d biases for %d classes", ErrInvalidArtifact, len(a.Bias), len(a.Classes))
	}
	activation := a.Activation
	if activation == "" {
		activation = ActivationSoftmax
	}
	if activation != ActivationSoftmax && activation != ActivationSigmoid {
		return nil, fmt.Errorf("%w: unknown activation %q", ErrInvalidArtifact, a.Activation)
	}

	columns, err := bindColumns(a.Features, s)
	if err != nil {
		return nil, err
	}
	for i, row := range a.Weights {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: class %q has %d weights, want %d", ErrInvalidArtifact, a.Classes[i], len(row), len(columns))
		}
	}

	l := &Linear{
		name:       "linear",
		width:      s.Len(),
		columns:    columns,
		weights:    a.Weights,
		bias:       a.Bias,
		slot:       make([]int, len(a.Classes)),
		size:       c.Len(),
		activation: activation,
	}
	if l.bias == nil {
		l.bias = make([]float64, len(a.Classes))
	}
	matched := 0
	seen := make(map[string]struct{}, len(a.Classes))
	for i, class := range a.Classes {
		if _, dup := seen[class]; dup {
			return nil, fmt.Errorf("%w: duplicate class %q", ErrInvalidArtifact, class)
		}
		seen[class] = struct{}{}
		l.slot[i] = -1
		if idx, ok := c.Index(class); ok {
			l.slot[i] = idx
			matched++
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("%w: no class matches a catalog package", ErrInvalidArtifact)
	}
	return l, nil
}

// bindColumns maps artifact feature names onto schema positions.
func bindColumns(features []string, s encode.Schema) ([]int, error) {
	if len(features) == 0 {
		cols := make([]int, s.Len())
		for i := range cols {
			cols[i] = i
		}
		return cols, nil
	}
	cols := make([]int, len(features))
	for i, f := range features {
		idx, ok := s.Index(f)
		if !ok {
			return nil, fmt.Errorf("%w: unknown feature %q", ErrInvalidArtifact, f)
		}
		cols[i] = idx
	}
	return cols, nil
}

func (l *Linear) Name() string { return l.name }

// PredictConfidences implements Backend.
func (l *Linear) PredictConfidences(_ context.Context, v encode.Vector) ([]float64, error) {
	if len(v) != l.width {
		return nil, fmt.Errorf("%w: feature vector has %d entries, want %d", ErrShapeMismatch, len(v), l.width)
	}
	x := make([]float64, len(l.columns))
	for i, col := range l.columns {
		x[i] = v[col]
	}

	logits := make([]float64, len(l.weights))
	for i, row := range l.weights {
		logits[i] = floats.Dot(row, x) + l.bias[i]
	}
	switch l.activation {
	case ActivationSigmoid:
		for i, z := range logits {
			logits[i] = 1 / (1 + math.Exp(-z))
		}
	default:
		softmax(logits)
	}

	out := make([]float64, l.size)
	for i, p := range logits {
		if l.slot[i] >= 0 {
			out[l.slot[i]] = p
		}
	}
	return out, nil
}

// softmax normalises z in place.
func softmax(z []float64) {
	peak := floats.Max(z)
	for i := range z {
		z[i] = math.Exp(z[i] - peak)
	}
	floats.Scale(1/floats.Sum(z), z)
}
