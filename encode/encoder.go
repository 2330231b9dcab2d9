// Package encode turns survey answers into the fixed-length numeric vector
// consumed by predictive backends.
//
// The vector layout is part of the contract with any trained artifact: the
// ten single-valued fields in Schema order followed by one bit per usage
// option. Encoding never fails; on an internal error the encoder returns
// DefaultVector.
package encode

import (
	"github.com/sphinxnet/recommender/survey"
)

// Vector is an encoded survey.
type Vector []float64

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Schema names each position of a Vector.
type Schema struct {
	fields []string
	index  map[string]int
}

// Fields returns the ordered field names.
func (s Schema) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the vector length.
func (s Schema) Len() int {
	return len(s.fields)
}

// Index returns the position of a field. Usage bits are named
// "usage:<option>".
func (s Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// UsageField returns the schema name of a usage option bit.
func UsageField(option string) string {
	return survey.FieldUsage + ":" + option
}

// Encoder maps surveys onto Vectors. It is immutable and safe for
// concurrent use.
type Encoder struct {
	fields     []fieldEncoder
	usage      []string
	schema     Schema
	defaultVec Vector
}

// NewEncoder builds an encoder over the given tables.
func NewEncoder(t Tables) *Encoder {
	e := &Encoder{
		fields: t.singleValued(),
		usage:  append([]string(nil), t.UsageOptions...),
	}

	names := make([]string, 0, len(e.fields)+len(e.usage))
	for _, f := range e.fields {
		names = append(names, f.name)
	}
	for _, opt := range e.usage {
		names = append(names, UsageField(opt))
	}
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	e.schema = Schema{fields: names, index: idx}

	def, err := e.encode(survey.Defaults())
	if err != nil {
		def = make(Vector, len(names))
	}
	e.defaultVec = def
	return e
}

// Schema returns the vector layout.
func (e *Encoder) Schema() Schema {
	return e.schema
}

// DefaultVector is the encoding of survey.Defaults(); it is also returned
// whenever encoding fails.
func (e *Encoder) DefaultVector() Vector {
	return e.defaultVec.Clone()
}

// Encode converts a survey into a Vector.
func (e *Encoder) Encode(r survey.Response) Vector {
	v, err := e.encode(r.Normalize())
	if err != nil {
		return e.DefaultVector()
	}
	return v
}

// EncodeUsage returns one bit per known usage option.
func (e *Encoder) EncodeUsage(selected []string) Vector {
	set := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		set[survey.Clean(s)] = struct{}{}
	}
	out := make(Vector, len(e.usage))
	for i, opt := range e.usage {
		if _, ok := set[opt]; ok {
			out[i] = 1
		}
	}
	return out
}

func (e *Encoder) encode(r survey.Response) (v Vector, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v, err = nil, errEncode
		}
	}()

	v = make(Vector, 0, e.schema.Len())
	for _, f := range e.fields {
		v = append(v, f.lookup.Get(f.value(r)))
	}
	v = append(v, e.EncodeUsage(r.Usage)...)
	if len(v) != e.schema.Len() {
		return nil, errEncode
	}
	return v, nil
}
