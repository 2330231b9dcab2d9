// Package survey models the questionnaire answers used as scoring input.
package survey

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidShape indicates the submitted survey is not a JSON object.
var ErrInvalidShape = errors.New("survey must be a JSON object")

// Field names accepted on the wire.
const (
	FieldPhoneModel    = "phone_model"
	FieldGender        = "gender"
	FieldReason        = "reason"
	FieldCallFrequency = "call_frequency"
	FieldWifi          = "wifi"
	FieldHousing       = "housing"
	FieldUsage         = "usage"
	FieldQuota         = "quota"
	FieldBudget        = "budget"
	FieldPreference    = "preference"
	FieldRoaming       = "roaming"
)

// Response holds one normalised survey submission. Every field is populated;
// absent answers carry the value from Defaults.
type Response struct {
	PhoneModel    string   `json:"phone_model"`
	Gender        string   `json:"gender"`
	Reason        string   `json:"reason"`
	CallFrequency string   `json:"call_frequency"`
	Wifi          string   `json:"wifi"`
	Housing       string   `json:"housing"`
	Usage         []string `json:"usage"`
	Quota         string   `json:"quota"`
	Budget        string   `json:"budget"`
	Preference    string   `json:"preference"`
	Roaming       string   `json:"roaming"`
}

// Answers longer than these rune counts are treated as missing.
const (
	maxAnswerLen = 128
	maxReasonLen = 512
	// MaxUsageItems bounds the multi-select usage list; extra items are dropped.
	MaxUsageItems = 16
)

// Defaults returns the value substituted for each missing field.
func Defaults() Response {
	return Response{
		PhoneModel:    PhoneOther,
		Gender:        GenderMale,
		Reason:        ReasonStable,
		CallFrequency: FrequencyRarely,
		Wifi:          WifiNone,
		Housing:       HousingOwnHome,
		Usage:         []string{},
		Quota:         Quota25To50,
		Budget:        Budget50To100k,
		Preference:    PreferenceStandard,
		Roaming:       RoamingNever,
	}
}

// Parse decodes a raw request body. An empty body is treated as an empty
// object; anything that is not a JSON object yields ErrInvalidShape.
func Parse(raw []byte) (Response, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Defaults(), nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return Response{}, fmt.Errorf("%w: got %s", ErrInvalidShape, jsonKind(doc))
	}
	return FromMap(m), nil
}

// FromMap builds a Response from a decoded JSON object. Values of the wrong
// type are treated as missing.
func FromMap(m map[string]any) Response {
	r := Defaults()
	setString(m, FieldPhoneModel, maxAnswerLen, &r.PhoneModel)
	setString(m, FieldGender, maxAnswerLen, &r.Gender)
	setString(m, FieldReason, maxReasonLen, &r.Reason)
	setString(m, FieldCallFrequency, maxAnswerLen, &r.CallFrequency)
	setString(m, FieldWifi, maxAnswerLen, &r.Wifi)
	setString(m, FieldHousing, maxAnswerLen, &r.Housing)
	setString(m, FieldQuota, maxAnswerLen, &r.Quota)
	setString(m, FieldBudget, maxAnswerLen, &r.Budget)
	setString(m, FieldPreference, maxAnswerLen, &r.Preference)
	setString(m, FieldRoaming, maxAnswerLen, &r.Roaming)
	r.Usage = usageList(m[FieldUsage])
	return r
}

// Normalize fills empty fields with defaults and cleans every value.
func (r Response) Normalize() Response {
	d := Defaults()
	pick := func(v, def string) string {
		if v = fit(v, maxAnswerLen); v == "" {
			return def
		}
		return v
	}
	out := Response{
		PhoneModel:    pick(r.PhoneModel, d.PhoneModel),
		Gender:        pick(r.Gender, d.Gender),
		Reason:        d.Reason,
		CallFrequency: pick(r.CallFrequency, d.CallFrequency),
		Wifi:          pick(r.Wifi, d.Wifi),
		Housing:       pick(r.Housing, d.Housing),
		Quota:         pick(r.Quota, d.Quota),
		Budget:        pick(r.Budget, d.Budget),
		Preference:    pick(r.Preference, d.Preference),
		Roaming:       pick(r.Roaming, d.Roaming),
		Usage:         make([]string, 0, min(len(r.Usage), MaxUsageItems)),
	}
	if reason := fit(r.Reason, maxReasonLen); reason != "" {
		out.Reason = reason
	}
	for _, u := range r.Usage {
		if len(out.Usage) == MaxUsageItems {
			break
		}
		if u = fit(u, maxAnswerLen); u != "" {
			out.Usage = append(out.Usage, u)
		}
	}
	return out
}

// HasUsage reports whether option was selected.
func (r Response) HasUsage(option string) bool {
	for _, u := range r.Usage {
		if u == option {
			return true
		}
	}
	return false
}

// Key returns a stable digest of the normalised response.
func (r Response) Key() string {
	raw, _ := json.Marshal(r.Normalize())
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Clean applies NFKC normalisation and collapses whitespace.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// fit cleans s and drops it when it exceeds limit runes.
func fit(s string, limit int) string {
	s = Clean(s)
	if utf8.RuneCountInString(s) > limit {
		return ""
	}
	return s
}

func setString(m map[string]any, key string, limit int, dst *string) {
	s, ok := m[key].(string)
	if !ok {
		return
	}
	if s = fit(s, limit); s != "" {
		*dst = s
	}
}

func usageList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if s := fit(t, maxAnswerLen); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			if len(out) == MaxUsageItems {
				break
			}
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = fit(s, maxAnswerLen); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
