package encode

import (
	"reflect"
	"testing"

	"github.com/sphinxnet/recommender/survey"
)

var wantDefault = Vector{4, 1, 5, 1, 0, 5, 3, 3, 2, 0, 0, 0, 0, 0, 0, 0, 0}

func TestSchemaOrder(t *testing.T) {
	e := NewEncoder(DefaultTables())
	s := e.Schema()
	if s.Len() != 17 {
		t.Fatalf("expected 17 features, got %d", s.Len())
	}
	want := []string{
		"phone_model", "gender", "reason", "call_frequency", "wifi",
		"housing", "budget", "quota", "preference", "roaming",
	}
	if got := s.Fields()[:10]; !reflect.DeepEqual(got, want) {
		t.Fatalf("field order = %v, want %v", got, want)
	}
	if i, ok := s.Index(UsageField(survey.UsageGaming)); !ok || i != 10 {
		t.Fatalf("gaming bit at %d (%v), want 10", i, ok)
	}
	if i, ok := s.Index(UsageField(survey.UsageOther)); !ok || i != 16 {
		t.Fatalf("other bit at %d (%v), want 16", i, ok)
	}
}

func TestEncodeDefaultSurvey(t *testing.T) {
	e := NewEncoder(DefaultTables())
	if got := e.DefaultVector(); !reflect.DeepEqual(got, wantDefault) {
		t.Fatalf("DefaultVector = %v, want %v", got, wantDefault)
	}
	if got := e.Encode(survey.Response{}); !reflect.DeepEqual(got, wantDefault) {
		t.Fatalf("Encode(empty) = %v, want %v", got, wantDefault)
	}
	parsed, err := survey.Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.Encode(parsed); !reflect.DeepEqual(got, wantDefault) {
		t.Fatalf("Encode(parsed empty) = %v, want %v", got, wantDefault)
	}
}

func TestEncodeKnownAndUnknownValues(t *testing.T) {
	e := NewEncoder(DefaultTables())
	got := e.Encode(survey.Response{
		PhoneModel:    survey.PhoneIPhoneProMax,
		Gender:        survey.GenderFemale,
		Reason:        "something else entirely",
		CallFrequency: survey.FrequencyOften,
		Wifi:          survey.WifiHome,
		Housing:       survey.HousingBoarding,
		Budget:        survey.BudgetOver250k,
		Quota:         survey.QuotaOver100,
		Preference:    survey.PreferenceUnlimited,
		Roaming:       survey.RoamingOften,
		Usage:         []string{survey.UsageStreaming, survey.UsageIoT, "Unknown usage"},
	})
	want := Vector{10, 0, 2, 5, 3, 3, 5, 5, 5, 3, 0, 1, 0, 0, 0, 1, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Encode = %v, want %v", got, want)
	}
}

func TestEncodeUsage(t *testing.T) {
	e := NewEncoder(DefaultTables())
	got := e.EncodeUsage([]string{survey.UsageGaming, survey.UsageGaming, survey.UsageOther})
	want := Vector{1, 0, 0, 0, 0, 0, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("EncodeUsage = %v, want %v", got, want)
	}
}

func TestEncodeRecoversFromInternalFailure(t *testing.T) {
	e := NewEncoder(DefaultTables())
	e.fields = append(e.fields, fieldEncoder{
		name:  "broken",
		value: func(survey.Response) string { panic("boom") },
	})
	got := e.Encode(survey.Response{PhoneModel: survey.PhoneGalaxyS})
	if !reflect.DeepEqual(got, wantDefault) {
		t.Fatalf("expected default vector on failure, got %v", got)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	e := NewEncoder(DefaultTables())
	r := survey.Response{Budget: survey.BudgetUnder25k, Usage: []string{survey.UsageBrowsing}}
	if !reflect.DeepEqual(e.Encode(r), e.Encode(r)) {
		t.Fatal("expected identical encodings")
	}
}
