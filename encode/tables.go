package encode

import "github.com/sphinxnet/recommender/survey"

// Lookup maps the known options of one field to scores. Unknown values map
// to Default.
type Lookup struct {
	Values  map[string]float64
	Default float64
}

// Get returns the score for value.
func (l Lookup) Get(value string) float64 {
	if v, ok := l.Values[value]; ok {
		return v
	}
	return l.Default
}

// Tables groups the per-field lookups and the usage option order.
type Tables struct {
	PhoneModel    Lookup
	Gender        Lookup
	Reason        Lookup
	CallFrequency Lookup
	Wifi          Lookup
	Housing       Lookup
	Budget        Lookup
	Quota         Lookup
	Preference    Lookup
	Roaming       Lookup
	UsageOptions  []string
}

// DefaultTables returns the tables the bundled model was trained against.
// Higher numbers mean a better phone, a bigger budget or a heavier need.
func DefaultTables() Tables {
	return Tables{
		PhoneModel: Lookup{Default: 4, Values: map[string]float64{
			survey.PhoneIPhoneProMax: 10,
			survey.PhoneIPhone12:     9,
			survey.PhoneIPhone11:     8,
			survey.PhoneGalaxyS:      9,
			survey.PhoneGalaxyA:      7,
			survey.PhoneOppoRenoFind: 7,
			survey.PhoneRedmiNote:    6,
			survey.PhoneXiaomiMiPoco: 7,
			survey.PhoneVivoVS:       6,
			survey.PhoneRealmeGTPro:  7,
			survey.PhoneOther:        4,
		}},
		Gender: Lookup{Default: 1, Values: map[string]float64{
			survey.GenderMale:   1,
			survey.GenderFemale: 0,
		}},
		Reason: Lookup{Default: 2, Values: map[string]float64{
			survey.ReasonStable:     5,
			survey.ReasonCheap:      3,
			survey.ReasonFast:       4,
			survey.ReasonLargeQuota: 4,
			survey.ReasonCalls:      3,
			survey.ReasonOther:      2,
		}},
		CallFrequency: Lookup{Default: 1, Values: map[string]float64{
			survey.FrequencyOften:     5,
			survey.FrequencySometimes: 3,
			survey.FrequencyRarely:    1,
			survey.FrequencyNever:     0,
		}},
		Wifi: Lookup{Default: 0, Values: map[string]float64{
			survey.WifiHome:   3,
			survey.WifiOffice: 3,
			survey.WifiNone:   0,
		}},
		Housing: Lookup{Default: 2, Values: map[string]float64{
			survey.HousingOwnHome:   5,
			survey.HousingApartment: 4,
			survey.HousingBoarding:  3,
			survey.HousingOther:     2,
		}},
		Budget: Lookup{Default: 3, Values: map[string]float64{
			survey.BudgetUnder25k:  1,
			survey.Budget25To50k:   2,
			survey.Budget50To100k:  3,
			survey.Budget100To250k: 4,
			survey.BudgetOver250k:  5,
		}},
		Quota: Lookup{Default: 3, Values: map[string]float64{
			survey.QuotaUnder10: 1,
			survey.Quota10To25:  2,
			survey.Quota25To50:  3,
			survey.Quota50To100: 4,
			survey.QuotaOver100: 5,
		}},
		Preference: Lookup{Default: 2, Values: map[string]float64{
			survey.PreferenceEntry:     1,
			survey.PreferenceStandard:  2,
			survey.PreferenceLarge:     4,
			survey.PreferenceUnlimited: 5,
			survey.PreferenceStable:    4,
		}},
		Roaming: Lookup{Default: 0, Values: map[string]float64{
			survey.RoamingOften:     3,
			survey.RoamingSometimes: 2,
			survey.RoamingNever:     0,
		}},
		UsageOptions: survey.UsageOptions(),
	}
}

// singleValued pairs each schema field with its lookup and survey accessor.
func (t Tables) singleValued() []fieldEncoder {
	return []fieldEncoder{
		{survey.FieldPhoneModel, t.PhoneModel, func(r survey.Response) string { return r.PhoneModel }},
		{survey.FieldGender, t.Gender, func(r survey.Response) string { return r.Gender }},
		{survey.FieldReason, t.Reason, func(r survey.Response) string { return r.Reason }},
		{survey.FieldCallFrequency, t.CallFrequency, func(r survey.Response) string { return r.CallFrequency }},
		{survey.FieldWifi, t.Wifi, func(r survey.Response) string { return r.Wifi }},
		{survey.FieldHousing, t.Housing, func(r survey.Response) string { return r.Housing }},
		{survey.FieldBudget, t.Budget, func(r survey.Response) string { return r.Budget }},
		{survey.FieldQuota, t.Quota, func(r survey.Response) string { return r.Quota }},
		{survey.FieldPreference, t.Preference, func(r survey.Response) string { return r.Preference }},
		{survey.FieldRoaming, t.Roaming, func(r survey.Response) string { return r.Roaming }},
	}
}

type fieldEncoder struct {
	name   string
	lookup Lookup
	value  func(survey.Response) string
}
