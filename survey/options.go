package survey

// Answer options offered by the questionnaire.
const (
	PhoneIPhoneProMax   = "iPhone (13/14/15 Pro Max)"
	PhoneIPhone12       = "iPhone (12/13/14)"
	PhoneIPhone11       = "iPhone (11/XS/XR)"
	PhoneGalaxyS        = "Samsung Galaxy S Series"
	PhoneGalaxyA        = "Samsung Galaxy A Series"
	PhoneOppoRenoFind   = "OPPO Reno/Find Series"
	PhoneRedmiNote      = "Xiaomi Redmi Note Series"
	PhoneXiaomiMiPoco   = "Xiaomi Mi/Poco Series"
	PhoneVivoVS         = "Vivo V/S Series"
	PhoneRealmeGTPro    = "Realme GT/Pro Series"
	PhoneOther          = "Lainnya"
	GenderMale          = "Laki-laki"
	GenderFemale        = "Perempuan"
	ReasonStable        = "Mencari internet yang stabil"
	ReasonCheap         = "Mencari internet yang murah"
	ReasonFast          = "Mencari internet yang cepat"
	ReasonLargeQuota    = "Mencari kuota besar"
	ReasonCalls         = "Mencari paket telepon"
	ReasonOther         = "Lainnya"
	FrequencyOften      = "Sering"
	FrequencySometimes  = "Kadang"
	FrequencyRarely     = "Jarang"
	FrequencyNever      = "Tidak pernah"
	WifiHome            = "Ya dirumah"
	WifiOffice          = "Ya di kantor"
	WifiNone            = "Tidak"
	HousingOwnHome      = "Rumah pribadi"
	HousingApartment    = "Apartemen"
	HousingBoarding     = "Kost/kontrakan"
	HousingOther        = "Lainnya"
	BudgetUnder25k      = "< Rp25.000"
	Budget25To50k       = "Rp25.000–Rp50.000"
	Budget50To100k      = "Rp.50.000-Rp100.000"
	Budget100To250k     = "Rp.100.000–Rp250.000"
	BudgetOver250k      = "> Rp250.000"
	QuotaUnder10        = "< 10 GB"
	Quota10To25         = "10–25 GB"
	Quota25To50         = "25-50 GB"
	Quota50To100        = "50–100 GB"
	QuotaOver100        = "> 100 GB"
	PreferenceEntry     = "Hemat/entry-level"
	PreferenceStandard  = "Standar"
	PreferenceLarge     = "Kuota besar"
	PreferenceUnlimited = "Unlimited"
	PreferenceStable    = "Stabil/cepat"
	RoamingOften        = "Sering"
	RoamingSometimes    = "Kadang"
	RoamingNever        = "Tidak"
)

// Usage options, in the order the encoder emits them.
const (
	UsageGaming     = "Gaming online"
	UsageStreaming  = "Streaming video (YouTube, Netflix, dll.)"
	UsageBrowsing   = "Browsing & media sosial"
	UsageConference = "Video conference (Zoom, Teams, dll.)"
	UsageTransfer   = "Download & upload file besar"
	UsageIoT        = "Smart home / IoT"
	UsageOther      = "Lainnya"
)

// UsageOptions lists every usage option in encoder order.
func UsageOptions() []string {
	return []string{
		UsageGaming,
		UsageStreaming,
		UsageBrowsing,
		UsageConference,
		UsageTransfer,
		UsageIoT,
		UsageOther,
	}
}
