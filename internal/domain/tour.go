package domain

// Host is a tour-supplying operator in the reservation system.
type Host struct {
	HostID string `json:"host_id"`
	Name   string `json:"name"`
}

// HostDetails carries operator metadata beyond the listing row.
type HostDetails struct {
	HostID   string `json:"host_id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Website  string `json:"website,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// Tour is identified by (Operator, TourCode). Immutable once fetched within a
// session; the published copy is a serialized snapshot held by the store.
type Tour struct {
	Operator    string     `json:"operator"`
	TourCode    string     `json:"tour_code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Lat         *float64   `json:"lat,omitempty"`
	Lon         *float64   `json:"lon,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	Bases       []Basis    `json:"bases"`
	Times       []TourTime `json:"times"`
}

// Basis is a packaging/pricing tier; Subbasis its sub-tier.
type Basis struct {
	ID        int        `json:"id"`
	ShortDesc string     `json:"short_desc"`
	Default   bool       `json:"default,omitempty"`
	Subbases  []Subbasis `json:"subbases"`
}

type Subbasis struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Default     bool   `json:"default,omitempty"`
}

type TourTime struct {
	ID      int    `json:"id"`
	Time    string `json:"time"`
	Default bool   `json:"default,omitempty"`
}

// TourOptions is a concrete basis/subbasis/time choice for a tour.
type TourOptions struct {
	BasisID    int `json:"basis_id"`
	SubbasisID int `json:"subbasis_id"`
	TimeID     int `json:"time_id"`
}

// DefaultOptions resolves the basis/subbasis/time used when the caller has
// made no selection. Entries flagged default win; otherwise the first array
// entry is used. The first-by-array-order fallback is deliberate: the upstream
// data frequently marks nothing default, and callers depend on the choice
// being stable.
func (t Tour) DefaultOptions() (TourOptions, bool) {
	if len(t.Bases) == 0 || len(t.Times) == 0 {
		return TourOptions{}, false
	}
	basis := t.Bases[0]
	for _, b := range t.Bases {
		if b.Default {
			basis = b
			break
		}
	}
	if len(basis.Subbases) == 0 {
		return TourOptions{}, false
	}
	sub := basis.Subbases[0]
	for _, s := range basis.Subbases {
		if s.Default {
			sub = s
			break
		}
	}
	tt := t.Times[0]
	for _, x := range t.Times {
		if x.Default {
			tt = x
			break
		}
	}
	return TourOptions{BasisID: basis.ID, SubbasisID: sub.ID, TimeID: tt.ID}, true
}

// TourExtra is an optional paid add-on tied to a basis/subbasis/time.
type TourExtra struct {
	ExtraID     int    `json:"extra_id"`
	Group       int    `json:"group"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	HostID      string `json:"host_id"`
	BasisID     int    `json:"basis_id"`
	SubbasisID  int    `json:"subbasis_id"`
	TimeID      int    `json:"time_id"`
	Offset      int    `json:"offset"`
	Conditions  string `json:"conditions,omitempty"`
	AllowAdult  bool   `json:"allow_adult"`
	AllowChild  bool   `json:"allow_child"`
	AllowInfant bool   `json:"allow_infant"`
	AllowFOC    bool   `json:"allow_foc"`
}

// AvailabilityResult is one date's availability for a fixed
// basis/subbasis/time. Threshold means Availability is a minimum, not exact.
type AvailabilityResult struct {
	HostID       string `json:"host_id"`
	TourCode     string `json:"tour_code"`
	BasisID      int    `json:"basis_id"`
	SubbasisID   int    `json:"subbasis_id"`
	TourDate     string `json:"tour_date"`
	TourTimeID   int    `json:"tour_time_id"`
	Availability int    `json:"availability"`
	Operational  bool   `json:"operational"`
	Expired      bool   `json:"expired"`
	Threshold    bool   `json:"threshold,omitempty"`
}

// Availability style buckets for the calendar heat map.
const (
	StyleUnavailable = "unavailable"
	StyleLow         = "low"
	StyleAvailable   = "available"
)

// Style classifies an availability entry for display. Missing entries are
// classified by the caller as unavailable.
func (a AvailabilityResult) Style() string {
	if !a.Operational || a.Expired || a.Availability == 0 {
		return StyleUnavailable
	}
	if a.Availability < 15 {
		return StyleLow
	}
	return StyleAvailable
}

// PriceResult carries per-guest-type sell prices for one date and option set.
// NonPerPaxSell is the flat fixed tour price, used for family packages.
type PriceResult struct {
	HostID           string  `json:"host_id"`
	TourCode         string  `json:"tour_code"`
	BasisID          int     `json:"basis_id"`
	SubbasisID       int     `json:"subbasis_id"`
	TourDate         string  `json:"tour_date"`
	TourTimeID       int     `json:"tour_time_id"`
	AdultTourSell    float64 `json:"adult_tour_sell"`
	ChildTourSell    float64 `json:"child_tour_sell"`
	InfantTourSell   float64 `json:"infant_tour_sell"`
	FOCTourSell      float64 `json:"foc_tour_sell"`
	NonPerPaxSell    float64 `json:"non_per_pax_sell"`
	AdultCommission  float64 `json:"adult_commission"`
	ChildCommission  float64 `json:"child_commission"`
	InfantCommission float64 `json:"infant_commission"`
	CurrencySymbol   string  `json:"currency_symbol"`
	CurrencyCode     string  `json:"currency_code"`
	PaymentOption    string  `json:"payment_option_desc,omitempty"`
}
