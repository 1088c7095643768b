package domain

import "time"

// GuestCounts is the guest-type breakdown for a booking. A family package
// seats 2 adults + 2 children.
type GuestCounts struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Families int `json:"families"`
}

// Normalize coerces dependent counts to zero when no adult or family is
// present. Children and infants cannot travel alone.
func (g GuestCounts) Normalize() GuestCounts {
	if g.Adults < 0 {
		g.Adults = 0
	}
	if g.Children < 0 {
		g.Children = 0
	}
	if g.Infants < 0 {
		g.Infants = 0
	}
	if g.Families < 0 {
		g.Families = 0
	}
	if g.Adults == 0 && g.Families == 0 {
		g.Children = 0
		g.Infants = 0
	}
	return g
}

// Seats is the number of physical seats the mix occupies.
func (g GuestCounts) Seats() int {
	return g.Adults + g.Children + g.Infants + g.Families*4
}

// AdultExtraSelection pairs an adult (1-based id) with at most one extra.
// ExtraID is nil when the adult picked nothing.
type AdultExtraSelection struct {
	AdultID int  `json:"adult_id"`
	ExtraID *int `json:"extra_id"`
}

// ResizeSelections regenerates the selection list for a new adult count.
// Selections for adult ids 1..min(old, n) are preserved; the rest start nil.
func ResizeSelections(prev []AdultExtraSelection, n int) []AdultExtraSelection {
	if n < 0 {
		n = 0
	}
	out := make([]AdultExtraSelection, n)
	byID := make(map[int]*int, len(prev))
	for _, s := range prev {
		byID[s.AdultID] = s.ExtraID
	}
	for i := range out {
		out[i] = AdultExtraSelection{AdultID: i + 1, ExtraID: byID[i+1]}
	}
	return out
}

// PricedExtra is a tour extra joined with its resolved adult unit price and
// the availability on the chosen date.
type PricedExtra struct {
	TourExtra
	AdultPrice     float64             `json:"adult_price"`
	CurrencySymbol string              `json:"currency_symbol"`
	Availability   *AvailabilityResult `json:"availability,omitempty"`
}

// PriceBreakdown is the aggregated cost of a booking selection.
type PriceBreakdown struct {
	BaseCost       float64 `json:"base_cost"`
	ExtrasCost     float64 `json:"extras_cost"`
	Total          float64 `json:"total"`
	Commission     float64 `json:"commission"`
	CurrencySymbol string  `json:"currency_symbol"`
	Formatted      string  `json:"formatted_total"`
}

// ReservationPrices is the price block of a successful reservation check.
type ReservationPrices struct {
	TourSell float64    `json:"tour_sell"`
	Extra    float64    `json:"extra"`
	Transfer float64    `json:"transfer"`
	TourLevy float64    `json:"tour_levy"`
	Discount float64    `json:"discount"`
	Total    float64    `json:"total"`
	Currency string     `json:"currency"`
	Promo    PromoState `json:"promo"`
}

type PromoState struct {
	ValidPromo   bool     `json:"valid_promo"`
	DiscountInfo []string `json:"discount_info,omitempty"`
}

// ReservationCheck is the interpreted outcome of a check-reservation call.
// Exactly one of Prices / Errors is meaningful: a non-empty Errors slice means
// the engine rejected the ticket and the booking must not advance.
type ReservationCheck struct {
	Prices *ReservationPrices `json:"prices,omitempty"`
	Errors []string           `json:"errors,omitempty"`
}

func (r ReservationCheck) OK() bool { return len(r.Errors) == 0 && r.Prices != nil }

// Booking is a stored customer submission for operator follow-up. The
// external system is never written to; the reservation was only checked.
type Booking struct {
	ID           string    `json:"id"`
	TourCode     string    `json:"tour_code"`
	BookingData  []byte    `json:"booking_data"`
	CustomerData []byte    `json:"customer_data"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)
