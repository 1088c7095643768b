package domain

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// RangeItem addresses one (tour, option set, date) cell in the availability
// and price range endpoints. Both share this request shape.
type RangeItem struct {
	HostID     string `json:"host_id"`
	TourCode   string `json:"tour_code"`
	BasisID    int    `json:"basis_id"`
	SubbasisID int    `json:"subbasis_id"`
	TourDate   string `json:"tour_date"`
	TourTimeID int    `json:"tour_time_id"`
}

// ExtraQty is one line of a reservation ticket's extras array.
type ExtraQty struct {
	ExtraID int `json:"extra_id"`
	Qty     int `json:"qty"`
}

// ReservationTicket is the wire shape submitted to check-reservation.
// PaxMix holds only non-zero guest types; Extras is omitted when empty.
type ReservationTicket struct {
	TourCode   string         `json:"tour_code"`
	BasisID    int            `json:"basis_id"`
	SubbasisID int            `json:"subbasis_id"`
	TourDate   string         `json:"tour_date"`
	TourTimeID int            `json:"tour_time_id"`
	PaxMix     map[string]int `json:"pax_mix"`
	Extras     []ExtraQty     `json:"extras,omitempty"`
}

// ReservationAPI is the external reservation system. Implementations must be
// safe for concurrent use; every call suspends on the network.
type ReservationAPI interface {
	Ping(ctx context.Context) error
	ReadHosts(ctx context.Context) ([]Host, error)
	ReadHostDetails(ctx context.Context, hostID string) (HostDetails, error)
	ReadTours(ctx context.Context, hostID string) ([]Tour, error)
	ReadTour(ctx context.Context, hostID, tourCode string) (Tour, error)
	ReadAvailabilityRange(ctx context.Context, items []RangeItem) ([]AvailabilityResult, error)
	ReadPriceRange(ctx context.Context, items []RangeItem) ([]PriceResult, error)
	ReadExtras(ctx context.Context, hostID, tourCode string, basisID, subbasisID, timeID int) ([]TourExtra, error)
	CheckReservation(ctx context.Context, hostID string, tickets []ReservationTicket) (ReservationCheck, error)
}

// TourRepository is the remote relational store.
type TourRepository interface {
	UpsertTour(ctx context.Context, code string, tour Tour, extras []TourExtra) error
	GetTour(ctx context.Context, code string) (Tour, error)
	GetTourExtras(ctx context.Context, code string) ([]TourExtra, error)
	ListTours(ctx context.Context) ([]Tour, error)
	DeleteTour(ctx context.Context, code string) error

	InsertBooking(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, tourCode string) ([]Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status string) error
}

// Cache is the local mirror of published state.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
