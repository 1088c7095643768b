package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"respax_booking/internal/adapters/observability"
	"respax_booking/internal/domain"
)

var (
	ErrInvalidTour    = errors.New("invalid tour data")
	ErrMissingOptions = errors.New("missing required booking options")

	// ErrCheckFailed is the generic surface for transport or malformed
	// responses; the engine's own validation errors travel inside the
	// ReservationCheck instead.
	ErrCheckFailed = errors.New("failed to check reservation")
)

// ReservationService converts UI-level selections into the engine's
// reservation-check request and interprets the response. The call is a check,
// never a booking creation, so retrying it has no side effects upstream.
type ReservationService struct {
	api domain.ReservationAPI
}

func NewReservationService(api domain.ReservationAPI) *ReservationService {
	return &ReservationService{api: api}
}

// BuildTicket assembles the wire ticket. The pax_mix carries only non-zero
// guest types; selections are grouped into {extra_id, qty} lines with nil
// selections discarded.
func BuildTicket(tour domain.Tour, date string, opts domain.TourOptions, counts domain.GuestCounts, selections []domain.AdultExtraSelection) domain.ReservationTicket {
	counts = counts.Normalize()

	pax := make(map[string]int, 4)
	if counts.Adults > 0 {
		pax["adult"] = counts.Adults
	}
	if counts.Children > 0 {
		pax["child"] = counts.Children
	}
	if counts.Infants > 0 {
		pax["infant"] = counts.Infants
	}
	if counts.Families > 0 {
		pax["family"] = counts.Families
	}

	qty := make(map[int]int)
	for _, sel := range selections {
		if sel.ExtraID == nil {
			continue
		}
		qty[*sel.ExtraID]++
	}
	var extras []domain.ExtraQty
	if len(qty) > 0 {
		extras = make([]domain.ExtraQty, 0, len(qty))
		for id, n := range qty {
			extras = append(extras, domain.ExtraQty{ExtraID: id, Qty: n})
		}
		// map iteration order is random; keep the wire payload stable
		sort.Slice(extras, func(i, j int) bool { return extras[i].ExtraID < extras[j].ExtraID })
	}

	return domain.ReservationTicket{
		TourCode:   tour.TourCode,
		BasisID:    opts.BasisID,
		SubbasisID: opts.SubbasisID,
		TourDate:   date,
		TourTimeID: opts.TimeID,
		PaxMix:     pax,
		Extras:     extras,
	}
}

// Check submits one ticket. Outcomes:
//   - nil error, OK(): advance to review.
//   - nil error, Errors set: the engine rejected the ticket; surface verbatim.
//   - ErrCheckFailed: transport or malformed response; nothing was applied.
func (s *ReservationService) Check(ctx context.Context, tour domain.Tour, date string, opts domain.TourOptions, counts domain.GuestCounts, selections []domain.AdultExtraSelection) (domain.ReservationCheck, error) {
	if tour.Operator == "" || tour.TourCode == "" {
		return domain.ReservationCheck{}, ErrInvalidTour
	}
	if date == "" || opts.BasisID == 0 || opts.SubbasisID == 0 || opts.TimeID == 0 {
		return domain.ReservationCheck{}, ErrMissingOptions
	}

	ticket := BuildTicket(tour, date, opts, counts, selections)
	res, err := s.api.CheckReservation(ctx, tour.Operator, []domain.ReservationTicket{ticket})
	if err != nil {
		observability.ObserveReservationCheck("error")
		log.Error().Err(err).Str("tour", tour.TourCode).Str("date", date).Msg("reservation check failed")
		return domain.ReservationCheck{}, fmt.Errorf("%w: %v", ErrCheckFailed, err)
	}
	if len(res.Errors) > 0 {
		observability.ObserveReservationCheck("rejected")
		return res, nil
	}
	if res.Prices == nil {
		observability.ObserveReservationCheck("error")
		return domain.ReservationCheck{}, ErrCheckFailed
	}
	observability.ObserveReservationCheck("ok")
	return res, nil
}
