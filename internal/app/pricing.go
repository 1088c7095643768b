package app

import (
	"context"
	"fmt"
	"math"

	"respax_booking/internal/domain"
)

// PricingService fetches base prices and aggregates booking selections into a
// total with commission. Totals are recomputed from the latest inputs on every
// call; nothing here depends on the arrival order of earlier fetches.
type PricingService struct {
	api domain.ReservationAPI

	// commissionRate is the nominal agent rate (percent) applied to the
	// blended total when the price row carries no commission of its own.
	// A single rate over base+extras is the documented behavior; do not
	// replace it with per-guest-type commission.
	commissionRate float64
}

func NewPricingService(api domain.ReservationAPI, commissionRate float64) *PricingService {
	return &PricingService{api: api, commissionRate: commissionRate}
}

// FetchTourPrices returns the price row for one date and option set, or nil
// when the engine prices nothing for that cell.
func (s *PricingService) FetchTourPrices(ctx context.Context, tour domain.Tour, date string, opts domain.TourOptions) (*domain.PriceResult, error) {
	prices, err := s.api.ReadPriceRange(ctx, []domain.RangeItem{{
		HostID:     tour.Operator,
		TourCode:   tour.TourCode,
		BasisID:    opts.BasisID,
		SubbasisID: opts.SubbasisID,
		TourDate:   date,
		TourTimeID: opts.TimeID,
	}})
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, nil
	}
	p := prices[0]
	return &p, nil
}

// Quote aggregates a full selection into a breakdown.
func (s *PricingService) Quote(base *domain.PriceResult, counts domain.GuestCounts, selections []domain.AdultExtraSelection, extras []domain.PricedExtra) domain.PriceBreakdown {
	rate := s.commissionRate
	if base != nil && base.AdultCommission > 0 {
		rate = base.AdultCommission
	}
	return ComputeBreakdown(base, counts, selections, extras, rate)
}

// ComputeBreakdown combines base cost, extras cost, and commission.
//
// Base total: adults and children at their per-pax sell price, families at
// the flat non-per-pax price, infants when the row prices them. Extras total:
// the adult unit price of each non-nil selection; a selection whose extra id
// no longer resolves contributes zero, not an error. Commission is a single
// rate over the combined total. All three figures are rounded half-even at
// the cent so persisted totals do not drift.
func ComputeBreakdown(base *domain.PriceResult, counts domain.GuestCounts, selections []domain.AdultExtraSelection, extras []domain.PricedExtra, commissionRate float64) domain.PriceBreakdown {
	counts = counts.Normalize()

	symbol := "$"
	var baseCost float64
	if base != nil {
		if base.CurrencySymbol != "" {
			symbol = base.CurrencySymbol
		}
		baseCost = float64(counts.Adults)*base.AdultTourSell +
			float64(counts.Children)*base.ChildTourSell +
			float64(counts.Families)*base.NonPerPaxSell +
			float64(counts.Infants)*base.InfantTourSell
	}

	byID := make(map[int]domain.PricedExtra, len(extras))
	for _, e := range extras {
		byID[e.ExtraID] = e
	}
	var extrasCost float64
	for _, sel := range selections {
		if sel.ExtraID == nil {
			continue
		}
		if e, ok := byID[*sel.ExtraID]; ok {
			extrasCost += e.AdultPrice
		}
	}

	baseCost = RoundCents(baseCost)
	extrasCost = RoundCents(extrasCost)
	total := RoundCents(baseCost + extrasCost)
	commission := RoundCents(commissionRate / 100 * total)

	return domain.PriceBreakdown{
		BaseCost:       baseCost,
		ExtrasCost:     extrasCost,
		Total:          total,
		Commission:     commission,
		CurrencySymbol: symbol,
		Formatted:      FormatCurrency(total, symbol),
	}
}

// RoundCents rounds to two decimals, halves to even.
func RoundCents(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// FormatCurrency renders an amount with two decimals and a symbol prefix.
func FormatCurrency(amount float64, symbol string) string {
	if symbol == "" {
		symbol = "$"
	}
	return fmt.Sprintf("%s%.2f", symbol, RoundCents(amount))
}
