package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"respax_booking/internal/domain"
)

// ExtrasService resolves the extras catalog for a basis/subbasis/time and
// joins each extra with its adult unit price (memoized in the price cache)
// and its availability on the chosen date.
type ExtrasService struct {
	api    domain.ReservationAPI
	prices *PriceCache
}

func NewExtrasService(api domain.ReservationAPI, prices *PriceCache) *ExtrasService {
	return &ExtrasService{api: api, prices: prices}
}

// TourExtras fetches and prices the extras for one date. Pricing and
// availability failures degrade to zero-priced entries rather than failing
// the catalog; only the extras listing itself can error.
func (s *ExtrasService) TourExtras(ctx context.Context, tour domain.Tour, opts domain.TourOptions, date string) ([]domain.PricedExtra, error) {
	extras, err := s.api.ReadExtras(ctx, tour.Operator, tour.TourCode, opts.BasisID, opts.SubbasisID, opts.TimeID)
	if err != nil {
		return nil, err
	}
	if len(extras) == 0 {
		return nil, nil
	}

	out := make([]domain.PricedExtra, len(extras))
	var missing []int // indexes whose price is not cached
	items := make([]domain.RangeItem, 0, len(extras))
	for i, e := range extras {
		host := e.HostID
		if host == "" {
			host = tour.Operator
		}
		out[i] = domain.PricedExtra{TourExtra: e, CurrencySymbol: "$"}
		if p, ok := s.prices.Get(PriceKey(host, e.Code, date, e.ExtraID)); ok {
			out[i].AdultPrice = p
		} else {
			missing = append(missing, i)
		}
		items = append(items, domain.RangeItem{
			HostID:     host,
			TourCode:   e.Code,
			BasisID:    e.BasisID,
			SubbasisID: e.SubbasisID,
			TourDate:   date,
			TourTimeID: e.TimeID,
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	if len(missing) > 0 {
		req := make([]domain.RangeItem, len(missing))
		for j, i := range missing {
			req[j] = items[i]
		}
		g.Go(func() error {
			prices, perr := s.api.ReadPriceRange(gctx, req)
			if perr != nil {
				log.Warn().Err(perr).Str("tour", tour.TourCode).Msg("extras price fetch failed")
				return nil
			}
			// responses align with request order
			for j, i := range missing {
				if j >= len(prices) {
					break
				}
				out[i].AdultPrice = prices[j].AdultTourSell
				if prices[j].CurrencySymbol != "" {
					out[i].CurrencySymbol = prices[j].CurrencySymbol
				}
				s.prices.Set(PriceKey(req[j].HostID, req[j].TourCode, date, out[i].ExtraID), prices[j].AdultTourSell)
			}
			return nil
		})
	}

	g.Go(func() error {
		avails, aerr := s.api.ReadAvailabilityRange(gctx, items)
		if aerr != nil {
			log.Warn().Err(aerr).Str("tour", tour.TourCode).Msg("extras availability fetch failed")
			return nil
		}
		for i := range out {
			if i >= len(avails) {
				break
			}
			a := avails[i]
			out[i].Availability = &a
		}
		return nil
	})

	_ = g.Wait()
	return out, nil
}
