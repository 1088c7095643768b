package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"respax_booking/internal/domain"
)

// availabilityBatchSize bounds the payload of one range request.
const availabilityBatchSize = 7

var ErrNoBookableOptions = errors.New("tour has no basis/subbasis/time to book")

// AvailabilityService fans out date-range availability queries and merges the
// results into a date-keyed map for the calendar.
type AvailabilityService struct {
	api domain.ReservationAPI
}

func NewAvailabilityService(api domain.ReservationAPI) *AvailabilityService {
	return &AvailabilityService{api: api}
}

// MonthAvailability queries availability for every date in dates using the
// tour's default basis/subbasis/time. Dates are partitioned into batches of
// seven, each batch issued concurrently. A failing batch contributes nothing;
// its dates are simply absent from the merged map and render as unavailable.
// The merged map is keyed by each result's own tour_date, not request order.
func (s *AvailabilityService) MonthAvailability(ctx context.Context, tour domain.Tour, dates []string) (map[string]domain.AvailabilityResult, error) {
	opts, ok := tour.DefaultOptions()
	if !ok {
		return nil, ErrNoBookableOptions
	}
	return s.RangeAvailability(ctx, tour, opts, dates)
}

// RangeAvailability is MonthAvailability with an explicit option set.
func (s *AvailabilityService) RangeAvailability(ctx context.Context, tour domain.Tour, opts domain.TourOptions, dates []string) (map[string]domain.AvailabilityResult, error) {
	merged := make(map[string]domain.AvailabilityResult, len(dates))
	if len(dates) == 0 {
		return merged, nil
	}

	type batchResult struct {
		results []domain.AvailabilityResult
	}

	nBatches := (len(dates) + availabilityBatchSize - 1) / availabilityBatchSize
	out := make([]batchResult, nBatches)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < nBatches; i++ {
		i := i
		lo := i * availabilityBatchSize
		hi := lo + availabilityBatchSize
		if hi > len(dates) {
			hi = len(dates)
		}
		batch := dates[lo:hi]

		g.Go(func() error {
			items := make([]domain.RangeItem, len(batch))
			for j, d := range batch {
				items[j] = domain.RangeItem{
					HostID:     tour.Operator,
					TourCode:   tour.TourCode,
					BasisID:    opts.BasisID,
					SubbasisID: opts.SubbasisID,
					TourDate:   d,
					TourTimeID: opts.TimeID,
				}
			}
			rs, err := s.api.ReadAvailabilityRange(ctx, items)
			if err != nil {
				// failed batch resolves to no entries; the others proceed
				log.Warn().Err(err).
					Str("tour", tour.TourCode).
					Strs("dates", batch).
					Msg("availability batch failed")
				return nil
			}
			out[i] = batchResult{results: rs}
			return nil
		})
	}
	// batch errors are swallowed above, so Wait only observes ctx cancellation
	_ = g.Wait()

	for _, b := range out {
		for _, r := range b.results {
			if r.TourDate == "" {
				continue
			}
			merged[r.TourDate] = r
		}
	}
	return merged, nil
}

// MonthDates returns every calendar date of the given month as YYYY-MM-DD.
func MonthDates(year int, month time.Month) []string {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	out := make([]string, days)
	for d := 0; d < days; d++ {
		out[d] = fmt.Sprintf("%04d-%02d-%02d", year, month, d+1)
	}
	return out
}
