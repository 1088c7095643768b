package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"respax_booking/internal/domain"
)

// TourStore is the persistence facade over the local mirror and the remote
// store. Reads prefer the mirror and fall back to the remote store, writing
// back to the mirror on a successful remote read. Writes land in the mirror
// unconditionally and in the remote store best-effort: a remote failure is
// logged, not surfaced, once the mirror holds the data. Deletes are the
// exception; there the remote store is authoritative and errors surface.
type TourStore struct {
	cache domain.Cache
	repo  domain.TourRepository
	ttl   time.Duration

	// guard keeps a slow remote read from back-filling the mirror over a
	// publish or delete that landed while the read was in flight.
	guard *SlotGuard
}

func NewTourStore(cache domain.Cache, repo domain.TourRepository, ttl time.Duration) *TourStore {
	return &TourStore{cache: cache, repo: repo, ttl: ttl, guard: NewSlotGuard()}
}

func tourKey(code string) string   { return "tour:" + code }
func extrasKey(code string) string { return "tour_extras:" + code }

// GetPublishedTour returns the published snapshot for a tour code, or
// domain.ErrNotFound when nothing is published under it.
func (s *TourStore) GetPublishedTour(ctx context.Context, code string) (domain.Tour, error) {
	var t domain.Tour
	if ok, _ := s.cache.Get(ctx, tourKey(code), &t); ok {
		return t, nil
	}
	tok := s.guard.Next(tourKey(code))
	t, err := s.repo.GetTour(ctx, code)
	if err != nil {
		return domain.Tour{}, err
	}
	if s.guard.IsLatest(tourKey(code), tok) {
		_ = s.cache.Set(ctx, tourKey(code), t, int(s.ttl.Seconds()))
	}
	return t, nil
}

// GetTourExtras returns the published extras for a tour. A tour with no
// extras yields an empty slice, not an error.
func (s *TourStore) GetTourExtras(ctx context.Context, code string) ([]domain.TourExtra, error) {
	var ex []domain.TourExtra
	if ok, _ := s.cache.Get(ctx, extrasKey(code), &ex); ok {
		return ex, nil
	}
	tok := s.guard.Next(extrasKey(code))
	ex, err := s.repo.GetTourExtras(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if s.guard.IsLatest(extrasKey(code), tok) {
		_ = s.cache.Set(ctx, extrasKey(code), ex, int(s.ttl.Seconds()))
	}
	return ex, nil
}

// SaveTourData publishes a tour snapshot with its extras.
func (s *TourStore) SaveTourData(ctx context.Context, code string, tour domain.Tour, extras []domain.TourExtra) error {
	if extras == nil {
		extras = []domain.TourExtra{}
	}
	s.guard.Next(tourKey(code))
	s.guard.Next(extrasKey(code))
	if err := s.cache.Set(ctx, tourKey(code), tour, int(s.ttl.Seconds())); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, extrasKey(code), extras, int(s.ttl.Seconds())); err != nil {
		return err
	}
	if err := s.repo.UpsertTour(ctx, code, tour, extras); err != nil {
		// mirror write already succeeded; remote is best-effort
		log.Warn().Err(err).Str("tour", code).Msg("remote tour save failed, mirror only")
	}
	return nil
}

// ListPublishedTours lists from the remote store (the mirror has no index)
// and back-fills the mirror. A remote failure yields an empty listing.
func (s *TourStore) ListPublishedTours(ctx context.Context) ([]domain.Tour, error) {
	tours, err := s.repo.ListTours(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("remote tour listing failed")
		return []domain.Tour{}, nil
	}
	for _, t := range tours {
		_ = s.cache.Set(ctx, tourKey(t.TourCode), t, int(s.ttl.Seconds()))
	}
	return tours, nil
}

// DeleteTour unpublishes a tour. The remote delete must succeed; the mirror
// is cleared regardless.
func (s *TourStore) DeleteTour(ctx context.Context, code string) error {
	s.guard.Next(tourKey(code))
	s.guard.Next(extrasKey(code))
	_ = s.cache.Del(ctx, tourKey(code))
	_ = s.cache.Del(ctx, extrasKey(code))
	return s.repo.DeleteTour(ctx, code)
}

// ---- booking records ----

// CreateBooking stores a checked-reservation submission for operator
// follow-up. Nothing is written to the external reservation system.
func (s *TourStore) CreateBooking(ctx context.Context, tourCode string, bookingData, customerData any) (domain.Booking, error) {
	bd, err := json.Marshal(bookingData)
	if err != nil {
		return domain.Booking{}, err
	}
	cd, err := json.Marshal(customerData)
	if err != nil {
		return domain.Booking{}, err
	}
	b := domain.Booking{
		ID:           uuid.NewString(),
		TourCode:     tourCode,
		BookingData:  bd,
		CustomerData: cd,
		Status:       domain.BookingPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.InsertBooking(ctx, b); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (s *TourStore) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *TourStore) ListBookings(ctx context.Context, tourCode string) ([]domain.Booking, error) {
	return s.repo.ListBookings(ctx, tourCode)
}

func (s *TourStore) UpdateBookingStatus(ctx context.Context, id, status string) error {
	switch status {
	case domain.BookingPending, domain.BookingConfirmed, domain.BookingCancelled:
	default:
		return errors.New("invalid booking status")
	}
	return s.repo.UpdateBookingStatus(ctx, id, status)
}
