package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"respax_booking/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertTour(ctx context.Context, code string, tour domain.Tour, extras []domain.TourExtra) error {
	td, err := json.Marshal(tour)
	if err != nil {
		return err
	}
	if extras == nil {
		extras = []domain.TourExtra{}
	}
	ed, err := json.Marshal(extras)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertTourSQL, code, td, ed)
	return err
}

func (r *Repo) GetTour(ctx context.Context, code string) (domain.Tour, error) {
	var raw []byte
	if err := r.db.QueryRowContext(ctx, getTourSQL, code).Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return domain.Tour{}, domain.ErrNotFound
		}
		return domain.Tour{}, err
	}
	var t domain.Tour
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Tour{}, err
	}
	return t, nil
}

func (r *Repo) GetTourExtras(ctx context.Context, code string) ([]domain.TourExtra, error) {
	var raw []byte
	if err := r.db.QueryRowContext(ctx, getTourExtrasSQL, code).Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var ex []domain.TourExtra
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ex); err != nil {
			return nil, err
		}
	}
	return ex, nil
}

func (r *Repo) ListTours(ctx context.Context) ([]domain.Tour, error) {
	rows, err := r.db.QueryContext(ctx, listToursSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tour
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var t domain.Tour
		if err := json.Unmarshal(raw, &t); err != nil {
			// skip rows with unreadable snapshots rather than failing the listing
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteTour(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, deleteTourSQL, code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) InsertBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.ID, b.TourCode, b.BookingData, b.CustomerData, b.Status, b.CreatedAt)
	return err
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.QueryRowContext(ctx, getBookingSQL, id).
		Scan(&b.ID, &b.TourCode, &b.BookingData, &b.CustomerData, &b.Status, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) ListBookings(ctx context.Context, tourCode string) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, listBookingsSQL, tourCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.TourCode, &b.BookingData, &b.CustomerData, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateBookingStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, updateBookingStatusSQL, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
