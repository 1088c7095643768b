package postgres

const upsertTourSQL = `
INSERT INTO saved_tours (tour_code, tour_data, extras_data, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (tour_code) DO UPDATE SET
  tour_data   = EXCLUDED.tour_data,
  extras_data = EXCLUDED.extras_data,
  updated_at  = now()
`

const getTourSQL = `
SELECT tour_data FROM saved_tours WHERE tour_code = $1
`

const getTourExtrasSQL = `
SELECT extras_data FROM saved_tours WHERE tour_code = $1
`

const listToursSQL = `
SELECT tour_data FROM saved_tours ORDER BY updated_at DESC
`

const deleteTourSQL = `
DELETE FROM saved_tours WHERE tour_code = $1
`

const insertBookingSQL = `
INSERT INTO tour_bookings (id, tour_code, booking_data, customer_data, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

const getBookingSQL = `
SELECT id, tour_code, booking_data, customer_data, status, created_at
FROM tour_bookings WHERE id = $1
`

const listBookingsSQL = `
SELECT id, tour_code, booking_data, customer_data, status, created_at
FROM tour_bookings WHERE tour_code = $1
ORDER BY created_at DESC
`

const updateBookingStatusSQL = `
UPDATE tour_bookings SET status = $2 WHERE id = $1
`
