// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"respax_booking/internal/app"
	"respax_booking/internal/domain"
)

type Handlers struct {
	API     domain.ReservationAPI
	Store   *app.TourStore
	Avail   *app.AvailabilityService
	Pricing *app.PricingService
	Extras  *app.ExtrasService
	Resv    *app.ReservationService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/ping", h.ping)
	s.mux.Get("/v1/hosts", h.listHosts)
	s.mux.Get("/v1/hosts/{hostID}", h.getHostDetails)
	s.mux.Get("/v1/hosts/{hostID}/tours", h.listHostTours)

	s.mux.Get("/v1/tours", h.listPublishedTours)
	s.mux.Post("/v1/tours", h.publishTour)
	s.mux.Get("/v1/tours/{code}", h.getPublishedTour)
	s.mux.Delete("/v1/tours/{code}", h.deleteTour)

	s.mux.Get("/v1/tours/{code}/availability", h.monthAvailability)
	s.mux.Get("/v1/tours/{code}/extras", h.tourExtras)
	s.mux.Post("/v1/tours/{code}/quote", h.quote)
	s.mux.Post("/v1/tours/{code}/check", h.checkReservation)

	s.mux.Post("/v1/tours/{code}/bookings", h.createBooking)
	s.mux.Get("/v1/tours/{code}/bookings", h.listBookings)
	s.mux.Patch("/v1/bookings/{id}", h.updateBookingStatus)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// ---- external API passthrough ----

func (h *Handlers) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.API.Ping(r.Context()); err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Unreachable", "reservation API ping failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) listHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := h.API.ReadHosts(r.Context())
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Error", "failed to read hosts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hosts": hosts})
}

func (h *Handlers) getHostDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.API.ReadHostDetails(r.Context(), chi.URLParam(r, "hostID"))
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Error", "failed to read host details")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handlers) listHostTours(w http.ResponseWriter, r *http.Request) {
	tours, err := h.API.ReadTours(r.Context(), chi.URLParam(r, "hostID"))
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Error", "failed to read tours")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tours": tours})
}

// ---- published tours (admin) ----

func (h *Handlers) listPublishedTours(w http.ResponseWriter, r *http.Request) {
	tours, err := h.Store.ListPublishedTours(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Storage Error", "failed to list tours")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tours": tours})
}

type publishRequest struct {
	Tour   domain.Tour        `json:"tour"`
	Extras []domain.TourExtra `json:"extras"`
}

func (h *Handlers) publishTour(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if req.Tour.TourCode == "" || req.Tour.Operator == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Tour", "tour_code and operator are required")
		return
	}
	if err := h.Store.SaveTourData(r.Context(), req.Tour.TourCode, req.Tour, req.Extras); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Storage Error", "failed to publish tour")
		return
	}
	writeJSON(w, http.StatusCreated, req.Tour)
}

func (h *Handlers) getPublishedTour(w http.ResponseWriter, r *http.Request) {
	tour, err := h.Store.GetPublishedTour(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "tour not published")
		return
	}

	etag, body := calcETagAndBody(tour)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write tour body")
	}
}

func (h *Handlers) deleteTour(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTour(r.Context(), chi.URLParam(r, "code")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "tour not published")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Storage Error", "failed to delete tour")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- booking flow ----

type dayAvailability struct {
	domain.AvailabilityResult
	Style string `json:"style"`
}

func (h *Handlers) monthAvailability(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	month := r.URL.Query().Get("month")
	mt, err := time.Parse("2006-01", month)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Month", "month must be YYYY-MM")
		return
	}
	tour, err := h.Store.GetPublishedTour(r.Context(), code)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "tour not published")
		return
	}

	dates := app.MonthDates(mt.Year(), mt.Month())
	merged, err := h.Avail.MonthAvailability(r.Context(), tour, dates)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Not Bookable", "tour has no bookable options")
		return
	}

	days := make(map[string]dayAvailability, len(merged))
	for d, a := range merged {
		days[d] = dayAvailability{AvailabilityResult: a, Style: a.Style()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": month, "days": days})
}

func (h *Handlers) tourExtras(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	date := r.URL.Query().Get("date")
	if date == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "date query parameter is required")
		return
	}
	tour, err := h.Store.GetPublishedTour(r.Context(), code)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "tour not published")
		return
	}
	opts, ok := tour.DefaultOptions()
	if !ok {
		writeProblem(w, http.StatusUnprocessableEntity, "Not Bookable", "tour has no bookable options")
		return
	}
	extras, err := h.Extras.TourExtras(r.Context(), tour, opts, date)
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Error", "failed to load extras")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"extras": extras})
}

type bookingSelection struct {
	Date       string                       `json:"date"`
	Options    *domain.TourOptions          `json:"options,omitempty"`
	Guests     domain.GuestCounts           `json:"guests"`
	Selections []domain.AdultExtraSelection `json:"selections,omitempty"`
}

// resolve fills in the default option set when the client sent none.
func (sel *bookingSelection) resolve(tour domain.Tour) (domain.TourOptions, bool) {
	if sel.Options != nil {
		return *sel.Options, true
	}
	return tour.DefaultOptions()
}

func (h *Handlers) quote(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var sel bookingSelection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if sel.Date == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "date is required")
		return
	}
	tour, err := h.Store.GetPublishedTour(r.Context(), code)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "tour not published")
		return
	}
	opts, ok := sel.resolve(tour)
	if !ok {
		writeProblem(w, http.StatusUnprocessableEntity, "Not Bookable", "tour has no bookable options")
		return
	}

	base, err := h.Pricing.FetchTourPrices(r.Context(), tour, sel.Date, opts)
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Upstream Error", "failed to fetch prices")
		return
	}

	var extras []domain.PricedExtra
	if len(sel.Selections) > 0 {
		extras, err = h.Extras.TourExtras(r.Context(), tour, opts, sel.Date)
		if err != nil {
			// selections referencing unknown extras contribute zero
			log.Warn().Err(err).Str("tour", code).Msg("extras unavailable for quote")
		}
	}

	writeJSON(w, http.StatusOK, h.Pricing.Quote(base, sel.Guests, sel.Selections, extras))
}

func (h *Handlers) checkReservation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var sel bookingSelection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	tour, err := h.Store.GetPublishedTour(r.Context(), code)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "tour not published")
		return
	}
	opts, ok := sel.resolve(tour)
	if !ok {
		writeProblem(w, http.StatusUnprocessableEntity, "Not Bookable", "tour has no bookable options")
		return
	}

	res, err := h.Resv.Check(r.Context(), tour, sel.Date, opts, sel.Guests, sel.Selections)
	switch {
	case errors.Is(err, app.ErrInvalidTour), errors.Is(err, app.ErrMissingOptions):
		writeProblem(w, http.StatusBadRequest, "Invalid Selection", err.Error())
	case err != nil:
		writeProblem(w, http.StatusBadGateway, "Check Failed", "failed to check reservation")
	case len(res.Errors) > 0:
		writeJSON(w, http.StatusUnprocessableEntity, res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// ---- booking records ----

type createBookingRequest struct {
	Booking  json.RawMessage `json:"booking"`
	Customer json.RawMessage `json:"customer"`
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if _, err := h.Store.GetPublishedTour(r.Context(), code); err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "tour not published")
		return
	}
	b, err := h.Store.CreateBooking(r.Context(), code, req.Booking, req.Customer)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Storage Error", "failed to store booking")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListBookings(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Storage Error", "failed to list bookings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

func (h *Handlers) updateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if err := h.Store.UpdateBookingStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("booking %s not found", id))
			return
		}
		writeProblem(w, http.StatusBadRequest, "Invalid Status", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
