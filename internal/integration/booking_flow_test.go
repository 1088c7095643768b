//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	server "respax_booking/internal/adapters/http_server"
	"respax_booking/internal/adapters/respax"
	"respax_booking/internal/app"
	"respax_booking/internal/domain"
)

// ---------- in-memory doubles for the mirror and the remote store ----------

type memCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemCache() *memCache { return &memCache{m: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(_ context.Context, key string, v any, _ int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = b
	return nil
}

func (c *memCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

type memRepo struct {
	mu       sync.Mutex
	tours    map[string]domain.Tour
	extras   map[string][]domain.TourExtra
	bookings map[string]domain.Booking
}

func newMemRepo() *memRepo {
	return &memRepo{
		tours:    map[string]domain.Tour{},
		extras:   map[string][]domain.TourExtra{},
		bookings: map[string]domain.Booking{},
	}
}

func (r *memRepo) UpsertTour(_ context.Context, code string, t domain.Tour, ex []domain.TourExtra) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tours[code] = t
	r.extras[code] = ex
	return nil
}

func (r *memRepo) GetTour(_ context.Context, code string) (domain.Tour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tours[code]
	if !ok {
		return domain.Tour{}, domain.ErrNotFound
	}
	return t, nil
}

func (r *memRepo) GetTourExtras(_ context.Context, code string) ([]domain.TourExtra, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.extras[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ex, nil
}

func (r *memRepo) ListTours(_ context.Context) ([]domain.Tour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Tour, 0, len(r.tours))
	for _, t := range r.tours {
		out = append(out, t)
	}
	return out, nil
}

func (r *memRepo) DeleteTour(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tours[code]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tours, code)
	delete(r.extras, code)
	return nil
}

func (r *memRepo) InsertBooking(_ context.Context, b domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = b
	return nil
}

func (r *memRepo) GetBooking(_ context.Context, id string) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (r *memRepo) ListBookings(_ context.Context, tourCode string) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.bookings {
		if b.TourCode == tourCode {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateBookingStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = status
	r.bookings[id] = b
	return nil
}

// ---------- fake upstream reservation system ----------

type upstream struct {
	t    *testing.T
	tour domain.Tour

	mu          sync.Mutex
	lastCheck   map[string]any
	priceCalls  int
	availCalls  int
	toursCalls  int
	extrasCalls int
}

func (u *upstream) handler(w http.ResponseWriter, r *http.Request) {
	if user, pass, ok := r.BasicAuth(); !ok || user != "agent" || pass != "s3cret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	path := r.URL.Path
	switch {
	case path == "/ping.json":
		fmt.Fprint(w, `{"status":"ok"}`)

	case strings.HasPrefix(path, "/read-tours-"):
		u.mu.Lock()
		u.toursCalls++
		u.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"tours": []domain.Tour{u.tour}})

	case strings.HasPrefix(path, "/read-extras-"):
		u.mu.Lock()
		u.extrasCalls++
		u.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"extras": []domain.TourExtra{{
			ExtraID: 7, Name: "Snorkel Tour", Code: "SNK", HostID: "SALES",
			BasisID: 10, SubbasisID: 100, TimeID: 1, AllowAdult: true,
		}}})

	case path == "/read-availability-range.json":
		u.mu.Lock()
		u.availCalls++
		u.mu.Unlock()
		var items []domain.RangeItem
		_ = json.NewDecoder(r.Body).Decode(&items)
		avail := make([]domain.AvailabilityResult, 0, len(items))
		for _, it := range items {
			n := 20
			switch it.TourDate {
			case "2026-03-05":
				n = 5
			case "2026-03-10":
				n = 0
			}
			avail = append(avail, domain.AvailabilityResult{
				HostID: it.HostID, TourCode: it.TourCode,
				BasisID: it.BasisID, SubbasisID: it.SubbasisID,
				TourDate: it.TourDate, TourTimeID: it.TourTimeID,
				Availability: n, Operational: true,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"availabilities": avail})

	case path == "/read-price-range.json":
		u.mu.Lock()
		u.priceCalls++
		u.mu.Unlock()
		var items []domain.RangeItem
		_ = json.NewDecoder(r.Body).Decode(&items)
		prices := make([]domain.PriceResult, 0, len(items))
		for _, it := range items {
			p := domain.PriceResult{
				HostID: it.HostID, TourCode: it.TourCode, TourDate: it.TourDate,
				CurrencySymbol: "A$", CurrencyCode: "AUD",
			}
			if it.TourCode == "SNK" {
				p.AdultTourSell = 45
			} else {
				p.AdultTourSell = 180
				p.ChildTourSell = 90
				p.NonPerPaxSell = 450
				p.AdultCommission = 20
			}
			prices = append(prices, p)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"prices": prices})

	case strings.HasPrefix(path, "/check-reservation-"):
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.mu.Lock()
		u.lastCheck = body
		u.mu.Unlock()
		_ = json.NewEncoder(w).Encode(domain.ReservationCheck{Prices: &domain.ReservationPrices{
			TourSell: 360, Extra: 45, Total: 405, Currency: "AUD",
		}})

	default:
		u.t.Errorf("unexpected upstream path %s", path)
		w.WriteHeader(http.StatusNotFound)
	}
}

// ---------- the flow ----------

func testTour() domain.Tour {
	return domain.Tour{
		Operator: "SALES",
		TourCode: "REEF",
		Name:     "Outer Reef Day Trip",
		Bases: []domain.Basis{{
			ID: 10, ShortDesc: "Standard",
			Subbases: []domain.Subbasis{{ID: 100, Description: "Standard"}},
		}},
		Times: []domain.TourTime{{ID: 1, Time: "08:00"}},
	}
}

func TestBookingFlow_EndToEnd(t *testing.T) {
	up := &upstream{t: t, tour: testTour()}
	upSrv := httptest.NewServer(http.HandlerFunc(up.handler))
	defer upSrv.Close()

	client, err := respax.New(respax.Credentials{
		Username: "agent", Password: "s3cret", Environment: "sandbox",
	}, "D1", 100)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	client.SetBaseURL(upSrv.URL)

	cache := newMemCache()
	repo := newMemRepo()
	store := app.NewTourStore(cache, repo, 15*time.Minute)

	h := &server.Handlers{
		API:     client,
		Store:   store,
		Avail:   app.NewAvailabilityService(client),
		Pricing: app.NewPricingService(client, 0),
		Extras:  app.NewExtrasService(client, app.NewPriceCache(5*time.Minute, 100)),
		Resv:    app.NewReservationService(client),
	}
	srv := server.New()
	srv.MountHandlers(h)
	api := httptest.NewServer(srv.Mux())
	defer api.Close()

	get := func(path string, out any) int {
		t.Helper()
		res, err := http.Get(api.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer res.Body.Close()
		if out != nil {
			_ = json.NewDecoder(res.Body).Decode(out)
		}
		return res.StatusCode
	}
	post := func(path string, body, out any) int {
		t.Helper()
		b, _ := json.Marshal(body)
		res, err := http.Post(api.URL+path, "application/json", bytes.NewReader(b))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		defer res.Body.Close()
		if out != nil {
			_ = json.NewDecoder(res.Body).Decode(out)
		}
		return res.StatusCode
	}

	// browse the upstream catalog
	var catalog struct {
		Tours []domain.Tour `json:"tours"`
	}
	if code := get("/v1/hosts/SALES/tours", &catalog); code != 200 {
		t.Fatalf("catalog status %d", code)
	}
	if len(catalog.Tours) != 1 || catalog.Tours[0].TourCode != "REEF" {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}

	// publish it
	if code := post("/v1/tours", map[string]any{"tour": catalog.Tours[0]}, nil); code != 201 {
		t.Fatalf("publish status %d", code)
	}

	// availability calendar for March 2026
	var cal struct {
		Month string `json:"month"`
		Days  map[string]struct {
			Availability int    `json:"availability"`
			Style        string `json:"style"`
		} `json:"days"`
	}
	if code := get("/v1/tours/REEF/availability?month=2026-03", &cal); code != 200 {
		t.Fatalf("availability status %d", code)
	}
	if len(cal.Days) != 31 {
		t.Fatalf("expected 31 days, got %d", len(cal.Days))
	}
	if cal.Days["2026-03-01"].Style != domain.StyleAvailable ||
		cal.Days["2026-03-05"].Style != domain.StyleLow ||
		cal.Days["2026-03-10"].Style != domain.StyleUnavailable {
		t.Fatalf("unexpected styles: %+v", cal.Days)
	}

	// extras catalog for the chosen date
	var exResp struct {
		Extras []domain.PricedExtra `json:"extras"`
	}
	if code := get("/v1/tours/REEF/extras?date=2026-03-15", &exResp); code != 200 {
		t.Fatalf("extras status %d", code)
	}
	if len(exResp.Extras) != 1 || exResp.Extras[0].AdultPrice != 45 {
		t.Fatalf("unexpected extras: %+v", exResp.Extras)
	}

	// quote: 2 adults at 180 plus one snorkel at 45
	sel := map[string]any{
		"date":   "2026-03-15",
		"guests": domain.GuestCounts{Adults: 2},
		"selections": []domain.AdultExtraSelection{
			{AdultID: 1, ExtraID: intp(7)},
			{AdultID: 2},
		},
	}
	var quote domain.PriceBreakdown
	if code := post("/v1/tours/REEF/quote", sel, &quote); code != 200 {
		t.Fatalf("quote status %d", code)
	}
	if quote.BaseCost != 360 || quote.ExtrasCost != 45 || quote.Total != 405 {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if quote.Commission != 81 { // upstream rate 20% wins over the configured 0
		t.Fatalf("unexpected commission: %+v", quote)
	}
	if quote.Formatted != "A$405.00" {
		t.Fatalf("unexpected formatting: %q", quote.Formatted)
	}

	// reservation check
	var check domain.ReservationCheck
	if code := post("/v1/tours/REEF/check", sel, &check); code != 200 {
		t.Fatalf("check status %d", code)
	}
	if !check.OK() || check.Prices.Total != 405 {
		t.Fatalf("unexpected check: %+v", check)
	}
	up.mu.Lock()
	lastCheck := up.lastCheck
	up.mu.Unlock()
	if lastCheck["payment_option"] != "comm-agent/bal-pob" || lastCheck["prices"] != true {
		t.Fatalf("unexpected check request: %+v", lastCheck)
	}
	tickets := lastCheck["tickets"].([]any)
	ticket := tickets[0].(map[string]any)
	pax := ticket["pax_mix"].(map[string]any)
	if len(pax) != 1 || pax["adult"] != float64(2) {
		t.Fatalf("unexpected pax_mix: %+v", pax)
	}

	// store the booking for operator follow-up
	var booking domain.Booking
	code := post("/v1/tours/REEF/bookings", map[string]any{
		"booking":  sel,
		"customer": map[string]string{"name": "Jo", "email": "jo@example.com"},
	}, &booking)
	if code != 201 || booking.ID == "" || booking.Status != domain.BookingPending {
		t.Fatalf("booking status %d: %+v", code, booking)
	}

	// confirm it
	req, _ := http.NewRequest(http.MethodPatch, api.URL+"/v1/bookings/"+booking.ID,
		strings.NewReader(`{"status":"confirmed"}`))
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("confirm status %d", res.StatusCode)
	}

	var list struct {
		Bookings []domain.Booking `json:"bookings"`
	}
	if code := get("/v1/tours/REEF/bookings", &list); code != 200 {
		t.Fatalf("list bookings status %d", code)
	}
	if len(list.Bookings) != 1 || list.Bookings[0].Status != domain.BookingConfirmed {
		t.Fatalf("unexpected bookings: %+v", list.Bookings)
	}

	// the month sweep batches days seven at a time
	up.mu.Lock()
	defer up.mu.Unlock()
	if up.availCalls < 5 {
		t.Fatalf("expected at least 5 availability calls (31 days / 7), got %d", up.availCalls)
	}
}

func intp(i int) *int { return &i }
