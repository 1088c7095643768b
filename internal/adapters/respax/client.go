// internal/adapters/respax/client.go
package respax

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"respax_booking/internal/domain"
)

const (
	SandboxURL    = "https://ron2-sandbox.respax.com"
	ProductionURL = "https://ron2.respax.com"
)

// Credentials authenticate every call. They are passed in explicitly; the
// client holds no other mutable state.
type Credentials struct {
	Username    string
	Password    string
	Environment string // sandbox|production
}

func (c Credentials) baseURL() string {
	if c.Environment == "production" {
		return ProductionURL
	}
	return SandboxURL
}

type Client struct {
	base          string
	hc            *http.Client
	creds         Credentials
	distributorID string
	rl            *rate.Limiter
}

func New(creds Credentials, distributorID string, rps int) (*Client, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("credentials are required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:          creds.baseURL(),
		hc:            &http.Client{Timeout: 20 * time.Second},
		creds:         creds,
		distributorID: distributorID,
		rl:            rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// SetBaseURL overrides the environment-derived base URL. Tests point the
// client at an httptest server with it.
func (c *Client) SetBaseURL(u string) { c.base = strings.TrimRight(u, "/") }

// ---- Public API ----

func (c *Client) Ping(ctx context.Context) error {
	var out json.RawMessage
	return c.post(ctx, "/ping.json", nil, nil, &out)
}

func (c *Client) ReadHosts(ctx context.Context) ([]domain.Host, error) {
	var out struct {
		Hosts []domain.Host `json:"hosts"`
	}
	err := c.post(ctx, "/read-hosts.json", nil, nil, &out)
	return out.Hosts, err
}

func (c *Client) ReadHostDetails(ctx context.Context, hostID string) (domain.HostDetails, error) {
	var out struct {
		Host domain.HostDetails `json:"host"`
	}
	err := c.post(ctx, fmt.Sprintf("/read-host-details-%s.json", hostID),
		url.Values{"mode": {"live"}}, nil, &out)
	return out.Host, err
}

func (c *Client) ReadTours(ctx context.Context, hostID string) ([]domain.Tour, error) {
	return c.readTours(ctx, hostID, "")
}

// ReadTour fetches a single tour by code. ErrNotFound when the catalog has no
// such code.
func (c *Client) ReadTour(ctx context.Context, hostID, tourCode string) (domain.Tour, error) {
	tours, err := c.readTours(ctx, hostID, tourCode)
	if err != nil {
		return domain.Tour{}, err
	}
	for _, t := range tours {
		if t.TourCode == tourCode {
			return t, nil
		}
	}
	return domain.Tour{}, ErrNotFound
}

func (c *Client) readTours(ctx context.Context, hostID, tourCode string) ([]domain.Tour, error) {
	q := url.Values{"mode": {"live"}, "distributor_id": {c.distributorID}}
	if tourCode != "" {
		q.Set("tour_code", tourCode)
	}
	var out struct {
		Tours []domain.Tour `json:"tours"`
	}
	err := c.post(ctx, fmt.Sprintf("/read-tours-%s.json", hostID), q, nil, &out)
	return out.Tours, err
}

func (c *Client) ReadAvailabilityRange(ctx context.Context, items []domain.RangeItem) ([]domain.AvailabilityResult, error) {
	var out struct {
		Availabilities []domain.AvailabilityResult `json:"availabilities"`
	}
	err := c.post(ctx, "/read-availability-range.json",
		url.Values{"config": {"live"}, "distributor_id": {c.distributorID}}, items, &out)
	return out.Availabilities, err
}

func (c *Client) ReadPriceRange(ctx context.Context, items []domain.RangeItem) ([]domain.PriceResult, error) {
	var out struct {
		Prices []domain.PriceResult `json:"prices"`
	}
	err := c.post(ctx, "/read-price-range.json",
		url.Values{"mode": {"live"}, "distributor_id": {c.distributorID}}, items, &out)
	return out.Prices, err
}

func (c *Client) ReadExtras(ctx context.Context, hostID, tourCode string, basisID, subbasisID, timeID int) ([]domain.TourExtra, error) {
	path := fmt.Sprintf("/read-extras-%s-%s-%d-%d-%d.json", hostID, tourCode, basisID, subbasisID, timeID)
	var out struct {
		Extras []domain.TourExtra `json:"extras"`
	}
	err := c.post(ctx, path, url.Values{"mode": {"live"}}, nil, &out)
	return out.Extras, err
}

// CheckReservation asks the engine to price and validate tickets. It never
// creates a booking; retrying is safe.
func (c *Client) CheckReservation(ctx context.Context, hostID string, tickets []domain.ReservationTicket) (domain.ReservationCheck, error) {
	body := map[string]any{
		"prices":         true,
		"payment_option": "comm-agent/bal-pob",
		"tickets":        tickets,
	}
	var out domain.ReservationCheck
	err := c.post(ctx, fmt.Sprintf("/check-reservation-%s.json", hostID),
		url.Values{"mode": {"live"}}, body, &out)
	return out, err
}

// ---- Internals ----

var (
	ErrNotFound     = errors.New("respax: not found")
	ErrUnauthorized = errors.New("respax: unauthorized")
	ErrForbidden    = errors.New("respax: forbidden")
)

// post performs a POST with client-side rate limiting, retries, and JSON
// decode into out. Retries on 429 and transient 5xx, honoring Retry-After.
func (c *Client) post(ctx context.Context, path string, query url.Values, body any, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, rd)
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			dec := json.NewDecoder(resp.Body)
			err := dec.Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("respax: decode %s: %w", path, err)
			}
			return nil

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
