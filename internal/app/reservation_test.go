package app_test

import (
	"context"
	"errors"
	"testing"

	"respax_booking/internal/app"
	"respax_booking/internal/domain"
)

func TestBuildTicket_SparsePaxMixAndExtras(t *testing.T) {
	ticket := app.BuildTicket(testTour(), "2026-03-01",
		domain.TourOptions{BasisID: 10, SubbasisID: 100, TimeID: 1},
		domain.GuestCounts{Adults: 2, Children: 1, Infants: 0, Families: 0},
		[]domain.AdultExtraSelection{
			{AdultID: 1, ExtraID: extraID(7)},
			{AdultID: 2, ExtraID: nil},
		})

	if len(ticket.PaxMix) != 2 || ticket.PaxMix["adult"] != 2 || ticket.PaxMix["child"] != 1 {
		t.Fatalf("pax_mix must hold only non-zero types: %+v", ticket.PaxMix)
	}
	if _, ok := ticket.PaxMix["infant"]; ok {
		t.Fatalf("zero-valued key present: %+v", ticket.PaxMix)
	}
	if len(ticket.Extras) != 1 || ticket.Extras[0] != (domain.ExtraQty{ExtraID: 7, Qty: 1}) {
		t.Fatalf("extras: %+v", ticket.Extras)
	}
}

func TestBuildTicket_GroupsSelectionsByExtra(t *testing.T) {
	ticket := app.BuildTicket(testTour(), "2026-03-01",
		domain.TourOptions{BasisID: 10, SubbasisID: 100, TimeID: 1},
		domain.GuestCounts{Adults: 3},
		[]domain.AdultExtraSelection{
			{AdultID: 1, ExtraID: extraID(8)},
			{AdultID: 2, ExtraID: extraID(7)},
			{AdultID: 3, ExtraID: extraID(8)},
		})

	want := []domain.ExtraQty{{ExtraID: 7, Qty: 1}, {ExtraID: 8, Qty: 2}}
	if len(ticket.Extras) != 2 || ticket.Extras[0] != want[0] || ticket.Extras[1] != want[1] {
		t.Fatalf("extras: %+v", ticket.Extras)
	}
}

func TestBuildTicket_NoExtrasOmitted(t *testing.T) {
	ticket := app.BuildTicket(testTour(), "2026-03-01",
		domain.TourOptions{BasisID: 10, SubbasisID: 100, TimeID: 1},
		domain.GuestCounts{Adults: 1},
		[]domain.AdultExtraSelection{{AdultID: 1}})
	if ticket.Extras != nil {
		t.Fatalf("expected nil extras, got %+v", ticket.Extras)
	}
}

func TestCheck_Success(t *testing.T) {
	api := &fakeAPI{check: domain.ReservationCheck{
		Prices: &domain.ReservationPrices{Total: 540, Currency: "AUD"},
	}}
	svc := app.NewReservationService(api)

	res, err := svc.Check(context.Background(), testTour(), "2026-03-01",
		domain.TourOptions{BasisID: 10, SubbasisID: 100, TimeID: 1},
		domain.GuestCounts{Adults: 2}, nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !res.OK() || res.Prices.Total != 540 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(api.lastTickets) != 1 || api.lastTickets[0].TourCode != "REEF" {
		t.Fatalf("ticket not submitted: %+v", api.lastTickets)
	}
}

func TestCheck_ValidationErrorsSurfaceVerbatim(t *testing.T) {
	api := &fakeAPI{check: domain.ReservationCheck{
		Errors: []string{"Tour not available on date", "Invalid pax mix"},
	}}
	svc := app.NewReservationService(api)

	res, err := svc.Check(context.Background(), testTour(), "2026-03-01",
		domain.TourOptions{BasisID: 10, SubbasisID: 100, TimeID: 1},
		domain.GuestCounts{Adults: 2}, nil)
	if err != nil {
		t.Fatalf("validation errors must not be transport errors: %v", err)
	}
	if res.OK() || len(res.Errors) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCheck_TransportFailure(t *testing.T) {
	api := &fakeAPI{checkErr: errors.New("connection reset")}
	svc := app.NewReservationService(api)

	_, err := svc.Check(context.Background(), testTour(), "2026-03-01",
		domain.TourOptions{BasisID: 10, SubbasisID: 100, TimeID: 1},
		domain.GuestCounts{Adults: 2}, nil)
	if !errors.Is(err, app.ErrCheckFailed) {
		t.Fatalf("expected ErrCheckFailed, got %v", err)
	}
}

func TestCheck_RejectsIncompleteInput(t *testing.T) {
	svc := app.NewReservationService(&fakeAPI{})

	if _, err := svc.Check(context.Background(), domain.Tour{}, "2026-03-01",
		domain.TourOptions{BasisID: 10, SubbasisID: 100, TimeID: 1},
		domain.GuestCounts{Adults: 1}, nil); !errors.Is(err, app.ErrInvalidTour) {
		t.Fatalf("expected ErrInvalidTour, got %v", err)
	}
	if _, err := svc.Check(context.Background(), testTour(), "",
		domain.TourOptions{BasisID: 10, SubbasisID: 100, TimeID: 1},
		domain.GuestCounts{Adults: 1}, nil); !errors.Is(err, app.ErrMissingOptions) {
		t.Fatalf("expected ErrMissingOptions, got %v", err)
	}
}
