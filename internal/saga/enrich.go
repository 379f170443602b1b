package saga

import (
	"context"
	"log/slog"

	"github.com/triptech/booking-gateway/internal/downstream"
)

// Enricher decorates raw reservation records with their hotel and payment
// details for the read endpoints. Every lookup is best-effort: a breaker
// denial or downstream fault leaves the fragment empty rather than failing
// the request, and each reservation in a list is enriched independently.
type Enricher struct {
	reservations *downstream.ReservationClient
	payments     *downstream.PaymentClient
	logger       *slog.Logger
}

// NewEnricher wires the enricher over the reservation and payment facades.
func NewEnricher(reservations *downstream.ReservationClient, payments *downstream.PaymentClient, logger *slog.Logger) *Enricher {
	return &Enricher{reservations: reservations, payments: payments, logger: logger}
}

// View builds the enriched view of one reservation.
func (e *Enricher) View(ctx context.Context, r downstream.Reservation) ReservationView {
	view := ReservationView{
		ReservationUID: r.ReservationUID,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Status:         r.Status,
	}

	if hotel, err := e.reservations.GetHotelByID(ctx, r.HotelID); err == nil {
		view.Hotel = hotelInfo(hotel)
	} else {
		e.logger.Debug("hotel enrichment unavailable",
			"reservation", r.ReservationUID, "hotel_id", r.HotelID, "error", err)
	}

	if r.PaymentUID != "" {
		if payment, err := e.payments.Get(ctx, r.PaymentUID); err == nil {
			view.Payment = &PaymentInfo{Status: payment.Status, Price: payment.Price}
		} else {
			e.logger.Debug("payment enrichment unavailable",
				"reservation", r.ReservationUID, "payment_uid", r.PaymentUID, "error", err)
		}
	}

	return view
}

// Views enriches a list of reservations, one view per record.
func (e *Enricher) Views(ctx context.Context, rs []downstream.Reservation) []ReservationView {
	views := make([]ReservationView, 0, len(rs))
	for _, r := range rs {
		views = append(views, e.View(ctx, r))
	}
	return views
}
