package saga

import (
	"context"
	"log/slog"
	"time"

	"github.com/triptech/booking-gateway/internal/downstream"
)

// BookingRequest is the validated input to the booking saga. Dates arrive
// already parsed; the handler owns wire-format validation.
type BookingRequest struct {
	HotelUID  string
	StartDate time.Time
	EndDate   time.Time
}

// BookingSaga books a hotel stay across the three downstream services:
// price the stay against the hotel catalogue and the user's loyalty
// discount, take the payment, record the reservation, then bump loyalty.
type BookingSaga struct {
	reservations *downstream.ReservationClient
	loyalties    *downstream.LoyaltyClient
	payments     *downstream.PaymentClient
	logger       *slog.Logger
}

// NewBookingSaga wires the saga over the three service facades.
func NewBookingSaga(
	reservations *downstream.ReservationClient,
	loyalties *downstream.LoyaltyClient,
	payments *downstream.PaymentClient,
	logger *slog.Logger,
) *BookingSaga {
	return &BookingSaga{
		reservations: reservations,
		loyalties:    loyalties,
		payments:     payments,
		logger:       logger,
	}
}

const dateLayout = "2006-01-02"

// discountedCost applies a percentage discount and truncates to whole
// currency units.
func discountedCost(cost int, discount float64) int {
	return int(float64(cost) * (100 - discount) / 100)
}

// Execute runs the booking saga for username. A failure in the final
// loyalty-improve step deletes the payment taken earlier and surfaces as
// service-unavailable; a failure creating the reservation leaves the
// payment in place, which the operators reconcile out of band.
func (s *BookingSaga) Execute(ctx context.Context, username string, req BookingRequest) (*BookingResult, error) {
	var (
		hotel       *downstream.Hotel
		loyalty     *downstream.Loyalty
		payment     *downstream.Payment
		reservation *downstream.Reservation
	)

	nights := int(req.EndDate.Sub(req.StartDate).Hours() / 24)

	steps := []Step{
		{
			Name: "fetch_hotel",
			Run: func(ctx context.Context) error {
				var err error
				hotel, err = s.reservations.GetHotelByUID(ctx, req.HotelUID)
				return err
			},
		},
		{
			Name: "fetch_loyalty",
			Run: func(ctx context.Context) error {
				var err error
				loyalty, err = s.loyalties.Get(ctx, username)
				return err
			},
		},
		{
			Name: "create_payment",
			Run: func(ctx context.Context) error {
				price := discountedCost(nights*hotel.Price, loyalty.Discount)
				var err error
				payment, err = s.payments.Create(ctx, downstream.PaymentRequest{
					Status: downstream.StatusPaid,
					Price:  price,
				})
				return err
			},
		},
		{
			Name: "create_reservation",
			Run: func(ctx context.Context) error {
				var err error
				reservation, err = s.reservations.CreateReservation(ctx, downstream.Reservation{
					Username:   username,
					HotelID:    hotel.ID,
					StartDate:  req.StartDate.Format(dateLayout),
					EndDate:    req.EndDate.Format(dateLayout),
					Status:     downstream.StatusPaid,
					PaymentUID: payment.PaymentUID,
				})
				return err
			},
		},
		{
			Name: "improve_loyalty",
			Run: func(ctx context.Context) error {
				if err := s.loyalties.Improve(ctx, username); err != nil {
					// The booking cannot stand without its loyalty credit;
					// undo the charge and report the dependency as down.
					return &downstream.Error{
						Service: "loyalty",
						Kind:    downstream.KindUnavailable,
						Err:     err,
					}
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.payments.Delete(ctx, payment.PaymentUID)
			},
		},
	}

	if err := execute(ctx, "booking", s.logger, steps); err != nil {
		return nil, err
	}

	return &BookingResult{
		ReservationUID: reservation.ReservationUID,
		HotelUID:       hotel.HotelUID,
		StartDate:      req.StartDate.Format(dateLayout),
		EndDate:        req.EndDate.Format(dateLayout),
		Discount:       loyalty.Discount,
		Status:         downstream.StatusPaid,
		Payment: PaymentInfo{
			Status: payment.Status,
			Price:  payment.Price,
		},
	}, nil
}
