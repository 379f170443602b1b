package saga

import (
	"context"
	"log/slog"

	"github.com/triptech/booking-gateway/internal/downstream"
	"github.com/triptech/booking-gateway/internal/retryqueue"
)

// CancelSaga cancels a reservation: mark the reservation and its payment
// CANCELED, then degrade the user's loyalty counter. The degrade is
// best-effort; when the loyalty service cannot take it the username is
// parked on the retry queue and the cancellation still succeeds.
type CancelSaga struct {
	reservations *downstream.ReservationClient
	loyalties    *downstream.LoyaltyClient
	payments     *downstream.PaymentClient
	queue        *retryqueue.Queue
	logger       *slog.Logger
}

// NewCancelSaga wires the saga over the facades and the retry queue.
func NewCancelSaga(
	reservations *downstream.ReservationClient,
	loyalties *downstream.LoyaltyClient,
	payments *downstream.PaymentClient,
	queue *retryqueue.Queue,
	logger *slog.Logger,
) *CancelSaga {
	return &CancelSaga{
		reservations: reservations,
		loyalties:    loyalties,
		payments:     payments,
		queue:        queue,
		logger:       logger,
	}
}

// Execute cancels reservationUID on behalf of username. The first three
// steps are required and fail the request; the loyalty degrade never does.
func (s *CancelSaga) Execute(ctx context.Context, username, reservationUID string) error {
	var reservation *downstream.Reservation

	steps := []Step{
		{
			Name: "fetch_reservation",
			Run: func(ctx context.Context) error {
				var err error
				reservation, err = s.reservations.GetReservation(ctx, reservationUID, username)
				return err
			},
		},
		{
			Name: "cancel_reservation",
			Run: func(ctx context.Context) error {
				reservation.Status = downstream.StatusCanceled
				return s.reservations.UpdateReservation(ctx, *reservation)
			},
		},
		{
			Name: "cancel_payment",
			Run: func(ctx context.Context) error {
				payment, err := s.payments.Get(ctx, reservation.PaymentUID)
				if err != nil {
					return err
				}
				payment.Status = downstream.StatusCanceled
				return s.payments.Update(ctx, *payment)
			},
		},
		{
			Name: "degrade_loyalty",
			Run: func(ctx context.Context) error {
				if err := s.loyalties.Degrade(ctx, username); err != nil {
					s.logger.Warn("loyalty degrade deferred to retry queue",
						"username", username, "error", err)
					if qerr := s.queue.Push(ctx, username); qerr != nil {
						// The cancellation itself already happened; losing
						// the degrade is preferable to failing the request.
						s.logger.Error("enqueueing deferred degrade failed",
							"username", username, "error", qerr)
					}
				}
				return nil
			},
		},
	}

	return execute(ctx, "cancellation", s.logger, steps)
}
