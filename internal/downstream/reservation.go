package downstream

import (
	"context"
	"fmt"
	"net/http"
)

// ReservationClient is the facade for the reservation service, which owns
// both the hotel catalogue and the reservation records.
type ReservationClient struct {
	*Client
}

// NewReservationClient wraps a Client configured for the reservation service.
func NewReservationClient(c *Client) *ReservationClient {
	return &ReservationClient{Client: c}
}

// ListHotels fetches one page of the hotel catalogue.
func (c *ReservationClient) ListHotels(ctx context.Context, page, size int) ([]Hotel, error) {
	var hotels []Hotel
	path := fmt.Sprintf("/api/v1/hotels?page=%d&size=%d", page, size)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &hotels); err != nil {
		return nil, err
	}
	return hotels, nil
}

// GetHotelByUID fetches a hotel by its public UID.
func (c *ReservationClient) GetHotelByUID(ctx context.Context, hotelUID string) (*Hotel, error) {
	var hotel *Hotel
	if err := c.do(ctx, http.MethodGet, "/api/v1/hotels/"+hotelUID, "", nil, &hotel); err != nil {
		return nil, err
	}
	if hotel == nil {
		return nil, &Error{Service: c.service, Kind: KindNotFound}
	}
	return hotel, nil
}

// GetHotelByID fetches a hotel by its internal numeric id. Used when
// enriching reservation records, which reference hotels by id.
func (c *ReservationClient) GetHotelByID(ctx context.Context, hotelID int) (*Hotel, error) {
	var hotel *Hotel
	path := fmt.Sprintf("/api/v1/reservations/hotels/%d", hotelID)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &hotel); err != nil {
		return nil, err
	}
	if hotel == nil {
		return nil, &Error{Service: c.service, Kind: KindNotFound}
	}
	return hotel, nil
}

// ListReservations fetches all reservations belonging to the user.
func (c *ReservationClient) ListReservations(ctx context.Context, username string) ([]Reservation, error) {
	var reservations []Reservation
	if err := c.do(ctx, http.MethodGet, "/api/v1/reservations", username, nil, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

// GetReservation fetches a single reservation by UID, scoped to the user.
func (c *ReservationClient) GetReservation(ctx context.Context, reservationUID, username string) (*Reservation, error) {
	var reservation *Reservation
	if err := c.do(ctx, http.MethodGet, "/api/v1/reservations/"+reservationUID, username, nil, &reservation); err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, &Error{Service: c.service, Kind: KindNotFound}
	}
	return reservation, nil
}

// CreateReservation persists a new reservation record and returns it with
// its assigned UID.
func (c *ReservationClient) CreateReservation(ctx context.Context, r Reservation) (*Reservation, error) {
	var created *Reservation
	if err := c.do(ctx, http.MethodPost, "/api/v1/reservations", "", r, &created); err != nil {
		return nil, err
	}
	if created == nil {
		return nil, &Error{Service: c.service, Kind: KindNotFound}
	}
	return created, nil
}

// UpdateReservation persists changes to an existing reservation record.
func (c *ReservationClient) UpdateReservation(ctx context.Context, r Reservation) error {
	return c.do(ctx, http.MethodPut, "/api/v1/reservations", "", r, nil)
}
