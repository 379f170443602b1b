package saga

import (
	"fmt"

	"github.com/triptech/booking-gateway/internal/downstream"
)

// PaymentInfo is the payment fragment embedded in reservation views.
type PaymentInfo struct {
	Status string `json:"status"`
	Price  int    `json:"price"`
}

// HotelInfo is the hotel fragment embedded in reservation views.
type HotelInfo struct {
	HotelUID    string `json:"hotelUid"`
	Name        string `json:"name"`
	FullAddress string `json:"fullAddress"`
	Stars       int    `json:"stars"`
}

func hotelInfo(h *downstream.Hotel) *HotelInfo {
	return &HotelInfo{
		HotelUID:    h.HotelUID,
		Name:        h.Name,
		FullAddress: fmt.Sprintf("%s, %s, %s", h.Country, h.City, h.Address),
		Stars:       h.Stars,
	}
}

// ReservationView is a reservation record enriched with its hotel and
// payment details. Hotel and Payment stay nil when the owning service could
// not supply them; enrichment never fails the enclosing request.
type ReservationView struct {
	ReservationUID string      `json:"reservationUid"`
	Hotel          *HotelInfo  `json:"hotel,omitempty"`
	StartDate      string      `json:"startDate"`
	EndDate        string      `json:"endDate"`
	Status         string      `json:"status"`
	Payment        *PaymentInfo `json:"payment,omitempty"`
}

// BookingResult is the response payload of a completed booking saga.
type BookingResult struct {
	ReservationUID string      `json:"reservationUid"`
	HotelUID       string      `json:"hotelUid"`
	StartDate      string      `json:"startDate"`
	EndDate        string      `json:"endDate"`
	Discount       float64     `json:"discount"`
	Status         string      `json:"status"`
	Payment        PaymentInfo `json:"payment"`
}

// UserInfo aggregates a user's reservations and loyalty profile. Loyalty is
// either a *downstream.Loyalty or the empty string when the loyalty service
// could not answer, matching the established wire format.
type UserInfo struct {
	Reservations []ReservationView `json:"reservations"`
	Loyalty      any               `json:"loyalty"`
}
