package downstream

// Entity status values shared by the reservation and payment services.
const (
	StatusPaid     = "PAID"
	StatusCanceled = "CANCELED"
)

// Hotel is the reservation service's hotel record.
type Hotel struct {
	ID       int    `json:"id"`
	HotelUID string `json:"hotelUid"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	City     string `json:"city"`
	Address  string `json:"address"`
	Stars    int    `json:"stars"`
	Price    int    `json:"price"` // nightly price
}

// Loyalty is the loyalty service's profile record.
type Loyalty struct {
	Status           string  `json:"status"`
	Discount         float64 `json:"discount"` // percentage, 0-100
	ReservationCount int     `json:"reservationCount"`
}

// Payment is the payment service's record.
type Payment struct {
	PaymentUID string `json:"paymentUid"`
	Status     string `json:"status"`
	Price      int    `json:"price"`
}

// PaymentRequest is the body for creating a payment record.
type PaymentRequest struct {
	Status string `json:"status"`
	Price  int    `json:"price"`
}

// Reservation is the reservation service's record. ReservationUID is empty
// in creation requests and assigned by the service.
type Reservation struct {
	ReservationUID string `json:"reservationUid,omitempty"`
	Username       string `json:"username,omitempty"`
	HotelID        int    `json:"hotelId"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	Status         string `json:"status"`
	PaymentUID     string `json:"paymentUid"`
}
