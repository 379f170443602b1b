package saga

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/triptech/booking-gateway/internal/circuitbreaker"
	"github.com/triptech/booking-gateway/internal/downstream"
)

func testFacades(t *testing.T, reservation, loyalty, payment http.Handler) (*downstream.ReservationClient, *downstream.LoyaltyClient, *downstream.PaymentClient) {
	t.Helper()
	newClient := func(service string, h http.Handler) *downstream.Client {
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)
		b := circuitbreaker.New(service, 100, time.Minute, slog.Default())
		return downstream.NewClient(service, srv.URL, 2*time.Second, b, slog.Default())
	}
	return downstream.NewReservationClient(newClient("reservation", reservation)),
		downstream.NewLoyaltyClient(newClient("loyalty", loyalty)),
		downstream.NewPaymentClient(newClient("payment", payment))
}

// recorder tracks downstream calls so tests can assert the saga's sequence.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) has(call string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c == call {
			return true
		}
	}
	return false
}

func TestDiscountedCost(t *testing.T) {
	tests := []struct {
		name     string
		cost     int
		discount float64
		want     int
	}{
		{"ten percent", 3000, 10, 2700},
		{"no discount", 3000, 0, 3000},
		{"truncates", 999, 10, 899},
		{"zero cost", 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := discountedCost(tt.cost, tt.discount); got != tt.want {
				t.Errorf("discountedCost(%d, %v) = %d, want %d", tt.cost, tt.discount, got, tt.want)
			}
		})
	}
}

func bookingReq(t *testing.T) BookingRequest {
	t.Helper()
	start, _ := time.Parse(dateLayout, "2026-10-01")
	end, _ := time.Parse(dateLayout, "2026-10-04")
	return BookingRequest{
		HotelUID:  "049161bb-badd-4fa8-9d90-87c9a82b0668",
		StartDate: start,
		EndDate:   end,
	}
}

func TestBookingSaga_Completes(t *testing.T) {
	rec := &recorder{}
	var paymentReq downstream.PaymentRequest
	var reservationReq downstream.Reservation

	reservation := http.NewServeMux()
	reservation.HandleFunc("GET /api/v1/hotels/{uid}", func(w http.ResponseWriter, r *http.Request) {
		rec.add("get_hotel")
		json.NewEncoder(w).Encode(downstream.Hotel{
			ID: 1, HotelUID: r.PathValue("uid"), Name: "Ararat Park Hyatt",
			Country: "Россия", City: "Москва", Address: "Неглинная ул., 4",
			Stars: 5, Price: 1000,
		})
	})
	reservation.HandleFunc("POST /api/v1/reservations", func(w http.ResponseWriter, r *http.Request) {
		rec.add("create_reservation")
		json.NewDecoder(r.Body).Decode(&reservationReq)
		created := reservationReq
		created.ReservationUID = "e3a2b1c0-0001-4000-8000-000000000001"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	})

	loyalty := http.NewServeMux()
	loyalty.HandleFunc("GET /api/v1/loyalties", func(w http.ResponseWriter, r *http.Request) {
		rec.add("get_loyalty")
		json.NewEncoder(w).Encode(downstream.Loyalty{Status: "GOLD", Discount: 10, ReservationCount: 25})
	})
	loyalty.HandleFunc("GET /api/v1/loyalties/improve", func(w http.ResponseWriter, r *http.Request) {
		rec.add("improve_loyalty")
		w.WriteHeader(http.StatusNoContent)
	})

	payment := http.NewServeMux()
	payment.HandleFunc("POST /api/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		rec.add("create_payment")
		json.NewDecoder(r.Body).Decode(&paymentReq)
		json.NewEncoder(w).Encode(downstream.Payment{
			PaymentUID: "f1d2c3b4-0002-4000-8000-000000000002",
			Status:     paymentReq.Status, Price: paymentReq.Price,
		})
	})

	res, loy, pay := testFacades(t, reservation, loyalty, payment)
	s := NewBookingSaga(res, loy, pay, slog.Default())

	result, err := s.Execute(context.Background(), "alice", bookingReq(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 3 nights at 1000 with 10% off.
	if paymentReq.Price != 2700 {
		t.Errorf("charged price = %d, want 2700", paymentReq.Price)
	}
	if reservationReq.Username != "alice" || reservationReq.HotelID != 1 {
		t.Errorf("reservation request = %+v", reservationReq)
	}
	if reservationReq.PaymentUID != "f1d2c3b4-0002-4000-8000-000000000002" {
		t.Errorf("reservation payment uid = %q", reservationReq.PaymentUID)
	}
	if result.ReservationUID == "" || result.Status != downstream.StatusPaid {
		t.Errorf("result = %+v", result)
	}
	if result.Discount != 10 || result.Payment.Price != 2700 {
		t.Errorf("result pricing = discount %v price %d", result.Discount, result.Payment.Price)
	}
	if !rec.has("improve_loyalty") {
		t.Error("loyalty improve was never called")
	}
}

func TestBookingSaga_HotelNotFound(t *testing.T) {
	rec := &recorder{}
	reservation := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	})
	loyalty := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add("loyalty")
	})
	payment := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add("payment")
	})

	res, loy, pay := testFacades(t, reservation, loyalty, payment)
	s := NewBookingSaga(res, loy, pay, slog.Default())

	_, err := s.Execute(context.Background(), "alice", bookingReq(t))
	if !downstream.IsNotFound(err) {
		t.Fatalf("err = %v, want not-found", err)
	}
	if rec.has("loyalty") || rec.has("payment") {
		t.Error("no later step should run after the hotel lookup fails")
	}
}

func TestBookingSaga_ImproveFailureDeletesPayment(t *testing.T) {
	rec := &recorder{}

	reservation := http.NewServeMux()
	reservation.HandleFunc("GET /api/v1/hotels/{uid}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(downstream.Hotel{ID: 1, HotelUID: r.PathValue("uid"), Price: 1000})
	})
	reservation.HandleFunc("POST /api/v1/reservations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(downstream.Reservation{ReservationUID: "r-1"})
	})

	loyalty := http.NewServeMux()
	loyalty.HandleFunc("GET /api/v1/loyalties", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(downstream.Loyalty{Status: "BRONZE", Discount: 5})
	})
	loyalty.HandleFunc("GET /api/v1/loyalties/improve", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	payment := http.NewServeMux()
	payment.HandleFunc("POST /api/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(downstream.Payment{PaymentUID: "pay-9", Status: downstream.StatusPaid, Price: 100})
	})
	payment.HandleFunc("DELETE /api/v1/payments/{uid}", func(w http.ResponseWriter, r *http.Request) {
		rec.add("delete:" + r.PathValue("uid"))
		w.WriteHeader(http.StatusNoContent)
	})

	res, loy, pay := testFacades(t, reservation, loyalty, payment)
	s := NewBookingSaga(res, loy, pay, slog.Default())

	_, err := s.Execute(context.Background(), "alice", bookingReq(t))
	if !downstream.IsUnavailable(err) {
		t.Fatalf("err = %v, want unavailable", err)
	}
	if !rec.has("delete:pay-9") {
		t.Error("compensation did not delete the payment")
	}
}

func TestBookingSaga_ReservationFailureLeavesPayment(t *testing.T) {
	rec := &recorder{}

	reservation := http.NewServeMux()
	reservation.HandleFunc("GET /api/v1/hotels/{uid}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(downstream.Hotel{ID: 1, HotelUID: r.PathValue("uid"), Price: 1000})
	})
	reservation.HandleFunc("POST /api/v1/reservations", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	loyalty := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(downstream.Loyalty{Status: "BRONZE", Discount: 0})
	})

	payment := http.NewServeMux()
	payment.HandleFunc("POST /api/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(downstream.Payment{PaymentUID: "pay-1", Status: downstream.StatusPaid, Price: 3000})
	})
	payment.HandleFunc("DELETE /api/v1/payments/{uid}", func(w http.ResponseWriter, r *http.Request) {
		rec.add("delete")
	})

	res, loy, pay := testFacades(t, reservation, loyalty, payment)
	s := NewBookingSaga(res, loy, pay, slog.Default())

	_, err := s.Execute(context.Background(), "alice", bookingReq(t))
	de, ok := downstream.AsError(err)
	if !ok || de.Kind != downstream.KindFailure {
		t.Fatalf("err = %v, want downstream failure", err)
	}
	if rec.has("delete") {
		t.Error("reservation failure must not delete the payment")
	}
}
