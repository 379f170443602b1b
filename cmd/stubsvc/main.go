// Package main provides an in-memory stub of the three downstream services
// (reservation, loyalty, payment) for manual testing of the gateway. It
// seeds a small hotel catalogue and tracks reservations, payments, and
// loyalty counters per X-User-Name. /__status/{code} forces every following
// response to that status until reset with /__status/0, useful for
// exercising the circuit breaker and the retry queue by hand.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/triptech/booking-gateway/internal/downstream"
)

type store struct {
	mu           sync.Mutex
	forcedStatus int
	hotels       []downstream.Hotel
	reservations map[string][]downstream.Reservation // by username
	payments     map[string]downstream.Payment       // by payment uid
	loyalty      map[string]*downstream.Loyalty      // by username
}

func newStore() *store {
	return &store{
		hotels: []downstream.Hotel{
			{ID: 1, HotelUID: "049161bb-badd-4fa8-9d90-87c9a82b0668", Name: "Ararat Park Hyatt",
				Country: "Россия", City: "Москва", Address: "Неглинная ул., 4", Stars: 5, Price: 1000},
			{ID: 2, HotelUID: "1d98bc9e-2c98-4c5b-b1a2-0a5c7c9f1a2b", Name: "Kempinski Grand",
				Country: "Россия", City: "Геленджик", Address: "Революционная ул., 53", Stars: 5, Price: 2100},
		},
		reservations: map[string][]downstream.Reservation{},
		payments:     map[string]downstream.Payment{},
		loyalty:      map[string]*downstream.Loyalty{},
	}
}

// loyaltyFor lazily provisions a BRONZE profile, mirroring how the real
// loyalty service auto-registers users.
func (s *store) loyaltyFor(username string) *downstream.Loyalty {
	l, ok := s.loyalty[username]
	if !ok {
		l = &downstream.Loyalty{Status: "BRONZE", Discount: 5}
		s.loyalty[username] = l
	}
	return l
}

func main() {
	port := flag.Int("port", 8050, "port to listen on")
	flag.Parse()

	s := newStore()
	mux := http.NewServeMux()

	// Failure injection: /__status/503 makes every API response 503 until
	// /__status/0 clears it.
	mux.HandleFunc("/__status/{code}", func(w http.ResponseWriter, r *http.Request) {
		code, err := strconv.Atoi(r.PathValue("code"))
		if err != nil || (code != 0 && (code < 100 || code > 599)) {
			http.Error(w, "bad status code", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.forcedStatus = code
		s.mu.Unlock()
		fmt.Fprintf(w, "forced status = %d\n", code)
	})

	api := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			forced := s.forcedStatus
			s.mu.Unlock()
			if forced != 0 {
				w.WriteHeader(forced)
				return
			}
			h(w, r)
		}
	}

	// Hotel catalogue.
	mux.HandleFunc("GET /api/v1/hotels", api(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, s.hotels)
	}))
	mux.HandleFunc("GET /api/v1/hotels/{uid}", api(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, h := range s.hotels {
			if h.HotelUID == r.PathValue("uid") {
				writeJSON(w, http.StatusOK, h)
				return
			}
		}
		writeJSON(w, http.StatusOK, nil)
	}))
	mux.HandleFunc("GET /api/v1/reservations/hotels/{id}", api(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, h := range s.hotels {
			if h.ID == id {
				writeJSON(w, http.StatusOK, h)
				return
			}
		}
		writeJSON(w, http.StatusOK, nil)
	}))

	// Reservations.
	mux.HandleFunc("GET /api/v1/reservations", api(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, s.reservations[r.Header.Get("X-User-Name")])
	}))
	mux.HandleFunc("GET /api/v1/reservations/{uid}", api(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, res := range s.reservations[r.Header.Get("X-User-Name")] {
			if res.ReservationUID == r.PathValue("uid") {
				writeJSON(w, http.StatusOK, res)
				return
			}
		}
		writeJSON(w, http.StatusOK, nil)
	}))
	mux.HandleFunc("POST /api/v1/reservations", api(func(w http.ResponseWriter, r *http.Request) {
		var res downstream.Reservation
		if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res.ReservationUID = uuid.NewString()
		s.mu.Lock()
		s.reservations[res.Username] = append(s.reservations[res.Username], res)
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, res)
	}))
	mux.HandleFunc("PUT /api/v1/reservations", api(func(w http.ResponseWriter, r *http.Request) {
		var res downstream.Reservation
		if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for username, list := range s.reservations {
			for i := range list {
				if list[i].ReservationUID == res.ReservationUID {
					s.reservations[username][i] = res
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	// Payments.
	mux.HandleFunc("GET /api/v1/payments/{uid}", api(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if p, ok := s.payments[r.PathValue("uid")]; ok {
			writeJSON(w, http.StatusOK, p)
			return
		}
		writeJSON(w, http.StatusOK, nil)
	}))
	mux.HandleFunc("POST /api/v1/payments", api(func(w http.ResponseWriter, r *http.Request) {
		var req downstream.PaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p := downstream.Payment{PaymentUID: uuid.NewString(), Status: req.Status, Price: req.Price}
		s.mu.Lock()
		s.payments[p.PaymentUID] = p
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, p)
	}))
	mux.HandleFunc("PUT /api/v1/payments", api(func(w http.ResponseWriter, r *http.Request) {
		var p downstream.Payment
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.payments[p.PaymentUID]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.payments[p.PaymentUID] = p
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("DELETE /api/v1/payments/{uid}", api(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		delete(s.payments, r.PathValue("uid"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))

	// Loyalty.
	mux.HandleFunc("GET /api/v1/loyalties", api(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, s.loyaltyFor(r.Header.Get("X-User-Name")))
	}))
	mux.HandleFunc("GET /api/v1/loyalties/improve", api(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		l := s.loyaltyFor(r.Header.Get("X-User-Name"))
		l.ReservationCount++
		retier(l)
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /api/v1/loyalties/degrade", api(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		l := s.loyaltyFor(r.Header.Get("X-User-Name"))
		if l.ReservationCount > 0 {
			l.ReservationCount--
		}
		retier(l)
		w.WriteHeader(http.StatusNoContent)
	}))

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("stub services listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// retier recomputes the loyalty tier from the reservation counter.
func retier(l *downstream.Loyalty) {
	switch {
	case l.ReservationCount >= 20:
		l.Status, l.Discount = "GOLD", 10
	case l.ReservationCount >= 10:
		l.Status, l.Discount = "SILVER", 7
	default:
		l.Status, l.Discount = "BRONZE", 5
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
