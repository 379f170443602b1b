package saga

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/triptech/booking-gateway/internal/downstream"
	"github.com/triptech/booking-gateway/internal/retryqueue"
)

func testQueue(t *testing.T) (*retryqueue.Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return retryqueue.New(rdb, "loyalty-queue"), mr
}

func cancelBackends(t *testing.T, rec *recorder, degradeStatus int) (*downstream.ReservationClient, *downstream.LoyaltyClient, *downstream.PaymentClient) {
	t.Helper()

	reservation := http.NewServeMux()
	reservation.HandleFunc("GET /api/v1/reservations/{uid}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(downstream.Reservation{
			ReservationUID: r.PathValue("uid"), HotelID: 1,
			StartDate: "2026-10-01", EndDate: "2026-10-04",
			Status: downstream.StatusPaid, PaymentUID: "pay-1",
		})
	})
	reservation.HandleFunc("PUT /api/v1/reservations", func(w http.ResponseWriter, r *http.Request) {
		var res downstream.Reservation
		json.NewDecoder(r.Body).Decode(&res)
		rec.add("reservation_status:" + res.Status)
		w.WriteHeader(http.StatusNoContent)
	})

	loyalty := http.NewServeMux()
	loyalty.HandleFunc("GET /api/v1/loyalties/degrade", func(w http.ResponseWriter, r *http.Request) {
		rec.add("degrade:" + r.Header.Get("X-User-Name"))
		w.WriteHeader(degradeStatus)
	})

	payment := http.NewServeMux()
	payment.HandleFunc("GET /api/v1/payments/{uid}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(downstream.Payment{
			PaymentUID: r.PathValue("uid"), Status: downstream.StatusPaid, Price: 2700,
		})
	})
	payment.HandleFunc("PUT /api/v1/payments", func(w http.ResponseWriter, r *http.Request) {
		var p downstream.Payment
		json.NewDecoder(r.Body).Decode(&p)
		rec.add("payment_status:" + p.Status)
		w.WriteHeader(http.StatusNoContent)
	})

	return testFacades(t, reservation, loyalty, payment)
}

func TestCancelSaga_Completes(t *testing.T) {
	rec := &recorder{}
	q, _ := testQueue(t)
	res, loy, pay := cancelBackends(t, rec, http.StatusNoContent)
	s := NewCancelSaga(res, loy, pay, q, slog.Default())

	if err := s.Execute(context.Background(), "alice", "r-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"reservation_status:CANCELED", "payment_status:CANCELED", "degrade:alice"} {
		if !rec.has(want) {
			t.Errorf("missing downstream effect %q (calls: %v)", want, rec.calls)
		}
	}

	if n, _ := q.Len(context.Background()); n != 0 {
		t.Errorf("queue depth = %d, want 0 after a clean degrade", n)
	}
}

func TestCancelSaga_DegradeFailureEnqueuesOnce(t *testing.T) {
	rec := &recorder{}
	q, _ := testQueue(t)
	res, loy, pay := cancelBackends(t, rec, http.StatusInternalServerError)
	s := NewCancelSaga(res, loy, pay, q, slog.Default())

	// A failed degrade must not fail the cancellation.
	if err := s.Execute(context.Background(), "alice", "r-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	if n, _ := q.Len(ctx); n != 1 {
		t.Fatalf("queue depth = %d, want exactly 1", n)
	}
	username, ok, err := q.Pop(ctx)
	if err != nil || !ok {
		t.Fatalf("pop: ok=%v err=%v", ok, err)
	}
	if username != "alice" {
		t.Errorf("queued username = %q, want alice", username)
	}
}

func TestCancelSaga_ReservationNotFound(t *testing.T) {
	rec := &recorder{}
	q, _ := testQueue(t)

	reservation := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	})
	loyalty := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add("degrade")
	})
	payment := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add("payment")
	})

	res, loy, pay := testFacades(t, reservation, loyalty, payment)
	s := NewCancelSaga(res, loy, pay, q, slog.Default())

	err := s.Execute(context.Background(), "alice", "missing")
	if !downstream.IsNotFound(err) {
		t.Fatalf("err = %v, want not-found", err)
	}
	if rec.has("degrade") || rec.has("payment") {
		t.Error("no later step should run when the reservation is missing")
	}
	if n, _ := q.Len(context.Background()); n != 0 {
		t.Errorf("queue depth = %d, want 0", n)
	}
}
