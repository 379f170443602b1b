// Package handler exposes the gateway's public REST surface and maps saga
// and downstream outcomes onto HTTP statuses.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/triptech/booking-gateway/internal/apierror"
	"github.com/triptech/booking-gateway/internal/downstream"
	"github.com/triptech/booking-gateway/internal/saga"
)

const dateLayout = "2006-01-02"

// Handler binds the aggregation flows to the public routes.
type Handler struct {
	reservations *downstream.ReservationClient
	loyalties    *downstream.LoyaltyClient
	booking      *saga.BookingSaga
	cancel       *saga.CancelSaga
	enricher     *saga.Enricher
	logger       *slog.Logger
}

// New builds the handler over its collaborators.
func New(
	reservations *downstream.ReservationClient,
	loyalties *downstream.LoyaltyClient,
	booking *saga.BookingSaga,
	cancel *saga.CancelSaga,
	enricher *saga.Enricher,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		reservations: reservations,
		loyalties:    loyalties,
		booking:      booking,
		cancel:       cancel,
		enricher:     enricher,
		logger:       logger,
	}
}

// Register installs the public API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/hotels", h.listHotels)
	mux.HandleFunc("GET /api/v1/me", h.me)
	mux.HandleFunc("GET /api/v1/loyalty", h.loyalty)
	mux.HandleFunc("POST /api/v1/reservations", h.createReservation)
	mux.HandleFunc("GET /api/v1/reservations", h.listReservations)
	mux.HandleFunc("GET /api/v1/reservations/{uid}", h.getReservation)
	mux.HandleFunc("DELETE /api/v1/reservations/{uid}", h.cancelReservation)
}

// paginationResponse wraps one page of the hotel catalogue.
type paginationResponse struct {
	Page          int                `json:"page"`
	PageSize      int                `json:"pageSize"`
	TotalElements int                `json:"totalElements"`
	Items         []downstream.Hotel `json:"items"`
}

func (h *Handler) listHotels(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil || page < 0 {
		apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.InvalidInput, "page must be a non-negative integer")
		return
	}
	size, err := queryInt(r, "size", 10)
	if err != nil || size < 1 {
		apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.InvalidInput, "size must be a positive integer")
		return
	}

	hotels, err := h.reservations.ListHotels(r.Context(), page, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if hotels == nil {
		hotels = []downstream.Hotel{}
	}

	writeJSON(w, http.StatusOK, paginationResponse{
		Page:          page,
		PageSize:      size,
		TotalElements: len(hotels),
		Items:         hotels,
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	reservations, err := h.reservations.ListReservations(r.Context(), username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	info := saga.UserInfo{
		Reservations: h.enricher.Views(r.Context(), reservations),
		// Wire format: absent loyalty serializes as the empty string.
		Loyalty: "",
	}
	if loyalty, err := h.loyalties.Get(r.Context(), username); err == nil {
		info.Loyalty = loyalty
	} else {
		h.logger.Debug("loyalty unavailable for aggregate view", "username", username, "error", err)
	}

	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) loyalty(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	loyalty, err := h.loyalties.Get(r.Context(), username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loyalty)
}

// createReservationRequest is the booking request body.
type createReservationRequest struct {
	HotelUID  string `json:"hotelUid"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (h *Handler) createReservation(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.InvalidInput, "malformed JSON body")
		return
	}
	if _, err := uuid.Parse(req.HotelUID); err != nil {
		apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.InvalidInput, "hotelUid must be a valid UUID")
		return
	}
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.InvalidInput, "startDate must be formatted as 2006-01-02")
		return
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.InvalidInput, "endDate must be formatted as 2006-01-02")
		return
	}
	if !end.After(start) {
		apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.InvalidInput, "endDate must be after startDate")
		return
	}

	result, err := h.booking.Execute(r.Context(), username, saga.BookingRequest{
		HotelUID:  req.HotelUID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) listReservations(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	reservations, err := h.reservations.ListReservations(r.Context(), username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.enricher.Views(r.Context(), reservations))
}

func (h *Handler) getReservation(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}
	uid, ok := pathUUID(w, r)
	if !ok {
		return
	}

	reservation, err := h.reservations.GetReservation(r.Context(), uid, username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.enricher.View(r.Context(), *reservation))
}

func (h *Handler) cancelReservation(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}
	uid, ok := pathUUID(w, r)
	if !ok {
		return
	}

	if err := h.cancel.Execute(r.Context(), username, uid); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps the downstream error taxonomy onto HTTP statuses:
// not-found → 404, breaker rejection → 503, downstream failure → the
// downstream's own status when one was received, otherwise 503.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *downstream.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case downstream.KindNotFound:
			apierror.WriteJSON(w, r, http.StatusNotFound, apierror.EntityNotFound, "requested entity not found")
			return
		case downstream.KindUnavailable:
			apierror.WriteJSON(w, r, http.StatusServiceUnavailable, apierror.ServiceUnavailable, "downstream service unavailable")
			return
		case downstream.KindFailure:
			if de.Status >= 400 {
				apierror.WriteJSON(w, r, de.Status, apierror.DependencyFailed, de.Service+" service request failed")
				return
			}
			apierror.WriteJSON(w, r, http.StatusServiceUnavailable, apierror.ServiceUnavailable, "downstream service unavailable")
			return
		}
	}

	h.logger.Error("request failed", "error", err)
	apierror.WriteJSON(w, r, http.StatusInternalServerError, apierror.InternalError, "internal error")
}

func requireUsername(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := r.Header.Get("X-User-Name")
	if username == "" {
		apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.MissingUsername, "X-User-Name header is required")
		return "", false
	}
	return username, true
}

func pathUUID(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := r.PathValue("uid")
	if _, err := uuid.Parse(uid); err != nil {
		apierror.WriteJSON(w, r, http.StatusBadRequest, apierror.InvalidInput, "reservation uid must be a valid UUID")
		return "", false
	}
	return uid, true
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
