// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"staylio/internal/app"
	"staylio/internal/domain"
)

type Handlers struct {
	B *app.BookingService
	Q *app.QueryService
}

type problem struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Status  int    `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Success bool   `json:"success"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1/bookings", func(r chi.Router) {
		r.Get("/", h.listBookings)
		r.Post("/", h.createBooking)
		r.Get("/availability", h.availability)
		r.Get("/stats", h.stats)
		r.Get("/reference/{ref}", h.getBookingByReference)
		r.Get("/{id}", h.getBooking)
		r.Put("/{id}", h.updateBooking)
		r.Delete("/{id}", h.deleteBooking)
		r.Patch("/{id}/confirm", h.confirmBooking)
		r.Patch("/{id}/cancel", h.cancelBooking)
		r.Post("/{id}/payment", h.updatePayment)
	})

	s.mux.Route("/v1/wallets", func(r chi.Router) {
		r.Get("/admin", h.adminWallet)
		r.Get("/host/{id}", h.hostWallet)
		r.Get("/user/{id}", h.userWallet)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain error kinds to HTTP statuses. Anything unclassified is a 500
// whose cause stays in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", domain.Reason(err))
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Bad Request", domain.Reason(err))
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", domain.Reason(err))
	case errors.Is(err, domain.ErrIllegalState):
		writeProblem(w, http.StatusConflict, "Conflict", domain.Reason(err))
	case errors.Is(err, domain.ErrCapacity):
		writeProblem(w, http.StatusConflict, "Sold Out", domain.Reason(err))
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeProblem(w, http.StatusUnprocessableEntity, "Insufficient Funds", domain.Reason(err))
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached answers a read with a weak ETag and honours If-None-Match.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Invalidf("malformed JSON body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		return domain.Invalidf("%v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalidf("id must be a positive number")
	}
	return id, nil
}

func queryInt64(r *http.Request, key string) (*int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return nil, domain.Invalidf("%s must be a positive number", key)
	}
	return &n, nil
}

func queryDate(r *http.Request, key string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, r.URL.Query().Get(key))
	if err != nil {
		return time.Time{}, domain.Invalidf("%s must be a date like 2006-01-02", key)
	}
	return t, nil
}

// ---- bookings ----

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	var f domain.BookingFilter
	var err error
	if f.UserID, err = queryInt64(r, "user_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.HotelID, err = queryInt64(r, "hotel_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.HostID, err = queryInt64(r, "host_id"); err != nil {
		writeError(w, r, err)
		return
	}
	if st := r.URL.Query().Get("status"); st != "" {
		status, err := domain.ParseBookingStatus(st)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.Status = &status
	}
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 500 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 500")
			return
		}
		f.Limit = l
	}
	out, err := h.B.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.B.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, b)
}

func (h *Handlers) getBookingByReference(w http.ResponseWriter, r *http.Request) {
	b, err := h.B.GetByReference(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, b)
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.B.Create(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Booking created successfully"
	if b.Status == domain.StatusConfirmed {
		msg = "Booking confirmed, payment received"
	}
	writeJSON(w, http.StatusCreated, bookingResp{Success: true, Message: msg, Booking: &b, BookingReference: b.Reference})
}

func (h *Handlers) updateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateBookingReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.B.Update(r.Context(), id, domain.BookingPatch{
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		GuestPhone:      req.GuestPhone,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResp{Success: true, Message: "Booking updated", Booking: &b, BookingReference: b.Reference})
}

func (h *Handlers) deleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.B.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResp{Success: true, Message: "Booking deleted"})
}

func (h *Handlers) confirmBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.B.Confirm(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResp{Success: true, Message: "Booking confirmed", Booking: &b, BookingReference: b.Reference})
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.B.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Booking cancelled"
	if out.RefundStatus == "" {
		msg = "Booking was already cancelled"
	}
	writeJSON(w, http.StatusOK, bookingResp{
		Success: true, Message: msg, Booking: &out.Booking,
		BookingReference: out.Booking.Reference, RefundStatus: out.RefundStatus,
	})
}

func (h *Handlers) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = string(domain.PaymentSuccess)
	}
	b, err := h.B.ApplyPayment(r.Context(), id, domain.ParsePaymentReport(req.PaymentStatus, req.PaymentRef))
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Payment updated. Waiting for host confirmation."
	if b.Status != domain.StatusPending {
		msg = "Payment updated"
	}
	writeJSON(w, http.StatusOK, bookingResp{Success: true, Message: msg, Booking: &b, BookingReference: b.Reference})
}

func (h *Handlers) availability(w http.ResponseWriter, r *http.Request) {
	hotelID, err := queryInt64(r, "hotel_id")
	if err == nil && hotelID == nil {
		err = domain.Invalidf("hotel_id is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := queryDate(r, "check_in")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := queryDate(r, "check_out")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rooms := 1
	if rs := r.URL.Query().Get("rooms"); rs != "" {
		if rooms, err = strconv.Atoi(rs); err != nil {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "rooms must be an integer")
			return
		}
	}
	ok, err := h.Q.Availability(r.Context(), *hotelID, in, out, rooms)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResp{
		HotelID: *hotelID, CheckIn: in.Format(time.DateOnly), CheckOut: out.Format(time.DateOnly),
		Rooms: rooms, Available: ok,
	})
}

func (h *Handlers) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Q.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
