package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staylio/internal/app"
	"staylio/internal/domain"
	"staylio/internal/storage/memory"
)

var now = time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

type nopPublisher struct{}

func (nopPublisher) Publish(...domain.Notification) {}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	host := int64(7)
	st.PutHost(domain.Host{ID: host, OwnerName: "Meera", Email: "host@example.com"})
	st.PutHotel(domain.Hotel{ID: 1, Name: "Sea Breeze", PricePerNight: decimal.NewFromInt(1000), HostID: &host})
	st.PutUser(domain.Guest{ID: 3, Name: "Arjun", Email: "arjun@example.com", EmailVerified: true})
	st.SetRooms(1, "DELUXE", 1)

	svc := app.NewBookingService(st, st, nopPublisher{}, func() time.Time { return now })
	srv := New(5 * time.Second)
	srv.MountHandlers(&Handlers{B: svc, Q: app.NewQueryService(st, 10)})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, st
}

func do(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&rd).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, _ := http.NewRequest(method, url, &rd)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

func createBody(in int) map[string]any {
	return map[string]any{
		"user_id":   3,
		"hotel_id":  1,
		"check_in":  now.AddDate(0, 0, in).Format(time.DateOnly),
		"check_out": now.AddDate(0, 0, in+2).Format(time.DateOnly),
		"rooms":     1,
		"guests":    2,
		"room_type": "DELUXE",
	}
}

func TestCreateConfirmCancelFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	res, body := do(t, http.MethodPost, ts.URL+"/v1/bookings", createBody(3))
	if res.StatusCode != http.StatusCreated || body["success"] != true {
		t.Fatalf("create: %d %v", res.StatusCode, body)
	}
	b := body["booking"].(map[string]any)
	id := int64(b["id"].(float64))
	if b["total_amount"] != "2200" || b["status"] != "PENDING" {
		t.Fatalf("booking %v", b)
	}

	res, body = do(t, http.MethodPatch, fmt.Sprintf("%s/v1/bookings/%d/confirm", ts.URL, id), nil)
	if res.StatusCode != http.StatusConflict || body["success"] != false {
		t.Fatalf("confirm unpaid: %d %v", res.StatusCode, body)
	}

	res, body = do(t, http.MethodPost, fmt.Sprintf("%s/v1/bookings/%d/payment", ts.URL, id), map[string]any{"payment_ref": "rp_42"})
	if res.StatusCode != http.StatusOK || body["message"] != "Payment updated. Waiting for host confirmation." {
		t.Fatalf("payment: %d %v", res.StatusCode, body)
	}

	res, _ = do(t, http.MethodPatch, fmt.Sprintf("%s/v1/bookings/%d/confirm", ts.URL, id), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("confirm: %d", res.StatusCode)
	}

	res, body = do(t, http.MethodPatch, fmt.Sprintf("%s/v1/bookings/%d/cancel", ts.URL, id), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("cancel: %d %v", res.StatusCode, body)
	}
	if body["refund_status"] != domain.RefundFull+domain.RefundCredited {
		t.Fatalf("refund_status %v", body["refund_status"])
	}

	res, body = do(t, http.MethodGet, ts.URL+"/v1/wallets/user/3", nil)
	w := body["wallet"].(map[string]any)
	if res.StatusCode != http.StatusOK || w["balance"] != "2200" {
		t.Fatalf("guest wallet: %d %v", res.StatusCode, body)
	}
	res, body = do(t, http.MethodGet, ts.URL+"/v1/wallets/admin", nil)
	if res.StatusCode != http.StatusOK || body["wallet"].(map[string]any)["balance"] != "0" {
		t.Fatalf("admin wallet: %v", body)
	}
}

func TestCreate_ErrorMapping(t *testing.T) {
	ts, _ := newTestServer(t)

	res, _ := do(t, http.MethodPost, ts.URL+"/v1/bookings", createBody(2))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("first: %d", res.StatusCode)
	}
	cases := []struct {
		name string
		body any
		want int
	}{
		{"sold out", createBody(5), http.StatusConflict},
		{"past check-in", createBody(-2), http.StatusBadRequest},
		{"bad date", map[string]any{"hotel_id": 1, "check_in": "15/10/2026", "check_out": "2026-10-20"}, http.StatusBadRequest},
		{"unknown hotel", map[string]any{"hotel_id": 42, "check_in": "2026-11-01", "check_out": "2026-11-03"}, http.StatusNotFound},
		{"unknown field", map[string]any{"hotel_id": 1, "status": "CONFIRMED"}, http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, body := do(t, http.MethodPost, ts.URL+"/v1/bookings", c.body)
			if res.StatusCode != c.want {
				t.Fatalf("status %d want %d: %v", res.StatusCode, c.want, body)
			}
			if res.Header.Get("Content-Type") != "application/problem+json" || body["detail"] == nil {
				t.Fatalf("problem body %v", body)
			}
		})
	}
}

func TestGetBooking_ETag(t *testing.T) {
	ts, _ := newTestServer(t)
	_, body := do(t, http.MethodPost, ts.URL+"/v1/bookings", createBody(3))
	b := body["booking"].(map[string]any)
	url := fmt.Sprintf("%s/v1/bookings/%d", ts.URL, int64(b["id"].(float64)))

	res, _ := do(t, http.MethodGet, url, nil)
	etag := res.Header.Get("ETag")
	if res.StatusCode != http.StatusOK || etag == "" {
		t.Fatalf("get: %d etag=%q", res.StatusCode, etag)
	}

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("If-None-Match", etag)
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res2.Body.Close()
	if res2.StatusCode != http.StatusNotModified {
		t.Fatalf("conditional get: %d", res2.StatusCode)
	}

	res, _ = do(t, http.MethodGet, ts.URL+"/v1/bookings/reference/"+b["booking_reference"].(string), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("by reference: %d", res.StatusCode)
	}
	res, _ = do(t, http.MethodGet, ts.URL+"/v1/bookings/abc", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id: %d", res.StatusCode)
	}
	res, _ = do(t, http.MethodGet, ts.URL+"/v1/bookings/999", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing: %d", res.StatusCode)
	}
}

func TestListUpdateDeleteAndStats(t *testing.T) {
	ts, _ := newTestServer(t)
	_, body := do(t, http.MethodPost, ts.URL+"/v1/bookings", createBody(3))
	id := int64(body["booking"].(map[string]any)["id"].(float64))

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/bookings?user_id=3&status=pending", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var list []domain.Booking
	_ = json.NewDecoder(res.Body).Decode(&list)
	res.Body.Close()
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("list %+v", list)
	}

	res, _ = do(t, http.MethodGet, ts.URL+"/v1/bookings?status=archived", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad status filter: %d", res.StatusCode)
	}

	res, body = do(t, http.MethodPut, fmt.Sprintf("%s/v1/bookings/%d", ts.URL, id), map[string]any{"guest_phone": "+91 99"})
	if res.StatusCode != http.StatusOK || body["booking"].(map[string]any)["guest_phone"] != "+91 99" {
		t.Fatalf("update: %d %v", res.StatusCode, body)
	}

	res, body = do(t, http.MethodGet, ts.URL+"/v1/bookings/stats", nil)
	if res.StatusCode != http.StatusOK || body["pending"] != float64(1) {
		t.Fatalf("stats: %v", body)
	}

	res, _ = do(t, http.MethodDelete, fmt.Sprintf("%s/v1/bookings/%d", ts.URL, id), nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d", res.StatusCode)
	}
	res, _ = do(t, http.MethodGet, fmt.Sprintf("%s/v1/bookings/%d", ts.URL, id), nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("after delete: %d", res.StatusCode)
	}
}

func TestAvailability(t *testing.T) {
	ts, _ := newTestServer(t)
	res, body := do(t, http.MethodGet, ts.URL+"/v1/bookings/availability?hotel_id=1&check_in=2026-11-01&check_out=2026-11-03", nil)
	if res.StatusCode != http.StatusOK || body["available"] != true {
		t.Fatalf("availability: %d %v", res.StatusCode, body)
	}
	res, _ = do(t, http.MethodGet, ts.URL+"/v1/bookings/availability?check_in=2026-11-01&check_out=2026-11-03", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing hotel: %d", res.StatusCode)
	}
}

func TestUnknownRouteIsProblem(t *testing.T) {
	ts, _ := newTestServer(t)
	res, body := do(t, http.MethodGet, ts.URL+"/v1/nope", nil)
	if res.StatusCode != http.StatusNotFound || body["success"] != false {
		t.Fatalf("%d %v", res.StatusCode, body)
	}
}
