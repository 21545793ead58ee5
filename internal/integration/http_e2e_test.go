//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	server "staylio/internal/adapters/http_server"
	"staylio/internal/adapters/observability"
	redisad "staylio/internal/adapters/redis"
	"staylio/internal/app"
	mysqlrepo "staylio/internal/storage/mysql"
	"staylio/internal/storage/mysql/mysqltest"
)

func post(t *testing.T, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	res, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer res.Body.Close()
	if out != nil {
		_ = json.NewDecoder(res.Body).Decode(out)
	}
	return res.StatusCode
}

func TestHTTP_EndToEnd_BookAndCancel(t *testing.T) {
	db := mysqltest.Start(t)
	mysqltest.Seed(t, db,
		`INSERT INTO hosts (id, owner_name, email) VALUES (7, 'Meera', 'host@example.com')`,
		`INSERT INTO users (id, name, email, email_verified) VALUES (3, 'Arjun', 'arjun@example.com', TRUE)`,
		`INSERT INTO hotels (id, name, price_per_night, host_id) VALUES (1, 'Sea Breeze', 1000.00, 7)`,
		`INSERT INTO rooms (hotel_id, room_type, room_count) VALUES (1, 'DELUXE', 3)`,
	)
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)

	now := time.Now().UTC()
	repo := mysqlrepo.New(db)
	dispatcher := app.NewDispatcher(app.LogNotifier{}, 1, 16, 0)
	t.Cleanup(dispatcher.Close)
	bookings := app.NewBookingService(repo, app.NewCachedHotels(repo, cache, time.Minute), dispatcher, func() time.Time { return now })

	srv := server.New(5 * time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(observability.InitRegistry()))
	srv.MountHandlers(&server.Handlers{B: bookings, Q: app.NewQueryService(repo, 10)})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	var created struct {
		Success bool `json:"success"`
		Booking struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"booking"`
		BookingReference string `json:"booking_reference"`
	}
	status := post(t, ts.URL+"/v1/bookings", map[string]any{
		"user_id":        3,
		"hotel_id":       1,
		"check_in":       now.AddDate(0, 0, 4).Format(time.DateOnly),
		"check_out":      now.AddDate(0, 0, 6).Format(time.DateOnly),
		"room_type":      "DELUXE",
		"payment_status": "SUCCESS",
		"payment_ref":    "rp_e2e",
	}, &created)
	if status != http.StatusCreated || !created.Success || created.Booking.Status != "CONFIRMED" {
		t.Fatalf("create: %d %+v", status, created)
	}
	if !mr.Exists("hotel:1") {
		t.Fatal("hotel lookup was not cached")
	}

	req, _ := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/v1/bookings/%d/cancel", ts.URL, created.Booking.ID), nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var cancelled struct {
		RefundStatus string `json:"refund_status"`
	}
	_ = json.NewDecoder(res.Body).Decode(&cancelled)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || cancelled.RefundStatus == "" {
		t.Fatalf("cancel: %d %+v", res.StatusCode, cancelled)
	}

	res, err = http.Get(ts.URL + "/v1/wallets/user/3")
	if err != nil {
		t.Fatal(err)
	}
	var wallet struct {
		Wallet struct {
			Balance string `json:"balance"`
		} `json:"wallet"`
		Transactions []struct {
			Type string `json:"transaction_type"`
		} `json:"transactions"`
	}
	_ = json.NewDecoder(res.Body).Decode(&wallet)
	res.Body.Close()
	if wallet.Wallet.Balance != "2200" || len(wallet.Transactions) != 2 {
		t.Fatalf("guest wallet %+v", wallet)
	}

	res, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %d", res.StatusCode)
	}
}
