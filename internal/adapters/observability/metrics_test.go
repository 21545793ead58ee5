package observability_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staylio/internal/adapters/observability"
	"staylio/internal/domain"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample per family so they show up in the exposition
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveTransition("cancel", "ok")
	observability.ObserveSettlement("USER_REFUND", "ok", decimal.RequireFromString("2200.00"))
	observability.ObserveSweep("auto_cancel", "ok", 40*time.Millisecond)
	observability.ObserveNotification("booking_confirmation", "dropped")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"staylio_http_requests_total",
		"staylio_booking_transitions_total",
		"staylio_settlements_total",
		"staylio_settlement_amount_total",
		"staylio_sweep_runs_total",
		"staylio_notifications_total",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestLabelErr(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{domain.NotFoundf("booking 9 not found"), "not_found"},
		{fmt.Errorf("cancel: %w", domain.InsufficientFundsf("short")), "insufficient_funds"},
		{domain.IllegalStatef("completed"), "illegal_state"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("connection reset"), "error"},
	}
	for _, c := range cases {
		if got := observability.LabelErr(c.err); got != c.want {
			t.Errorf("LabelErr(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}
