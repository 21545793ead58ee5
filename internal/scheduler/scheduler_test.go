package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "staylio/internal/adapters/redis"
	"staylio/internal/app"
	"staylio/internal/scheduler"
)

type fakeSweeper struct{ runs int }

func (f *fakeSweeper) RunDailySweep(ctx context.Context) ([]app.SweepReport, error) {
	f.runs++
	return []app.SweepReport{{Sweep: "auto_cancel"}, {Sweep: "auto_complete"}}, nil
}

type brokenLocker struct{}

func (brokenLocker) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestTick_OncePerDayAcrossReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	lease := redisad.New(mr.Addr(), "", 0)
	day := time.Date(2026, 10, 15, 0, 0, 5, 0, time.UTC)

	a, b := &fakeSweeper{}, &fakeSweeper{}
	sa, err := scheduler.New("0 0 * * *", time.UTC, a, lease, 6*time.Hour, fixedClock(day))
	if err != nil {
		t.Fatal(err)
	}
	sb, _ := scheduler.New("0 0 * * *", time.UTC, b, lease, 6*time.Hour, fixedClock(day))

	ranA := sa.Tick(context.Background())
	ranB := sb.Tick(context.Background())
	if !ranA || ranB {
		t.Fatalf("expected only the first replica to run: a=%v b=%v", ranA, ranB)
	}
	if a.runs != 1 || b.runs != 0 {
		t.Fatalf("runs a=%d b=%d", a.runs, b.runs)
	}
	if !mr.Exists("sweep:2026-10-15") {
		t.Fatal("lease key missing")
	}

	next, _ := scheduler.New("0 0 * * *", time.UTC, b, lease, 6*time.Hour, fixedClock(day.AddDate(0, 0, 1)))
	if !next.Tick(context.Background()) || b.runs != 1 {
		t.Fatal("next day should run")
	}
}

func TestTick_LeaseErrorSkips(t *testing.T) {
	f := &fakeSweeper{}
	s, _ := scheduler.New("@daily", time.UTC, f, brokenLocker{}, time.Hour, nil)
	if s.Tick(context.Background()) || f.runs != 0 {
		t.Fatal("sweep must not run without a lease")
	}
}

func TestTick_NoLockerAlwaysRuns(t *testing.T) {
	f := &fakeSweeper{}
	s, _ := scheduler.New("@daily", time.UTC, f, nil, time.Hour, nil)
	s.Tick(context.Background())
	s.Tick(context.Background())
	if f.runs != 2 {
		t.Fatalf("runs=%d", f.runs)
	}
}

func TestLeaseKey_UsesBusinessDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on the 14th is already the 15th in IST
	utc := time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC)
	if got := scheduler.LeaseKey(utc.In(ist)); got != "sweep:2026-10-15" {
		t.Fatalf("got %s", got)
	}
}

func TestNew_BadSpec(t *testing.T) {
	if _, err := scheduler.New("not a cron", time.UTC, &fakeSweeper{}, nil, time.Hour, nil); err == nil {
		t.Fatal("expected parse error")
	}
}
