package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"staylio/internal/app"
	"staylio/internal/domain"
)

type countingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	fail bool
}

func (c *countingNotifier) Notify(_ context.Context, n domain.Notification) error {
	if c.fail {
		return errors.New("smtp relay down")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

type blockingNotifier struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingNotifier) Notify(ctx context.Context, _ domain.Notification) error {
	b.calls.Add(1)
	<-b.release
	return nil
}

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	n := &countingNotifier{}
	d := app.NewDispatcher(n, 3, 16, 0)
	for i := 0; i < 10; i++ {
		d.Publish(domain.Notification{Kind: domain.NotifyBookingConfirmation, To: "g@example.com"})
	}
	d.Publish(domain.Notification{Kind: domain.NotifyCancelledHost}) // no recipient, skipped
	d.Close()

	if len(n.sent) != 10 {
		t.Fatalf("sent=%d", len(n.sent))
	}
	d.Publish(domain.Notification{Kind: domain.NotifyCancelledGuest, To: "late@example.com"})
	if len(n.sent) != 10 {
		t.Fatal("publish after close delivered")
	}
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	n := &blockingNotifier{release: make(chan struct{})}
	d := app.NewDispatcher(n, 1, 1, 0)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			d.Publish(domain.Notification{Kind: domain.NotifyBookingConfirmation, To: "g@example.com"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	close(n.release)
	d.Close()
	if c := n.calls.Load(); c < 1 || c > 2 {
		t.Fatalf("delivered %d, expected the in-flight one plus at most one queued", c)
	}
}

func TestCreate_CommitsWhenNotifierFails(t *testing.T) {
	f := newFixture(t)
	d := app.NewDispatcher(&countingNotifier{fail: true}, 1, 8, 0)
	svc := app.NewBookingService(f.store, f.store, d, func() time.Time { return today })

	req := request(4)
	req.Payment = online("rp_55")
	b, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	d.Close()

	cur, err := svc.Get(context.Background(), b.ID)
	if err != nil || cur.Status != domain.StatusCancelled {
		t.Fatalf("transition not committed: %v %+v", err, cur)
	}
	if n := len(f.ledgerOf(domain.TxUserRefund)); n != 1 {
		t.Fatalf("refunds=%d", n)
	}
}

func TestLogNotifier(t *testing.T) {
	if err := (app.LogNotifier{}).Notify(context.Background(), domain.Notification{To: "x@example.com"}); err != nil {
		t.Fatal(err)
	}
}
