package bus

import (
	"testing"
	"time"

	"kanad/internal/domain"
)

func update(id string) domain.Update {
	return domain.Update{
		Workspace: domain.WorkspaceRnd,
		Message:   domain.Message{ID: id, Role: domain.RoleModel, Content: "c"},
	}
}

func recv(t *testing.T, ch <-chan domain.Update) domain.Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}
	return domain.Update{}
}

func TestFanOut(t *testing.T) {
	b := New(10, nil)
	defer b.Close()

	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	b.Publish(update("m1"))

	if got := recv(t, ch1); got.Message.ID != "m1" {
		t.Fatalf("subscriber 1 got %q", got.Message.ID)
	}
	if got := recv(t, ch2); got.Message.ID != "m1" {
		t.Fatalf("subscriber 2 got %q", got.Message.ID)
	}
}

func TestSlowSubscriberDropsNotBlocks(t *testing.T) {
	b := New(1, nil)
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	// Fill the buffer, then publish more. Publish must return immediately.
	b.Publish(update("m1"))
	done := make(chan struct{})
	go func() {
		b.Publish(update("m2"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	if got := recv(t, ch); got.Message.ID != "m1" {
		t.Fatalf("expected the buffered update, got %q", got.Message.ID)
	}
	select {
	case u := <-ch:
		t.Fatalf("dropped update was delivered: %q", u.Message.ID)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := New(10, nil)
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after cancel must not panic or deliver.
	b.Publish(update("m1"))

	// Cancel is idempotent.
	cancel()
}

func TestCloseShutsDownSubscribers(t *testing.T) {
	b := New(10, nil)
	ch, _ := b.Subscribe()

	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("channel not closed on bus close")
	}

	// Post-close operations are safe no-ops.
	b.Publish(update("m1"))
	late, cancel := b.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscription after close should yield a closed channel")
	}
	cancel()
	b.Close()
}
