package notify

import (
	"testing"
	"time"

	"shopora/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func receive(t *testing.T, sub *Subscriber) domain.Notification {
	t.Helper()
	select {
	case n := <-sub.C:
		return n
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for notification")
		return domain.Notification{}
	}
}

func TestPublishTargetedReachesOnlyRecipient(t *testing.T) {
	h := NewHub()
	alice := h.Subscribe("alice")
	bob := h.Subscribe("bob")
	defer h.Unsubscribe(alice)
	defer h.Unsubscribe(bob)

	h.Publish(domain.Notification{UserID: strPtr("alice"), Title: "Payment Successful"})

	got := receive(t, alice)
	assert.Equal(t, "Payment Successful", got.Title)

	select {
	case n := <-bob.C:
		t.Fatalf("bob should not receive targeted notification, got %+v", n)
	default:
	}
}

func TestPublishGlobalReachesEveryone(t *testing.T) {
	h := NewHub()
	alice := h.Subscribe("alice")
	bob := h.Subscribe("bob")
	defer h.Unsubscribe(alice)
	defer h.Unsubscribe(bob)

	h.Publish(domain.Notification{Title: "Maintenance tonight", Scope: domain.ScopeGlobal})

	assert.Equal(t, "Maintenance tonight", receive(t, alice).Title)
	assert.Equal(t, "Maintenance tonight", receive(t, bob).Title)
}

func TestPublishMultipleConnectionsSameUser(t *testing.T) {
	h := NewHub()
	first := h.Subscribe("alice")
	second := h.Subscribe("alice")
	defer h.Unsubscribe(first)
	defer h.Unsubscribe(second)

	h.Publish(domain.Notification{UserID: strPtr("alice"), Title: "hi"})

	require.Equal(t, "hi", receive(t, first).Title)
	require.Equal(t, "hi", receive(t, second).Title)
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("alice")
	defer h.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			h.Publish(domain.Notification{UserID: strPtr("alice"), Title: "burst"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full subscriber channel")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("alice")
	h.Unsubscribe(sub)

	_, open := <-sub.C
	assert.False(t, open)

	// Double unsubscribe must not panic.
	h.Unsubscribe(sub)
}
