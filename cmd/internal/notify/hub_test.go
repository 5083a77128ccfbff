package notify

import (
	"log/slog"
	"testing"
	"time"
)

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	defer hub.Close()

	a := NewClient("c1", "alice", 4)
	b := NewClient("c2", "", 4)
	hub.Register(a)
	hub.Register(b)

	ev := NewEvent(EventArtistCreated, "Artist created: Miles Davis", map[string]string{"id": "x"}, "alice")
	hub.Broadcast(ev)

	for _, c := range []*Client{a, b} {
		select {
		case got := <-c.Send:
			if got.Type != EventArtistCreated {
				t.Fatalf("client %s: type = %q, want %q", c.ID, got.Type, EventArtistCreated)
			}
			if got.At.IsZero() {
				t.Fatalf("client %s: event must be timestamped", c.ID)
			}
		default:
			t.Fatalf("client %s received nothing", c.ID)
		}
	}
}

func TestHub_SlowConsumerIsDropped(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	defer hub.Close()

	slow := NewClient("slow", "", 1)
	fast := NewClient("fast", "", 8)
	hub.Register(slow)
	hub.Register(fast)

	// Second event overflows slow's queue of 1; the broadcaster must not
	// block and slow must be disconnected.
	hub.Broadcast(NewEvent(EventAlbumCreated, "one", nil, ""))
	hub.Broadcast(NewEvent(EventAlbumUpdated, "two", nil, ""))

	if hub.Len() != 1 {
		t.Fatalf("hub has %d clients, want 1 after dropping the slow one", hub.Len())
	}
	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatalf("dropped client must be closed")
	}
	if len(fast.Send) != 2 {
		t.Fatalf("fast client queued %d events, want 2", len(fast.Send))
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	defer hub.Close()

	c := NewClient("c1", "", 4)
	hub.Register(c)
	hub.Unregister("c1")
	hub.Unregister("c1") // idempotent
	if hub.Len() != 0 {
		t.Fatalf("hub has %d clients, want 0", hub.Len())
	}

	hub.Broadcast(NewEvent(EventArtistDeleted, "gone", nil, ""))
	if len(c.Send) != 0 {
		t.Fatalf("unregistered client must not receive events")
	}
}

func TestHub_CloseRejectsNewClients(t *testing.T) {
	hub := NewHub(slog.New(slog.DiscardHandler))
	hub.Close()

	c := NewClient("late", "", 4)
	hub.Register(c)
	if hub.Len() != 0 {
		t.Fatalf("closed hub must not accept clients")
	}
	select {
	case <-c.Done():
	default:
		t.Fatalf("client registered on a closed hub must be closed")
	}
}
