package realtime

import (
	"strconv"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func testClient(id string, channelID int64) *Client {
	return &Client{ID: id, ChannelID: channelID, send: make(chan WSMessage, 4)}
}

func TestBroadcastDeliversToRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())
	watcher := testClient("a", 10)
	other := testClient("b", 20)
	hub.Register(watcher)
	hub.Register(other)

	hub.Broadcast(10, "roster", map[string]int{"n": 1})

	select {
	case msg := <-watcher.send:
		if msg.Event != "roster" {
			t.Fatalf("expected roster event, got %q", msg.Event)
		}
	default:
		t.Fatal("expected message delivered to the channel's room")
	}
	select {
	case <-other.send:
		t.Fatal("expected no delivery to another channel's room")
	default:
	}

	if hub.AudienceCount(10) != 1 {
		t.Fatalf("expected audience of one, got %d", hub.AudienceCount(10))
	}
	hub.Unregister(watcher)
	if hub.AudienceCount(10) != 0 {
		t.Fatal("expected empty room after unregister")
	}
}

// Registrations and broadcasts race in production; the broadcast must not
// iterate the live room map.
func TestBroadcastDuringRegistrationChurn(t *testing.T) {
	hub := NewHub(zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c := testClient(strconv.Itoa(i), 10)
			hub.Register(c)
			hub.Unregister(c)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.Broadcast(10, "roster", map[string]int{"n": i})
		}
	}()
	wg.Wait()
}
