package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/seenimoa/fintel/internal/agent"
)

func runHub(t *testing.T) *WSHub {
	t.Helper()
	hub := NewWSHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func newTestClient(hub *WSHub) *WSClient {
	return &WSClient{hub: hub, send: make(chan WSMessage, 256)}
}

func TestWSHub_NewWSHub(t *testing.T) {
	hub := NewWSHub()
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount: got %d, want 0", hub.ClientCount())
	}
}

func TestWSHub_RegisterAndUnregister(t *testing.T) {
	hub := runHub(t)
	client := newTestClient(hub)

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 1 {
		t.Errorf("after register: ClientCount=%d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister: ClientCount=%d, want 0", hub.ClientCount())
	}

	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed after unregister")
	}
}

func TestWSHub_Broadcast(t *testing.T) {
	hub := runHub(t)

	client1 := newTestClient(hub)
	client2 := newTestClient(hub)
	hub.Register(client1)
	hub.Register(client2)
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(WSMessage{Type: "test", Data: "hello"})

	for i, c := range []*WSClient{client1, client2} {
		select {
		case got := <-c.send:
			if got.Type != "test" {
				t.Errorf("client%d got type=%q, want 'test'", i+1, got.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client%d did not receive message", i+1)
		}
	}
}

func TestWSHub_SlowClientDisconnected(t *testing.T) {
	hub := runHub(t)

	slow := &WSClient{hub: hub, send: make(chan WSMessage)} // unbuffered, never read
	hub.Register(slow)
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(WSMessage{Type: "test"})
	time.Sleep(20 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("slow client should be dropped, ClientCount=%d", hub.ClientCount())
	}
}

func TestWSHub_BroadcastDropsWhenBufferFull(t *testing.T) {
	// Hub not running: the broadcast buffer fills and further messages are dropped.
	hub := NewWSHub()

	done := make(chan bool)
	go func() {
		for i := 0; i < 300; i++ {
			hub.Broadcast(WSMessage{Type: "test"})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full buffer")
	}
}

func TestWSHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := runHub(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestClient(hub)
			hub.Register(c)
			hub.Unregister(c)
		}()
	}
	wg.Wait()
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount: got %d, want 0", hub.ClientCount())
	}
}

func TestWSHub_ShutdownClosesClients(t *testing.T) {
	hub := NewWSHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := newTestClient(hub)
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	cancel()
	<-stopped

	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed on shutdown")
	}

	// Calls after shutdown return instead of blocking.
	late := newTestClient(hub)
	hub.Register(late)
	hub.Unregister(late)
	if _, ok := <-late.send; ok {
		t.Error("late client should be closed immediately")
	}
}

func TestPublishEventBroadcasts(t *testing.T) {
	srv := testServer(t, newMockRunner(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Hub().Run(ctx)

	client := newTestClient(srv.Hub())
	srv.Hub().Register(client)
	time.Sleep(10 * time.Millisecond)

	srv.PublishEvent(agent.Event{RunID: "r1", Type: agent.EventRunCompleted})

	select {
	case msg := <-client.send:
		ev, ok := msg.Data.(agent.Event)
		if msg.Type != "run_completed" || !ok || ev.RunID != "r1" {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("event not delivered")
	}
}
