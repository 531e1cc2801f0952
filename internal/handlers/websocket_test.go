package handlers

import (
	"testing"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rush-miniapp-backend/internal/services"
)

func newTestWSHandler(buffer int) *WebSocketHandler {
	log := zap.NewNop()
	return &WebSocketHandler{
		log: log,
		hub: &webSocketHub{
			clients: make(map[int64]*websocket.Conn),
			deliver: make(chan *wsDelivery, buffer),
			log:     log,
		},
	}
}

// Reader goroutines must never write the connection themselves; replies go
// through the hub, the connection's single writer. The client here carries no
// live connection, so a direct write would panic instead of queueing.
func TestReaderRepliesGoThroughHub(t *testing.T) {
	h := newTestWSHandler(4)
	client := &wsClient{PlayerID: 7}

	h.handleMessage(client, &wsMessage{Type: "PING"})

	select {
	case d := <-h.hub.deliver:
		if d.PlayerID != 7 {
			t.Errorf("reply queued for player %d, want 7", d.PlayerID)
		}
		if d.Msg.Type != "PONG" {
			t.Errorf("reply type %s, want PONG", d.Msg.Type)
		}
	default:
		t.Fatal("PING reply was not queued for the hub")
	}
}

func TestPublishQueuesAndDropsWhenFull(t *testing.T) {
	h := newTestWSHandler(1)

	h.Publish(3, services.RoundEvent{Type: services.EventRoundTick, PlayerID: 3})
	// The buffer is full now; a second publish must drop instead of blocking
	// the round tick.
	h.Publish(3, services.RoundEvent{Type: services.EventSafeZone, PlayerID: 3})

	d := <-h.hub.deliver
	if d.Msg.Type != services.EventRoundTick {
		t.Errorf("first queued message type %s, want %s", d.Msg.Type, services.EventRoundTick)
	}

	select {
	case d := <-h.hub.deliver:
		t.Errorf("overflow message should have been dropped, got %s", d.Msg.Type)
	default:
	}
}
