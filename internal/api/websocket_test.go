package api

import (
	"encoding/json"
	"testing"

	"github.com/homedeck/homedeck-core/internal/infrastructure/config"
	"github.com/homedeck/homedeck-core/internal/infrastructure/logging"
)

func testClient(h *Hub) *WSClient {
	return &WSClient{
		hub:           h,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
}

func TestBroadcastRespectsSubscriptions(t *testing.T) {
	h := NewHub(config.WebSocketConfig{}, logging.Default())

	subscribed := testClient(h)
	subscribed.subscriptions[ChannelSignals] = struct{}{}
	other := testClient(h)

	h.Register(subscribed)
	h.Register(other)

	h.Broadcast(ChannelSignals, map[string]string{"key": "temp:Lounge"})

	select {
	case data := <-subscribed.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.Type != WSTypeEvent || msg.EventType != ChannelSignals {
			t.Errorf("msg = %+v", msg)
		}
	default:
		t.Fatal("subscribed client received nothing")
	}

	select {
	case <-other.send:
		t.Fatal("unsubscribed client received a broadcast")
	default:
	}
}

func TestUnregisterClosesSendOnce(t *testing.T) {
	h := NewHub(config.WebSocketConfig{}, logging.Default())
	client := testClient(h)

	h.Register(client)
	h.Unregister(client)
	// Second unregister must not double-close the channel.
	h.Unregister(client)

	if _, ok := <-client.send; ok {
		t.Error("send channel still open after unregister")
	}
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	h := NewHub(config.WebSocketConfig{}, logging.Default())

	slow := &WSClient{
		hub:           h,
		send:          make(chan []byte), // unbuffered, nobody reading
		subscriptions: map[string]struct{}{ChannelSignals: {}},
	}
	h.Register(slow)

	// Must return immediately, dropping the message.
	h.Broadcast(ChannelSignals, "payload")
}

func TestSubscribeMessageHandling(t *testing.T) {
	h := NewHub(config.WebSocketConfig{}, logging.Default())
	client := testClient(h)
	h.Register(client)

	raw, _ := json.Marshal(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{ChannelSignals, ChannelConnection}},
	})
	client.handleMessage(raw)

	if !client.isSubscribed(ChannelSignals) || !client.isSubscribed(ChannelConnection) {
		t.Error("subscribe did not record channels")
	}

	// The acknowledgement lands on the send channel.
	select {
	case data := <-client.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.Type != WSTypeResponse || msg.ID != "1" {
			t.Errorf("ack = %+v", msg)
		}
	default:
		t.Fatal("no acknowledgement sent")
	}
}
