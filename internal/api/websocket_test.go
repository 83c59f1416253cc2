package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/boardlink/internal/device"
	"github.com/nerrad567/boardlink/internal/payload"
)

// newHubClient registers a bare client on the hub, subscribed to the
// given channels. No connection is attached; frames are read straight
// off the send channel.
func newHubClient(hub *Hub, channels ...string) *WSClient {
	client := &WSClient{
		id:            fmt.Sprintf("test-client-%d", hub.ClientCount()),
		hub:           hub,
		send:          make(chan []byte, 16),
		subscriptions: make(map[string]struct{}),
	}
	for _, ch := range channels {
		client.subscriptions[ch] = struct{}{}
	}
	hub.Register(client)
	return client
}

// receiveFrame reads one frame from the client's send channel.
func receiveFrame(t *testing.T, client *WSClient) WSMessage {
	t.Helper()

	select {
	case data := <-client.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no frame received within 1s")
		return WSMessage{}
	}
}

// assertNoFrame verifies the client's send channel stays empty.
func assertNoFrame(t *testing.T, client *WSClient) {
	t.Helper()

	select {
	case data := <-client.send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

// =============================================================================
// Hub Tests
// =============================================================================

func TestHub_BroadcastToSubscribed(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelStateChanged)

	st.srv.hub.Broadcast(ChannelStateChanged, map[string]any{"name": "GPIO_34"})

	msg := receiveFrame(t, client)
	if msg.Type != WSTypeEvent {
		t.Errorf("type = %q, want %q", msg.Type, WSTypeEvent)
	}
	if msg.EventType != ChannelStateChanged {
		t.Errorf("event_type = %q, want %q", msg.EventType, ChannelStateChanged)
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelTemperature)

	st.srv.hub.Broadcast(ChannelStateChanged, map[string]any{"name": "GPIO_34"})

	assertNoFrame(t, client)
}

func TestHub_ClientCount(t *testing.T) {
	st := testServer(t)
	hub := st.srv.hub

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	a := newHubClient(hub)
	b := newHubClient(hub)

	if hub.ClientCount() != 2 {
		t.Errorf("ClientCount() = %d, want 2", hub.ClientCount())
	}

	hub.Unregister(a)
	hub.Unregister(b)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() after unregister = %d, want 0", hub.ClientCount())
	}
}

func TestHub_UnregisterTwice(t *testing.T) {
	st := testServer(t)
	hub := st.srv.hub

	client := newHubClient(hub)
	hub.Unregister(client)
	// A second unregister must not panic on the closed send channel.
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

// =============================================================================
// Event Bridge Tests
// =============================================================================

func TestBridge_PinState(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelStateChanged)

	message, err := payload.Encode(payload.NewPinEvent("GPIO_34", true, payload.DirectionOut, "RaspberryPi 3", "LED"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	st.srv.MessageReceived(st.board.CommandsTopic(), message)

	msg := receiveFrame(t, client)
	if msg.EventType != ChannelStateChanged {
		t.Fatalf("event_type = %q, want %q", msg.EventType, ChannelStateChanged)
	}

	body := msg.Payload.(map[string]any)
	if body["name"] != "GPIO_34" {
		t.Errorf("name = %v, want GPIO_34", body["name"])
	}
	if body["source"] != device.StateHistorySourceMQTT {
		t.Errorf("source = %v, want %q", body["source"], device.StateHistorySourceMQTT)
	}

	state := body["state"].(map[string]any)
	if state["on"] != true {
		t.Errorf("state.on = %v, want true", state["on"])
	}
}

func TestBridge_PWMStateUsesEnabledKey(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelStateChanged)

	message, err := payload.Encode(payload.NewPwmState("PWM_1", true, "RaspberryPi 3"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	st.srv.MessageReceived(st.board.CommandsTopic(), message)

	msg := receiveFrame(t, client)
	body := msg.Payload.(map[string]any)
	state := body["state"].(map[string]any)

	if _, ok := state["on"]; ok {
		t.Error("PWM state change should not carry an \"on\" key")
	}
	if state["enabled"] != true {
		t.Errorf("state.enabled = %v, want true", state["enabled"])
	}
}

func TestBridge_DutyCycle(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelStateChanged)

	message, err := payload.Encode(payload.NewPwmDutyCycle("PWM_1", 62.5, "RaspberryPi 3"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	st.srv.MessageReceived(st.board.CommandsTopic(), message)

	msg := receiveFrame(t, client)
	body := msg.Payload.(map[string]any)
	state := body["state"].(map[string]any)
	if state["duty_cycle"].(float64) != 62.5 {
		t.Errorf("state.duty_cycle = %v, want 62.5", state["duty_cycle"])
	}
}

func TestBridge_Temperature(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelTemperature)

	message, err := payload.Encode(payload.NewTemperatureReading("RaspberryPi 3", 23.75))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	st.srv.MessageReceived(st.board.CommandsTopic(), message)

	msg := receiveFrame(t, client)
	if msg.EventType != ChannelTemperature {
		t.Fatalf("event_type = %q, want %q", msg.EventType, ChannelTemperature)
	}

	body := msg.Payload.(map[string]any)
	if body["temperature"].(float64) != 23.75 {
		t.Errorf("temperature = %v, want 23.75", body["temperature"])
	}
	if body["platform"] != "RaspberryPi 3" {
		t.Errorf("platform = %v, want RaspberryPi 3", body["platform"])
	}
}

func TestBridge_UndecodableMessage(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelStateChanged, ChannelTemperature)

	// Internal lifecycle tokens are not payloads and never produce
	// structured events.
	st.srv.MessageReceived("boardlink/internal/PiOne", "SHUTDOWN")

	assertNoFrame(t, client)
}

func TestBridge_RawMessageReceived(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelMessageReceived)

	// The raw channel mirrors everything, decodable or not.
	st.srv.MessageReceived("boardlink/internal/PiOne", "SHUTDOWN")

	msg := receiveFrame(t, client)
	if msg.EventType != ChannelMessageReceived {
		t.Fatalf("event_type = %q, want %q", msg.EventType, ChannelMessageReceived)
	}

	body := msg.Payload.(map[string]any)
	if body["topic"] != "boardlink/internal/PiOne" {
		t.Errorf("topic = %v, want boardlink/internal/PiOne", body["topic"])
	}
	if body["message"] != "SHUTDOWN" {
		t.Errorf("message = %v, want SHUTDOWN", body["message"])
	}
}

func TestBridge_MessageSent(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelMessageSent)

	st.srv.MessageSent([]string{"boardlink/boards/PiOne/events"}, `{"action":"EVENT"}`)

	msg := receiveFrame(t, client)
	if msg.EventType != ChannelMessageSent {
		t.Fatalf("event_type = %q, want %q", msg.EventType, ChannelMessageSent)
	}

	body := msg.Payload.(map[string]any)
	topics := body["topics"].([]any)
	if len(topics) != 1 || topics[0] != "boardlink/boards/PiOne/events" {
		t.Errorf("topics = %v", topics)
	}
}

func TestBridge_ConnectionLost(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelConnectionLost)

	st.srv.ConnectionLost(errors.New("broker unreachable"))

	msg := receiveFrame(t, client)
	if msg.EventType != ChannelConnectionLost {
		t.Fatalf("event_type = %q, want %q", msg.EventType, ChannelConnectionLost)
	}

	body := msg.Payload.(map[string]any)
	if body["error"] != "broker unreachable" {
		t.Errorf("error = %v, want broker unreachable", body["error"])
	}
}

func TestBridge_ConnectionLostNil(t *testing.T) {
	st := testServer(t)
	client := newHubClient(st.srv.hub, ChannelConnectionLost)

	st.srv.ConnectionLost(nil)

	assertNoFrame(t, client)
}

// =============================================================================
// Full WebSocket Connection Tests
// =============================================================================

func TestWebSocket_FullConnection(t *testing.T) {
	st := testServer(t)

	port := 19081
	st.srv.cfg.Port = port

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer st.srv.Close()

	time.Sleep(settle)

	wsURL := fmt.Sprintf("ws://127.0.0.1:%d/api/v1/ws", port)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}

	// ─── Subscribe ───

	sub := WSMessage{
		Type: WSTypeSubscribe,
		ID:   "sub-1",
		Payload: WSSubscribePayload{
			Channels: []string{ChannelStateChanged},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	var subResp WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&subResp); err != nil {
		t.Fatalf("read subscribe response: %v", err)
	}
	if subResp.Type != WSTypeResponse {
		t.Errorf("response type = %q, want %q", subResp.Type, WSTypeResponse)
	}
	if subResp.ID != "sub-1" {
		t.Errorf("response id = %q, want sub-1", subResp.ID)
	}

	if st.srv.hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", st.srv.hub.ClientCount())
	}

	// ─── Broadcast Reaches The Wire ───

	st.srv.hub.Broadcast(ChannelStateChanged, map[string]any{"name": "GPIO_34"})

	var event WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != WSTypeEvent {
		t.Errorf("event type = %q, want %q", event.Type, WSTypeEvent)
	}
	if event.EventType != ChannelStateChanged {
		t.Errorf("event_type = %q, want %q", event.EventType, ChannelStateChanged)
	}

	// ─── Ping ───

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "ping-1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	var pong WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != WSTypePong {
		t.Errorf("pong type = %q, want %q", pong.Type, WSTypePong)
	}
	if pong.ID != "ping-1" {
		t.Errorf("pong id = %q, want ping-1", pong.ID)
	}
}

func TestWebSocket_InvalidMessages(t *testing.T) {
	st := testServer(t)

	port := 19082
	st.srv.cfg.Port = port

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer st.srv.Close()

	time.Sleep(settle)

	wsURL := fmt.Sprintf("ws://127.0.0.1:%d/api/v1/ws", port)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}

	// ─── Malformed JSON ───

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write malformed frame: %v", err)
	}

	var errResp WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&errResp); err != nil {
		t.Fatalf("read error response: %v", err)
	}
	if errResp.Type != WSTypeError {
		t.Errorf("response type = %q, want %q", errResp.Type, WSTypeError)
	}

	// ─── Unknown Message Type ───

	if err := conn.WriteJSON(WSMessage{Type: "teleport", ID: "tp-1"}); err != nil {
		t.Fatalf("write unknown type: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&errResp); err != nil {
		t.Fatalf("read error response: %v", err)
	}
	if errResp.Type != WSTypeError {
		t.Errorf("response type = %q, want %q", errResp.Type, WSTypeError)
	}
	if errResp.ID != "tp-1" {
		t.Errorf("response id = %q, want tp-1", errResp.ID)
	}
}
