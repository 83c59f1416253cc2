package api

import (
	"github.com/nerrad567/boardlink/internal/device"
	"github.com/nerrad567/boardlink/internal/payload"
)

// WebSocket broadcast channels. Clients subscribe to these by name.
const (
	// ChannelStateChanged carries pin and channel state changes, both
	// inbound from the broker and applied through the API.
	ChannelStateChanged = "device.state_changed"

	// ChannelTemperature carries temperature readings from the broker.
	ChannelTemperature = "sensor.temperature"

	// ChannelMessageReceived mirrors raw inbound broker traffic,
	// including messages that do not decode as payloads.
	ChannelMessageReceived = "relay.message_received"

	// ChannelMessageSent carries delivery confirmations for published
	// payloads.
	ChannelMessageSent = "relay.message_sent"

	// ChannelConnectionLost reports dropped broker connections.
	ChannelConnectionLost = "relay.connection_lost"
)

// The server is a relay listener: registering it with the relay service
// feeds broker traffic into the WebSocket hub and the telemetry store.

// MessageReceived forwards inbound broker traffic to the event stream.
// Every message lands on the raw channel; messages that decode as
// payloads additionally produce structured state and telemetry events.
// The internal shutdown token is not a payload, so it appears on the raw
// channel only.
func (s *Server) MessageReceived(topic, message string) {
	if s.hub != nil {
		s.hub.Broadcast(ChannelMessageReceived, map[string]any{
			"topic":   topic,
			"message": message,
		})
	}

	p, err := payload.Decode(message)
	if err != nil {
		s.logger.Debug("event stream skipping undecodable message", "topic", topic)
		return
	}

	switch p.Property {
	case payload.PropertyPinState:
		high := p.Value == payload.ValueHigh
		key := "on"
		if p.PeripheralKind == payload.KindPWM {
			key = "enabled"
		}
		s.broadcastStateChange(p.Name, p.PeripheralKind, device.State{key: high}, device.StateHistorySourceMQTT)
		if s.influx != nil {
			s.influx.WritePinEvent(s.boardIdentifier(), p.Name, string(p.Direction), high)
		}

	case payload.PropertyDutyCycle:
		s.broadcastStateChange(p.Name, p.PeripheralKind, device.State{"duty_cycle": p.DoubleValue}, device.StateHistorySourceMQTT)

	case payload.PropertyFrequency:
		s.broadcastStateChange(p.Name, p.PeripheralKind, device.State{"frequency": p.DoubleValue}, device.StateHistorySourceMQTT)

	case payload.PropertyTemperature:
		if s.hub != nil {
			s.hub.Broadcast(ChannelTemperature, map[string]any{
				"temperature": p.DoubleValue,
				"platform":    p.Platform,
				"source":      device.StateHistorySourceMQTT,
			})
		}
		if s.influx != nil {
			s.influx.WriteTemperature(s.boardIdentifier(), p.DoubleValue)
		}
	}
}

// MessageSent forwards delivery confirmations to the event stream.
func (s *Server) MessageSent(topics []string, message string) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(ChannelMessageSent, map[string]any{
		"topics":  topics,
		"message": message,
	})
}

// ConnectionLost reports a dropped broker connection on the event stream
// and records it in the telemetry store.
func (s *Server) ConnectionLost(err error) {
	if err == nil {
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(ChannelConnectionLost, map[string]any{"error": err.Error()})
	}
	if s.influx != nil {
		s.influx.WriteConnectionEvent(s.boardIdentifier(), false)
	}
}

// broadcastStateChange fans a device state change out to subscribed
// WebSocket clients.
func (s *Server) broadcastStateChange(name string, kind payload.PeripheralKind, state device.State, source string) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(ChannelStateChanged, map[string]any{
		"name":   name,
		"kind":   kind,
		"state":  state,
		"source": source,
	})
}
