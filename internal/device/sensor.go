package device

import (
	"sync"

	"github.com/nerrad567/boardlink/internal/payload"
)

// TemperatureSensor models a board-attached temperature sensor.
//
// The sensor is board-scoped: it carries no pin name, and every reading
// the board streams reaches every sensor registered against it. Call
// Monitor after registration to ask the board to start streaming.
type TemperatureSensor struct {
	mu          sync.Mutex
	temperature float64
	registry    *Registry
	board       Board

	callbackMu           sync.RWMutex
	onTemperatureChanged func(reading float64)
	onMessageReceived    func(topic, message string)
	onMessageSent        func(topics []string, message string)
	onConnectionLost     func(err error)
}

// NewTemperatureSensor creates a temperature sensor.
func NewTemperatureSensor() *TemperatureSensor {
	return &TemperatureSensor{}
}

// Name returns "". Temperature readings are board-scoped, so the sensor
// has no per-device identity on the wire.
func (s *TemperatureSensor) Name() string {
	return ""
}

// Kind returns the peripheral class for wire payloads.
func (s *TemperatureSensor) Kind() payload.PeripheralKind {
	return payload.KindTemperatureSensor
}

func (s *TemperatureSensor) bind(r *Registry, b Board) {
	s.mu.Lock()
	s.registry = r
	s.board = b
	s.mu.Unlock()
}

func (s *TemperatureSensor) binding() (*Registry, Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry, s.board
}

// Temperature returns the last reading received from the board.
func (s *TemperatureSensor) Temperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.temperature
}

// Monitor asks the board to start streaming temperature readings and
// subscribes to the stream they arrive on. The sensor must be
// registered first.
func (s *TemperatureSensor) Monitor() error {
	reg, b := s.binding()
	if reg == nil {
		return ErrNotRegistered
	}

	if err := reg.publishEvent(b, payload.NewTemperatureMonitor(b.Platform())); err != nil {
		return err
	}
	return reg.relay.Subscribe(b.CommandsTopic())
}

// SetOnTemperatureChanged registers a callback fired on every reading
// the board streams, with the new reading.
func (s *TemperatureSensor) SetOnTemperatureChanged(callback func(reading float64)) {
	s.callbackMu.Lock()
	s.onTemperatureChanged = callback
	s.callbackMu.Unlock()
}

// SetOnMessageReceived registers a callback fired for every inbound
// broker message, regardless of topic or routing outcome.
func (s *TemperatureSensor) SetOnMessageReceived(callback func(topic, message string)) {
	s.callbackMu.Lock()
	s.onMessageReceived = callback
	s.callbackMu.Unlock()
}

// SetOnMessageSent registers a callback fired when the relay confirms a
// delivery.
func (s *TemperatureSensor) SetOnMessageSent(callback func(topics []string, message string)) {
	s.callbackMu.Lock()
	s.onMessageSent = callback
	s.callbackMu.Unlock()
}

// SetOnConnectionLost registers a callback fired when the broker
// connection drops.
func (s *TemperatureSensor) SetOnConnectionLost(callback func(err error)) {
	s.callbackMu.Lock()
	s.onConnectionLost = callback
	s.callbackMu.Unlock()
}

// applyReading stores an inbound reading and fires the temperature
// callback. Every reading fires, changed or not.
func (s *TemperatureSensor) applyReading(reading float64) {
	s.mu.Lock()
	s.temperature = reading
	s.mu.Unlock()

	s.callbackMu.RLock()
	callback := s.onTemperatureChanged
	s.callbackMu.RUnlock()

	if callback != nil {
		callback(reading)
	}
}

func (s *TemperatureSensor) notifyMessageReceived(topic, message string) {
	s.callbackMu.RLock()
	callback := s.onMessageReceived
	s.callbackMu.RUnlock()

	if callback != nil {
		callback(topic, message)
	}
}

func (s *TemperatureSensor) notifyMessageSent(topics []string, message string) {
	s.callbackMu.RLock()
	callback := s.onMessageSent
	s.callbackMu.RUnlock()

	if callback != nil {
		callback(topics, message)
	}
}

func (s *TemperatureSensor) notifyConnectionLost(err error) {
	s.callbackMu.RLock()
	callback := s.onConnectionLost
	s.callbackMu.RUnlock()

	if callback != nil {
		callback(err)
	}
}

// status returns the sensor's registry snapshot.
func (s *TemperatureSensor) status() DeviceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	boardID := ""
	if s.board != nil {
		boardID = s.board.Identifier()
	}

	return DeviceStatus{
		Kind:  payload.KindTemperatureSensor,
		Board: boardID,
		State: State{"temperature": s.temperature},
	}
}
