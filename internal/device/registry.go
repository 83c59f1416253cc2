package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/boardlink/internal/payload"
)

// historyWriteTimeout bounds fire-and-forget state history writes so a
// stalled database cannot back up the event dispatcher.
const historyWriteTimeout = 5 * time.Second

// TemperatureHistoryID keys temperature readings in the state history.
// Readings are board-scoped rather than per-sensor, so every sensor on
// a board shares one history stream.
const TemperatureHistoryID = "temperature"

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Relay is the broker-facing surface the registry publishes through.
// Satisfied by *relay.Service.
type Relay interface {
	Publish(topic, message string) error
	Subscribe(topic string) error
	Unsubscribe(topic string) error
}

// Board is the board-side surface a device binds to: identity for
// logging, the platform label stamped on outgoing payloads, and the
// topic pair the device talks over.
type Board interface {
	Identifier() string
	Platform() string
	EventsTopic() string
	CommandsTopic() string
}

// Device is a logical peripheral that can be registered with a board.
// Only types in this package implement it.
type Device interface {
	// Name returns the logical device identity. Board-scoped devices
	// such as temperature sensors return "".
	Name() string

	// Kind returns the peripheral class the device announces itself as.
	Kind() payload.PeripheralKind

	// bind attaches the device to the registry and board it will talk
	// through. Re-registration simply rebinds.
	bind(r *Registry, b Board)
}

// Registry binds devices to boards and mediates all device-to-broker
// traffic. Outbound, it encodes payloads and hands them to the relay;
// inbound, it decodes broker messages and routes them to the matching
// registered device.
//
// The Registry implements relay.Listener and is wired to the relay's
// fan-out, so routing runs on the relay's event dispatcher goroutine.
//
// All public methods are thread-safe.
type Registry struct {
	relay   Relay
	logger  Logger
	history StateHistoryRepository

	mu      sync.RWMutex
	gpios   map[string]*GPIO
	pwms    map[string]*PWM
	sensors []*TemperatureSensor
}

// NewRegistry creates a device registry publishing through the given relay.
func NewRegistry(relay Relay) (*Registry, error) {
	if relay == nil {
		return nil, fmt.Errorf("device: relay cannot be nil")
	}
	return &Registry{
		relay:  relay,
		logger: noopLogger{},
		gpios:  make(map[string]*GPIO),
		pwms:   make(map[string]*PWM),
	}, nil
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetHistory sets the repository that records device state changes.
// Without one, state changes are not journalled.
func (r *Registry) SetHistory(history StateHistoryRepository) {
	r.history = history
}

// Register binds a device to a board.
//
// Input pins immediately publish a registration payload announcing
// their presence and current level, so the board side seeds its view of
// the pin. Every registration subscribes to the board's command stream;
// with the relay's lazy-connect policy this opens the board's broker
// connection on first use. Registering an already registered device
// rebinds it.
//
// Parameters:
//   - dev: Device to register (GPIO, PWM, or TemperatureSensor)
//   - b: Board the device attaches to
//
// Returns:
//   - error: nil on success, otherwise the announce or subscribe failure
func (r *Registry) Register(dev Device, b Board) error {
	if dev == nil {
		return fmt.Errorf("device: device cannot be nil")
	}
	if b == nil {
		return fmt.Errorf("device: board cannot be nil")
	}

	dev.bind(r, b)

	r.mu.Lock()
	switch d := dev.(type) {
	case *GPIO:
		r.gpios[d.Name()] = d
	case *PWM:
		r.pwms[d.Name()] = d
	case *TemperatureSensor:
		if !r.hasSensor(d) {
			r.sensors = append(r.sensors, d)
		}
	}
	r.mu.Unlock()

	if g, ok := dev.(*GPIO); ok && g.Direction() == payload.DirectionIn {
		announce := payload.NewPinRegistration(g.Name(), g.PinState(), g.Direction(), b.Platform(), g.Label())
		if err := r.publishEvent(b, announce); err != nil {
			return err
		}
	}

	if err := r.relay.Subscribe(b.CommandsTopic()); err != nil {
		return err
	}

	r.logger.Info("device registered",
		"kind", dev.Kind(),
		"name", dev.Name(),
		"board", b.Identifier(),
	)
	return nil
}

// hasSensor reports whether the sensor is already registered. Caller
// must hold r.mu.
func (r *Registry) hasSensor(s *TemperatureSensor) bool {
	for _, registered := range r.sensors {
		if registered == s {
			return true
		}
	}
	return false
}

// publishEvent encodes the payload and publishes it to the board's
// events topic. Invalid payloads are rejected before anything reaches
// the relay.
func (r *Registry) publishEvent(b Board, p payload.Payload) error {
	message, err := payload.Encode(p)
	if err != nil {
		return err
	}
	return r.relay.Publish(b.EventsTopic(), message)
}

// recordState journals a device state change. Failures are logged and
// swallowed so a broken journal never fails the triggering operation.
func (r *Registry) recordState(deviceID string, state State, source string) {
	if r.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	if err := r.history.RecordStateChange(ctx, deviceID, state, source); err != nil {
		r.logger.Warn("recording state history failed", "device", deviceID, "error", err)
	}
}

// MessageReceived routes one inbound broker message.
//
// The payload is decoded once; PIN_STATE payloads route to the named
// input pin, TEMPERATURE payloads to the board's sensors. Undecodable
// messages are dropped from routing but logged, never fatal. Regardless
// of the routing outcome, the raw message is forwarded to every device
// callback when both fields are non-empty.
func (r *Registry) MessageReceived(topic, message string) {
	if topic == "" || message == "" {
		return
	}

	p, err := payload.Decode(message)
	switch {
	case err != nil:
		r.logger.Warn("dropping undecodable message", "topic", topic, "error", err)
	case p.Property == payload.PropertyPinState && p.Name != "":
		r.routePinState(topic, p)
	case p.Property == payload.PropertyTemperature:
		r.routeTemperature(topic, p)
	}

	for _, g := range r.snapshotGPIOs() {
		g.notifyMessageReceived(topic, message)
	}
	for _, s := range r.snapshotSensors() {
		s.notifyMessageReceived(topic, message)
	}
}

// routePinState applies an inbound pin level to the named pin. Only
// input pins accept levels, and only from their own board's command
// stream.
func (r *Registry) routePinState(topic string, p payload.Payload) {
	r.mu.RLock()
	g := r.gpios[p.Name]
	r.mu.RUnlock()

	if g == nil {
		r.logger.Debug("pin state for unknown device", "name", p.Name)
		return
	}

	_, b := g.binding()
	if g.Direction() != payload.DirectionIn || b == nil || topic != b.CommandsTopic() {
		return
	}

	high := p.Value == payload.ValueHigh
	if g.applyPinState(high) {
		r.recordState(g.Name(), State{"on": high}, StateHistorySourceMQTT)
	}
}

// routeTemperature delivers a reading to every sensor bound to the
// board the message arrived for.
func (r *Registry) routeTemperature(topic string, p payload.Payload) {
	delivered := false
	for _, s := range r.snapshotSensors() {
		_, b := s.binding()
		if b == nil || topic != b.CommandsTopic() {
			continue
		}
		s.applyReading(p.DoubleValue)
		delivered = true
	}

	if delivered {
		r.recordState(TemperatureHistoryID, State{"temperature": p.DoubleValue}, StateHistorySourceMQTT)
	}
}

// MessageSent forwards delivery confirmations to the registered
// devices. Reports with no topics or an empty message are not
// forwarded.
func (r *Registry) MessageSent(topics []string, message string) {
	if len(topics) == 0 || message == "" {
		return
	}

	for _, g := range r.snapshotGPIOs() {
		g.notifyMessageSent(topics, message)
	}
	for _, s := range r.snapshotSensors() {
		s.notifyMessageSent(topics, message)
	}
}

// ConnectionLost forwards a dropped-connection report to the registered
// devices. A nil cause is not forwarded.
func (r *Registry) ConnectionLost(err error) {
	if err == nil {
		return
	}

	for _, g := range r.snapshotGPIOs() {
		g.notifyConnectionLost(err)
	}
	for _, s := range r.snapshotSensors() {
		s.notifyConnectionLost(err)
	}
}

func (r *Registry) snapshotGPIOs() []*GPIO {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gpios := make([]*GPIO, 0, len(r.gpios))
	for _, g := range r.gpios {
		gpios = append(gpios, g)
	}
	return gpios
}

func (r *Registry) snapshotSensors() []*TemperatureSensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sensors := make([]*TemperatureSensor, len(r.sensors))
	copy(sensors, r.sensors)
	return sensors
}

// GetGPIO returns the registered pin with the given name.
func (r *Registry) GetGPIO(name string) (*GPIO, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gpios[name]
	return g, ok
}

// GetPWM returns the registered PWM channel with the given name.
func (r *Registry) GetPWM(name string) (*PWM, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pwms[name]
	return p, ok
}

// Sensors returns the registered temperature sensors.
func (r *Registry) Sensors() []*TemperatureSensor {
	return r.snapshotSensors()
}

// GetDeviceCount returns the number of registered devices.
func (r *Registry) GetDeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.gpios) + len(r.pwms) + len(r.sensors)
}

// DeviceStatus is a point-in-time snapshot of one registered device.
type DeviceStatus struct {
	Name      string                 `json:"name,omitempty"`
	Kind      payload.PeripheralKind `json:"kind"`
	Direction payload.Direction      `json:"direction,omitempty"`
	Label     string                 `json:"label,omitempty"`
	Board     string                 `json:"board"`
	State     State                  `json:"state"`
}

// Devices returns a snapshot of every registered device, ordered by
// kind then name for stable output.
func (r *Registry) Devices() []DeviceStatus {
	r.mu.RLock()
	statuses := make([]DeviceStatus, 0, len(r.gpios)+len(r.pwms)+len(r.sensors))
	for _, g := range r.gpios {
		statuses = append(statuses, g.status())
	}
	for _, p := range r.pwms {
		statuses = append(statuses, p.status())
	}
	for _, s := range r.sensors {
		statuses = append(statuses, s.status())
	}
	r.mu.RUnlock()

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Kind != statuses[j].Kind {
			return statuses[i].Kind < statuses[j].Kind
		}
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices int                            `json:"total_devices"`
	ByKind       map[payload.PeripheralKind]int `json:"by_kind"`
	InputPins    int                            `json:"input_pins"`
	OutputPins   int                            `json:"output_pins"`
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.gpios) + len(r.pwms) + len(r.sensors),
		ByKind:       make(map[payload.PeripheralKind]int),
	}

	for _, g := range r.gpios {
		stats.ByKind[payload.KindGPIO]++
		if g.Direction() == payload.DirectionIn {
			stats.InputPins++
		} else {
			stats.OutputPins++
		}
	}
	if len(r.pwms) > 0 {
		stats.ByKind[payload.KindPWM] = len(r.pwms)
	}
	if len(r.sensors) > 0 {
		stats.ByKind[payload.KindTemperatureSensor] = len(r.sensors)
	}

	return stats
}
