package device

import (
	"fmt"
	"sync"

	"github.com/nerrad567/boardlink/internal/payload"
)

// GPIO models a device attached to a general-purpose I/O pin: an LED or
// relay the board drives, or a button or door sensor the board reads.
//
// An output pin is driven with SetPinState, which publishes the new
// level to the board's events topic. An input pin announces itself on
// registration and then mirrors the levels arriving on the board's
// command stream, firing transition callbacks as the level changes.
type GPIO struct {
	name      string
	direction payload.Direction
	label     string

	mu             sync.Mutex
	isOn           bool
	pinMode        int
	pullResistance int
	registry       *Registry
	board          Board

	callbackMu           sync.RWMutex
	onStateChanged       func(high bool)
	onStateChangedToHigh func()
	onStateChangedToLow  func()
	onMessageReceived    func(topic, message string)
	onMessageSent        func(topics []string, message string)
	onConnectionLost     func(err error)
}

// GPIOOptions configures a new GPIO pin.
type GPIOOptions struct {
	// Name is the pin identity as given in the platform pinout,
	// e.g. "GPIO_34". Required.
	Name string

	// Direction designates whether the pin reads input or drives
	// output. Defaults to DirectionOut.
	Direction payload.Direction

	// Label names the physical part attached to the pin, e.g. "LED" or
	// "DoorSensor".
	Label string
}

// NewGPIO creates a pin from the given options.
func NewGPIO(opts GPIOOptions) (*GPIO, error) {
	if opts.Name == "" {
		return nil, ErrInvalidName
	}

	direction := opts.Direction
	if direction == "" {
		direction = payload.DirectionOut
	}
	if !direction.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, string(opts.Direction))
	}

	return &GPIO{
		name:      opts.Name,
		direction: direction,
		label:     opts.Label,
	}, nil
}

// Name returns the pin identity.
func (g *GPIO) Name() string {
	return g.name
}

// Kind returns the peripheral class for wire payloads.
func (g *GPIO) Kind() payload.PeripheralKind {
	return payload.KindGPIO
}

// Direction returns the pin's signal direction.
func (g *GPIO) Direction() payload.Direction {
	return g.direction
}

// Label returns the name of the attached physical part.
func (g *GPIO) Label() string {
	return g.label
}

func (g *GPIO) bind(r *Registry, b Board) {
	g.mu.Lock()
	g.registry = r
	g.board = b
	g.mu.Unlock()
}

func (g *GPIO) binding() (*Registry, Board) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registry, g.board
}

// PinState reports whether the pin is currently high.
func (g *GPIO) PinState() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isOn
}

// SetPinState drives the pin high or low and publishes the new level to
// the board's events topic.
//
// The local state updates before the publish is attempted, so the pin
// reflects the requested level even when the device is not yet
// registered; the call then returns ErrNotRegistered.
func (g *GPIO) SetPinState(high bool) error {
	g.mu.Lock()
	g.isOn = high
	reg, b := g.registry, g.board
	g.mu.Unlock()

	if reg == nil {
		return ErrNotRegistered
	}

	event := payload.NewPinEvent(g.name, high, g.direction, b.Platform(), g.label)
	if err := reg.publishEvent(b, event); err != nil {
		return err
	}

	reg.recordState(g.name, State{"on": high}, StateHistorySourceCommand)
	return nil
}

// Toggle flips the local pin state without publishing.
func (g *GPIO) Toggle() {
	g.mu.Lock()
	g.isOn = !g.isOn
	g.mu.Unlock()
}

// SetPinMode sets the platform-specific pin mode.
func (g *GPIO) SetPinMode(mode int) {
	g.mu.Lock()
	g.pinMode = mode
	g.mu.Unlock()
}

// PinMode returns the platform-specific pin mode.
func (g *GPIO) PinMode() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pinMode
}

// SetPullResistance sets the resistor configuration attached to the pin.
func (g *GPIO) SetPullResistance(resistance int) {
	g.mu.Lock()
	g.pullResistance = resistance
	g.mu.Unlock()
}

// PullResistance returns the resistor configuration attached to the pin.
func (g *GPIO) PullResistance() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pullResistance
}

// Publish sends a raw message on an arbitrary topic through the board's
// relay. The pin must be registered first.
func (g *GPIO) Publish(topic, message string) error {
	reg, _ := g.binding()
	if reg == nil {
		return ErrNotRegistered
	}
	return reg.relay.Publish(topic, message)
}

// Subscribe adds a subscription on an arbitrary topic through the
// board's relay. The pin must be registered first.
func (g *GPIO) Subscribe(topic string) error {
	reg, _ := g.binding()
	if reg == nil {
		return ErrNotRegistered
	}
	return reg.relay.Subscribe(topic)
}

// Unsubscribe removes a subscription through the board's relay. The pin
// must be registered first.
func (g *GPIO) Unsubscribe(topic string) error {
	reg, _ := g.binding()
	if reg == nil {
		return ErrNotRegistered
	}
	return reg.relay.Unsubscribe(topic)
}

// SetOnStateChanged registers a callback fired when an inbound level
// genuinely flips the pin state. The new level is passed through.
func (g *GPIO) SetOnStateChanged(callback func(high bool)) {
	g.callbackMu.Lock()
	g.onStateChanged = callback
	g.callbackMu.Unlock()
}

// SetOnStateChangedToHigh registers a callback fired on every inbound
// HIGH level, whether or not the pin was already high.
func (g *GPIO) SetOnStateChangedToHigh(callback func()) {
	g.callbackMu.Lock()
	g.onStateChangedToHigh = callback
	g.callbackMu.Unlock()
}

// SetOnStateChangedToLow registers a callback fired on every inbound
// LOW level, whether or not the pin was already low.
func (g *GPIO) SetOnStateChangedToLow(callback func()) {
	g.callbackMu.Lock()
	g.onStateChangedToLow = callback
	g.callbackMu.Unlock()
}

// SetOnMessageReceived registers a callback fired for every inbound
// broker message, regardless of topic or routing outcome.
func (g *GPIO) SetOnMessageReceived(callback func(topic, message string)) {
	g.callbackMu.Lock()
	g.onMessageReceived = callback
	g.callbackMu.Unlock()
}

// SetOnMessageSent registers a callback fired when the relay confirms a
// delivery.
func (g *GPIO) SetOnMessageSent(callback func(topics []string, message string)) {
	g.callbackMu.Lock()
	g.onMessageSent = callback
	g.callbackMu.Unlock()
}

// SetOnConnectionLost registers a callback fired when the broker
// connection drops.
func (g *GPIO) SetOnConnectionLost(callback func(err error)) {
	g.callbackMu.Lock()
	g.onConnectionLost = callback
	g.callbackMu.Unlock()
}

// applyPinState applies an inbound level and fires transition
// callbacks. The state-changed callback fires only on a genuine flip;
// the level-specific callbacks fire on every matching message. Reports
// whether the level flipped.
func (g *GPIO) applyPinState(high bool) bool {
	g.mu.Lock()
	changed := g.isOn != high
	g.isOn = high
	g.mu.Unlock()

	g.callbackMu.RLock()
	onChanged := g.onStateChanged
	onHigh := g.onStateChangedToHigh
	onLow := g.onStateChangedToLow
	g.callbackMu.RUnlock()

	if changed && onChanged != nil {
		onChanged(high)
	}
	if high {
		if onHigh != nil {
			onHigh()
		}
	} else if onLow != nil {
		onLow()
	}

	return changed
}

func (g *GPIO) notifyMessageReceived(topic, message string) {
	g.callbackMu.RLock()
	callback := g.onMessageReceived
	g.callbackMu.RUnlock()

	if callback != nil {
		callback(topic, message)
	}
}

func (g *GPIO) notifyMessageSent(topics []string, message string) {
	g.callbackMu.RLock()
	callback := g.onMessageSent
	g.callbackMu.RUnlock()

	if callback != nil {
		callback(topics, message)
	}
}

func (g *GPIO) notifyConnectionLost(err error) {
	g.callbackMu.RLock()
	callback := g.onConnectionLost
	g.callbackMu.RUnlock()

	if callback != nil {
		callback(err)
	}
}

// status returns the pin's registry snapshot.
func (g *GPIO) status() DeviceStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	boardID := ""
	if g.board != nil {
		boardID = g.board.Identifier()
	}

	return DeviceStatus{
		Name:      g.name,
		Kind:      payload.KindGPIO,
		Direction: g.direction,
		Label:     g.label,
		Board:     boardID,
		State:     State{"on": g.isOn},
	}
}
