package device

import (
	"errors"
	"testing"

	"github.com/nerrad567/boardlink/internal/payload"
)

// =============================================================================
// Construction Tests
// =============================================================================

func TestNewGPIO(t *testing.T) {
	pin, err := NewGPIO(GPIOOptions{Name: "GPIO_34", Direction: payload.DirectionIn, Label: "Button"})
	if err != nil {
		t.Fatalf("NewGPIO() error = %v", err)
	}

	if pin.Name() != "GPIO_34" {
		t.Errorf("Name() = %q, want %q", pin.Name(), "GPIO_34")
	}
	if pin.Kind() != payload.KindGPIO {
		t.Errorf("Kind() = %q, want %q", pin.Kind(), payload.KindGPIO)
	}
	if pin.Direction() != payload.DirectionIn {
		t.Errorf("Direction() = %q, want %q", pin.Direction(), payload.DirectionIn)
	}
	if pin.Label() != "Button" {
		t.Errorf("Label() = %q, want %q", pin.Label(), "Button")
	}
	if pin.PinState() {
		t.Error("PinState() = true, want false for a new pin")
	}
}

func TestNewGPIODirectionDefaultsToOut(t *testing.T) {
	pin, err := NewGPIO(GPIOOptions{Name: "GPIO_34"})
	if err != nil {
		t.Fatalf("NewGPIO() error = %v", err)
	}

	if pin.Direction() != payload.DirectionOut {
		t.Errorf("Direction() = %q, want %q", pin.Direction(), payload.DirectionOut)
	}
}

func TestNewGPIOEmptyName(t *testing.T) {
	_, err := NewGPIO(GPIOOptions{})
	if !errors.Is(err, ErrInvalidName) {
		t.Errorf("NewGPIO() error = %v, want ErrInvalidName", err)
	}
}

func TestNewGPIOInvalidDirection(t *testing.T) {
	_, err := NewGPIO(GPIOOptions{Name: "GPIO_34", Direction: "SIDEWAYS"})
	if !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("NewGPIO() error = %v, want ErrInvalidDirection", err)
	}
}

// =============================================================================
// Pin State Tests
// =============================================================================

func TestSetPinStatePublishesLevel(t *testing.T) {
	registry, relay := newTestRegistry(t)
	pin := newTestGPIO(t, "GPIO_34", payload.DirectionOut, "LED")

	if err := registry.Register(pin, testBoard()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := pin.SetPinState(true); err != nil {
		t.Fatalf("SetPinState() error = %v", err)
	}
	if !pin.PinState() {
		t.Error("PinState() = false, want true")
	}

	published := relay.GetPublished()
	if len(published) != 1 {
		t.Fatalf("published messages = %d, want 1", len(published))
	}
	if published[0].Topic != "boardlink/boards/PiOne/events" {
		t.Errorf("publish topic = %q, want %q", published[0].Topic, "boardlink/boards/PiOne/events")
	}

	p := decodePublished(t, published[0])
	if p.Property != payload.PropertyPinState {
		t.Errorf("property = %q, want %q", p.Property, payload.PropertyPinState)
	}
	if p.Value != payload.ValueHigh {
		t.Errorf("value = %q, want %q", p.Value, payload.ValueHigh)
	}
	if p.Direction != payload.DirectionOut {
		t.Errorf("direction = %q, want %q", p.Direction, payload.DirectionOut)
	}
	if p.Platform != "RaspberryPi 3" {
		t.Errorf("platform = %q, want %q", p.Platform, "RaspberryPi 3")
	}
	if p.Label != "LED" {
		t.Errorf("label = %q, want %q", p.Label, "LED")
	}

	if err := pin.SetPinState(false); err != nil {
		t.Fatalf("SetPinState() error = %v", err)
	}
	p = decodePublished(t, relay.GetPublished()[1])
	if p.Value != payload.ValueLow {
		t.Errorf("value = %q, want %q", p.Value, payload.ValueLow)
	}
}

func TestSetPinStateBeforeRegistration(t *testing.T) {
	pin := newTestGPIO(t, "GPIO_34", payload.DirectionOut, "")

	err := pin.SetPinState(true)
	if !errors.Is(err, ErrNotRegistered) {
		t.Errorf("SetPinState() error = %v, want ErrNotRegistered", err)
	}

	// The requested level sticks even though nothing was published.
	if !pin.PinState() {
		t.Error("PinState() = false, want true")
	}
}

func TestSetPinStatePublishFailure(t *testing.T) {
	registry, relay := newTestRegistry(t)
	pin := newTestGPIO(t, "GPIO_34", payload.DirectionOut, "")

	if err := registry.Register(pin, testBoard()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	cause := errors.New("broker unreachable")
	relay.SetPublishError(cause)

	err := pin.SetPinState(true)
	if !errors.Is(err, cause) {
		t.Errorf("SetPinState() error = %v, want %v", err, cause)
	}
	if !pin.PinState() {
		t.Error("PinState() = false after failed publish, want true")
	}
}

func TestToggleIsLocalOnly(t *testing.T) {
	registry, relay := newTestRegistry(t)
	pin := newTestGPIO(t, "GPIO_34", payload.DirectionOut, "")

	if err := registry.Register(pin, testBoard()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	pin.Toggle()
	if !pin.PinState() {
		t.Error("PinState() = false after toggle, want true")
	}
	pin.Toggle()
	if pin.PinState() {
		t.Error("PinState() = true after second toggle, want false")
	}

	if published := relay.GetPublished(); len(published) != 0 {
		t.Errorf("published messages = %d, want 0", len(published))
	}
}

// =============================================================================
// Hardware Attribute Tests
// =============================================================================

func TestPinModeAndPullResistance(t *testing.T) {
	pin := newTestGPIO(t, "GPIO_34", payload.DirectionIn, "")

	if pin.PinMode() != 0 || pin.PullResistance() != 0 {
		t.Errorf("defaults = %d/%d, want 0/0", pin.PinMode(), pin.PullResistance())
	}

	pin.SetPinMode(1)
	pin.SetPullResistance(2)

	if pin.PinMode() != 1 {
		t.Errorf("PinMode() = %d, want 1", pin.PinMode())
	}
	if pin.PullResistance() != 2 {
		t.Errorf("PullResistance() = %d, want 2", pin.PullResistance())
	}
}

// =============================================================================
// Raw Relay Passthrough Tests
// =============================================================================

func TestGPIORelayPassthroughRequiresRegistration(t *testing.T) {
	pin := newTestGPIO(t, "GPIO_34", payload.DirectionOut, "")

	if err := pin.Publish("topic", "message"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Publish() error = %v, want ErrNotRegistered", err)
	}
	if err := pin.Subscribe("topic"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Subscribe() error = %v, want ErrNotRegistered", err)
	}
	if err := pin.Unsubscribe("topic"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotRegistered", err)
	}
}

func TestGPIORelayPassthrough(t *testing.T) {
	registry, relay := newTestRegistry(t)
	pin := newTestGPIO(t, "GPIO_34", payload.DirectionOut, "")

	if err := registry.Register(pin, testBoard()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := pin.Publish("custom/topic", "raw message"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := pin.Subscribe("custom/topic"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := pin.Unsubscribe("custom/topic"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	published := relay.GetPublished()
	if len(published) != 1 || published[0].Topic != "custom/topic" || published[0].Message != "raw message" {
		t.Errorf("published = %v, want one raw message on custom/topic", published)
	}

	subs := relay.GetSubscribed()
	if len(subs) != 2 || subs[1] != "custom/topic" {
		t.Errorf("subscriptions = %v, want command stream plus custom/topic", subs)
	}

	unsubs := relay.GetUnsubscribed()
	if len(unsubs) != 1 || unsubs[0] != "custom/topic" {
		t.Errorf("unsubscriptions = %v, want [custom/topic]", unsubs)
	}
}
