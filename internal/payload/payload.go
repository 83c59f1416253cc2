package payload

import (
	"encoding/json"
	"fmt"
)

// Payload is one device operation or telemetry update on the wire.
//
// Payloads are value types: build one with a constructor, encode it, and
// treat it as immutable after that. Required fields depend on Property;
// see Validate.
type Payload struct {
	// PeripheralKind is the class of peripheral this payload concerns.
	PeripheralKind PeripheralKind `json:"peripheral_kind"`

	// Action is the operation the payload carries.
	Action Action `json:"action"`

	// Name is the logical device name (e.g. "GPIO_34"). Board-scoped
	// payloads such as temperature readings omit it.
	Name string `json:"name,omitempty"`

	// Property is the device attribute the payload carries.
	Property Property `json:"property"`

	// Value is the digital level for PIN_STATE payloads.
	Value Value `json:"value,omitempty"`

	// DoubleValue carries numeric readings: duty cycle, frequency,
	// temperature.
	DoubleValue float64 `json:"double_value,omitempty"`

	// Direction is the pin direction, set on GPIO payloads.
	Direction Direction `json:"direction,omitempty"`

	// Platform is the hardware platform label of the owning board
	// (e.g. "RaspberryPi 3").
	Platform string `json:"platform,omitempty"`

	// Label is free text describing the attached physical part
	// (e.g. "LED", "DoorSensor").
	Label string `json:"label,omitempty"`
}

// Validate reports why the payload is invalid, or nil if publishable.
//
// The rules mirror what receivers need to route the payload: kind, action
// and property must always be known tokens, and each property carries its
// own required fields.
func (p Payload) Validate() error {
	if !p.PeripheralKind.Valid() {
		return fmt.Errorf("unknown peripheral_kind %q", string(p.PeripheralKind))
	}
	if !p.Action.Valid() {
		return fmt.Errorf("unknown action %q", string(p.Action))
	}
	if !p.Property.Valid() {
		return fmt.Errorf("unknown property %q", string(p.Property))
	}
	if p.Value != "" && !p.Value.Valid() {
		return fmt.Errorf("unknown value %q", string(p.Value))
	}
	if p.Direction != "" && !p.Direction.Valid() {
		return fmt.Errorf("unknown direction %q", string(p.Direction))
	}

	switch p.Property {
	case PropertyPinState:
		if p.Name == "" {
			return fmt.Errorf("%s requires a device name", PropertyPinState)
		}
		if p.Value == "" {
			return fmt.Errorf("%s requires a value", PropertyPinState)
		}
	case PropertyRegister:
		if p.Name == "" {
			return fmt.Errorf("%s requires a device name", PropertyRegister)
		}
		if p.Direction == "" {
			return fmt.Errorf("%s requires a direction", PropertyRegister)
		}
	case PropertyDutyCycle, PropertyFrequency:
		if p.Name == "" {
			return fmt.Errorf("%s requires a device name", p.Property)
		}
	case PropertyTemperature:
		// Board-scoped: monitor requests and readings carry no name.
	}

	return nil
}

// Encode serialises the payload for the wire.
//
// Invalid payloads are rejected before they can reach the broker; the
// returned error wraps ErrEncodingFailed.
func Encode(p Payload) (string, error) {
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}

	return string(data), nil
}

// Decode reconstructs a payload from wire data.
//
// Malformed JSON, unknown enum tokens, and payloads missing required
// fields all fail with an error wrapping ErrDecodingFailed. Decoding is
// the exact inverse of Encode: Decode(Encode(p)) == p for every valid p.
func Decode(message string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(message), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrDecodingFailed, err)
	}

	if err := p.Validate(); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrDecodingFailed, err)
	}

	return p, nil
}

// NewPinEvent builds a PIN_STATE event for a GPIO pin.
//
// high selects the wire value (true → HIGH). The platform label comes from
// the owning board; label names the attached part.
func NewPinEvent(name string, high bool, direction Direction, platform, label string) Payload {
	value := ValueLow
	if high {
		value = ValueHigh
	}
	return Payload{
		PeripheralKind: KindGPIO,
		Action:         ActionEvent,
		Name:           name,
		Property:       PropertyPinState,
		Value:          value,
		Direction:      direction,
		Platform:       platform,
		Label:          label,
	}
}

// NewPinRegistration builds the announcement an input pin publishes when it
// registers with its board. The current pin level travels with it so the
// board seeds its view of the pin.
func NewPinRegistration(name string, high bool, direction Direction, platform, label string) Payload {
	value := ValueLow
	if high {
		value = ValueHigh
	}
	return Payload{
		PeripheralKind: KindGPIO,
		Action:         ActionRegister,
		Name:           name,
		Property:       PropertyRegister,
		Value:          value,
		Direction:      direction,
		Platform:       platform,
		Label:          label,
	}
}

// NewPwmState builds a PIN_STATE event enabling or disabling a PWM channel.
func NewPwmState(name string, enabled bool, platform string) Payload {
	value := ValueLow
	if enabled {
		value = ValueHigh
	}
	return Payload{
		PeripheralKind: KindPWM,
		Action:         ActionEvent,
		Name:           name,
		Property:       PropertyPinState,
		Value:          value,
		Platform:       platform,
		Label:          name,
	}
}

// NewPwmDutyCycle builds a DUTY_CYCLE event for a PWM channel.
func NewPwmDutyCycle(name string, dutyCycle float64, platform string) Payload {
	return Payload{
		PeripheralKind: KindPWM,
		Action:         ActionEvent,
		Name:           name,
		Property:       PropertyDutyCycle,
		DoubleValue:    dutyCycle,
		Platform:       platform,
		Label:          name,
	}
}

// NewPwmFrequency builds a FREQUENCY event for a PWM channel.
func NewPwmFrequency(name string, frequency float64, platform string) Payload {
	return Payload{
		PeripheralKind: KindPWM,
		Action:         ActionEvent,
		Name:           name,
		Property:       PropertyFrequency,
		DoubleValue:    frequency,
		Platform:       platform,
		Label:          name,
	}
}

// NewTemperatureMonitor builds the request a temperature sensor publishes
// to start receiving readings from its board.
func NewTemperatureMonitor(platform string) Payload {
	return Payload{
		PeripheralKind: KindTemperatureSensor,
		Action:         ActionMonitor,
		Property:       PropertyTemperature,
		Platform:       platform,
	}
}

// NewTemperatureReading builds a TEMPERATURE event carrying a sensor
// reading, as published by the board side of the relay.
func NewTemperatureReading(platform string, reading float64) Payload {
	return Payload{
		PeripheralKind: KindTemperatureSensor,
		Action:         ActionEvent,
		Property:       PropertyTemperature,
		DoubleValue:    reading,
		Platform:       platform,
	}
}
