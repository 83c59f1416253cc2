package payload

// PeripheralKind identifies the class of peripheral a payload concerns.
type PeripheralKind string

const (
	// KindGPIO is a general-purpose digital I/O pin.
	KindGPIO PeripheralKind = "GPIO"

	// KindPWM is a pulse-width-modulated output channel.
	KindPWM PeripheralKind = "PWM"

	// KindTemperatureSensor is a board-attached temperature sensor.
	KindTemperatureSensor PeripheralKind = "TEMPERATURE_SENSOR"
)

// Valid reports whether the kind is a known peripheral class.
func (k PeripheralKind) Valid() bool {
	switch k {
	case KindGPIO, KindPWM, KindTemperatureSensor:
		return true
	}
	return false
}

// Action identifies what the payload asks the receiver to do.
type Action string

const (
	// ActionRegister announces a device's presence to the board.
	ActionRegister Action = "REGISTER"

	// ActionMonitor asks the board to start streaming a sensor reading.
	ActionMonitor Action = "MONITOR"

	// ActionEvent carries a state change or command value.
	ActionEvent Action = "EVENT"

	// ActionShutdown announces that a board is shutting down. It travels
	// as a bare token on the board's internal topic, not as a full payload.
	ActionShutdown Action = "SHUTDOWN"
)

// Valid reports whether the action is a known operation.
func (a Action) Valid() bool {
	switch a {
	case ActionRegister, ActionMonitor, ActionEvent, ActionShutdown:
		return true
	}
	return false
}

// Property identifies which device attribute the payload carries.
type Property string

const (
	// PropertyPinState is a digital pin level (value HIGH or LOW).
	PropertyPinState Property = "PIN_STATE"

	// PropertyRegister is a registration announcement for an input pin.
	PropertyRegister Property = "REGISTER"

	// PropertyDutyCycle is a PWM duty cycle percentage in double_value.
	PropertyDutyCycle Property = "DUTY_CYCLE"

	// PropertyFrequency is a PWM signal frequency in double_value.
	PropertyFrequency Property = "FREQUENCY"

	// PropertyTemperature is a temperature reading in double_value.
	PropertyTemperature Property = "TEMPERATURE"
)

// Valid reports whether the property is a known device attribute.
func (p Property) Valid() bool {
	switch p {
	case PropertyPinState, PropertyRegister, PropertyDutyCycle, PropertyFrequency, PropertyTemperature:
		return true
	}
	return false
}

// Value is a digital pin level.
type Value string

const (
	// ValueHigh is a logical high pin level.
	ValueHigh Value = "HIGH"

	// ValueLow is a logical low pin level.
	ValueLow Value = "LOW"
)

// Valid reports whether the value is a known pin level.
func (v Value) Valid() bool {
	return v == ValueHigh || v == ValueLow
}

// Direction is the signal direction of a pin relative to the board.
type Direction string

const (
	// DirectionIn marks a pin the board reads (sensors, buttons).
	DirectionIn Direction = "IN"

	// DirectionOut marks a pin the board drives (LEDs, relays).
	DirectionOut Direction = "OUT"
)

// Valid reports whether the direction is known.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}
