// Package device provides the peripheral registry for Boardlink.
//
// The registry is the catalogue of logical peripherals (GPIO pins, PWM
// channels, temperature sensors) bound to a board, and the mediator for
// all of their broker traffic. Devices never talk to the relay directly:
// they publish through the registry, and the registry routes inbound
// payloads back to them by name and property.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                         Device Registry                             │
//	│                                                                     │
//	│   GPIO ──┐                                                          │
//	│   PWM  ──┼── Register(dev, board) ──▶ announce + subscribe          │
//	│   Temp ──┘                                                          │
//	│                                                                     │
//	│   SetPinState / SetDutyCycle ──▶ encode payload ──▶ relay.Publish   │
//	│                                                                     │
//	│   relay events ──▶ MessageReceived ──▶ decode ──▶ route by name     │
//	│                                         │                           │
//	│                                         ├─▶ PIN_STATE → input pins  │
//	│                                         └─▶ TEMPERATURE → sensors   │
//	└─────────────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - GPIO: a digital pin, input or output, with edge-transition callbacks
//   - PWM: a pulse-width-modulated output channel
//   - TemperatureSensor: a board-scoped temperature reading stream
//   - Registry: binds devices to boards and routes payloads between them
//
// # Usage
//
//	registry, err := device.NewRegistry(relaySvc)
//	if err != nil {
//	    return err
//	}
//	registry.SetLogger(log)
//
//	led, err := device.NewGPIO(device.GPIOOptions{
//	    Name:      "GPIO_34",
//	    Direction: payload.DirectionOut,
//	    Label:     "LED",
//	})
//	if err != nil {
//	    return err
//	}
//	if err := registry.Register(led, brd); err != nil {
//	    return err
//	}
//
//	// Drive the pin; the state change is published to the board's
//	// events topic.
//	if err := led.SetPinState(true); err != nil {
//	    return err
//	}
//
// Registering an input pin announces its presence to the board and all
// registrations subscribe to the board's command stream, so inbound
// PIN_STATE payloads reach the pin's transition callbacks.
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Device state is guarded per
// device. Inbound routing runs on the relay's event dispatcher
// goroutine; device callbacks are invoked there and must not block.
package device
