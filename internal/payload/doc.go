// Package payload implements the wire codec for device operations.
//
// Every command, telemetry update, and registration announcement that
// crosses the broker is a single Payload record encoded as JSON. The codec
// is the only place wire-format knowledge lives: devices build payloads
// with the constructors here, the relay moves opaque strings, and the
// registry decodes inbound strings back into payloads for routing.
//
// # Wire Format
//
// A payload is a flat JSON object with string-backed enums:
//
//	{
//	  "peripheral_kind": "GPIO",
//	  "action": "EVENT",
//	  "name": "GPIO_34",
//	  "property": "PIN_STATE",
//	  "value": "HIGH",
//	  "direction": "OUT",
//	  "platform": "RaspberryPi 3",
//	  "label": "LED"
//	}
//
// Numeric readings (duty cycle, frequency, temperature) travel in
// double_value. The format is self-describing and stable across processes:
// a payload encoded by one relay is decodable by any other.
//
// # Validity
//
// A payload is invalid when a field required by its property is unset:
// PIN_STATE needs name and value, REGISTER needs name and direction,
// DUTY_CYCLE and FREQUENCY need a name for the reading, TEMPERATURE is
// board-scoped and needs neither. Encode rejects invalid payloads before
// they reach the broker (ErrEncodingFailed); Decode rejects malformed or
// invalid wire data (ErrDecodingFailed). Round trip holds for every valid
// payload: Decode(Encode(p)) == p.
//
// # Usage
//
//	p := payload.NewPinEvent("GPIO_34", true, payload.DirectionOut, "RaspberryPi 3", "LED")
//	msg, err := payload.Encode(p)
//	if err != nil {
//	    return err
//	}
//	// publish msg, later:
//	decoded, err := payload.Decode(msg)
package payload
