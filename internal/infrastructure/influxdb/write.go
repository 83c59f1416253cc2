package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePinEvent writes a GPIO level change to InfluxDB.
//
// This is the primary method for recording pin telemetry. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - board: Board identifier the pin belongs to (e.g., "PiOne")
//   - pin: Pin name (e.g., "GPIO_34")
//   - direction: Pin direction ("IN" or "OUT")
//   - high: Digital level after the change
//
// Example:
//
//	client.WritePinEvent("PiOne", "GPIO_34", "OUT", true)
func (c *Client) WritePinEvent(board, pin, direction string, high bool) {
	if !c.IsConnected() {
		return
	}

	level := 0.0
	if high {
		level = 1.0
	}

	point := write.NewPoint(
		"pin_events",
		map[string]string{
			"board":     board,
			"pin":       pin,
			"direction": direction,
		},
		map[string]interface{}{
			"level": level,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePwmSetting writes a PWM channel setting change.
//
// Used for tracking duty cycle and frequency adjustments over time.
//
// Parameters:
//   - board: Board identifier
//   - channel: PWM channel name (e.g., "PWM_1")
//   - setting: What changed ("duty_cycle", "frequency", "enabled")
//   - value: The new setting value
func (c *Client) WritePwmSetting(board, channel, setting string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"pwm_settings",
		map[string]string{
			"board":   board,
			"channel": channel,
			"setting": setting,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteTemperature writes a board temperature reading.
//
// Parameters:
//   - board: Board identifier the reading came from
//   - celsius: Temperature in degrees Celsius
func (c *Client) WriteTemperature(board string, celsius float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"temperature",
		map[string]string{
			"board": board,
		},
		map[string]interface{}{
			"celsius": celsius,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectionEvent writes a broker connectivity transition.
//
// Used for tracking broker availability from the relay's perspective.
//
// Parameters:
//   - board: Board identifier
//   - up: true when the connection came up, false when it dropped
func (c *Client) WriteConnectionEvent(board string, up bool) {
	if !c.IsConnected() {
		return
	}

	state := 0.0
	if up {
		state = 1.0
	}

	point := write.NewPoint(
		"connection_events",
		map[string]string{
			"board": board,
		},
		map[string]interface{}{
			"up": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "relay-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
