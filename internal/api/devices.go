package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/boardlink/internal/device"
	"github.com/nerrad567/boardlink/internal/payload"
)

// handleListDevices returns all registered devices, ordered by kind then name.
//
// Query parameters:
//   - kind: filter by peripheral kind (GPIO, PWM, TEMPERATURE_SENSOR)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.registry.Devices()

	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := devices[:0]
		for _, d := range devices {
			if d.Kind == payload.PeripheralKind(kind) {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device snapshot by name.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	status, ok := s.lookupDevice(name)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleDeviceStats returns device registry statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.registry.GetStats()
	writeJSON(w, http.StatusOK, stats)
}

// handleGetDeviceState returns the current state of a device.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	status, ok := s.lookupDevice(name)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":  status.Name,
		"kind":  status.Kind,
		"state": status.State,
	})
}

// GPIOStateRequest sets the level of a pin.
type GPIOStateRequest struct {
	On *bool `json:"on"`
}

// PWMStateRequest adjusts one or more channel settings.
// Absent fields are left unchanged.
type PWMStateRequest struct {
	Enabled   *bool    `json:"enabled"`
	DutyCycle *float64 `json:"duty_cycle"`
	Frequency *float64 `json:"frequency"`
}

// handleSetDeviceState applies a state change to a GPIO pin or PWM channel.
//
// The local state is updated immediately and the matching payload is queued
// for publish over the shared broker connection. Delivery confirmation
// arrives asynchronously on the event stream.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if pin, ok := s.registry.GetGPIO(name); ok {
		s.setGPIOState(w, r, pin)
		return
	}
	if channel, ok := s.registry.GetPWM(name); ok {
		s.setPWMState(w, r, channel)
		return
	}

	writeNotFound(w, "device not found")
}

// setGPIOState drives a pin high or low.
func (s *Server) setGPIOState(w http.ResponseWriter, r *http.Request, pin *device.GPIO) {
	var req GPIOStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.On == nil {
		writeBadRequest(w, "on field is required")
		return
	}

	if err := pin.SetPinState(*req.On); err != nil {
		s.logger.Warn("pin state publish failed", "name", pin.Name(), "error", err)
		writeUnavailable(w, "failed to queue pin state publish")
		return
	}

	state := device.State{"on": *req.On}
	s.broadcastStateChange(pin.Name(), payload.KindGPIO, state, device.StateHistorySourceCommand)
	if s.influx != nil {
		s.influx.WritePinEvent(s.boardIdentifier(), pin.Name(), string(pin.Direction()), *req.On)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":  pin.Name(),
		"kind":  payload.KindGPIO,
		"state": state,
	})
}

// setPWMState applies the requested channel settings in order: enabled,
// duty cycle, frequency. Each setting publishes its own payload.
func (s *Server) setPWMState(w http.ResponseWriter, r *http.Request, channel *device.PWM) {
	var req PWMStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil && req.DutyCycle == nil && req.Frequency == nil {
		writeBadRequest(w, "at least one of enabled, duty_cycle, frequency is required")
		return
	}

	state := device.State{}

	if req.Enabled != nil {
		if err := channel.SetEnabled(*req.Enabled); err != nil {
			s.logger.Warn("channel enable publish failed", "name", channel.Name(), "error", err)
			writeUnavailable(w, "failed to queue channel state publish")
			return
		}
		state["enabled"] = *req.Enabled
		if s.influx != nil {
			enabled := 0.0
			if *req.Enabled {
				enabled = 1.0
			}
			s.influx.WritePwmSetting(s.boardIdentifier(), channel.Name(), "enabled", enabled)
		}
	}

	if req.DutyCycle != nil {
		if err := channel.SetDutyCycle(*req.DutyCycle); err != nil {
			s.logger.Warn("duty cycle publish failed", "name", channel.Name(), "error", err)
			writeUnavailable(w, "failed to queue channel state publish")
			return
		}
		state["duty_cycle"] = *req.DutyCycle
		if s.influx != nil {
			s.influx.WritePwmSetting(s.boardIdentifier(), channel.Name(), "duty_cycle", *req.DutyCycle)
		}
	}

	if req.Frequency != nil {
		if err := channel.SetFrequency(*req.Frequency); err != nil {
			s.logger.Warn("frequency publish failed", "name", channel.Name(), "error", err)
			writeUnavailable(w, "failed to queue channel state publish")
			return
		}
		state["frequency"] = *req.Frequency
		if s.influx != nil {
			s.influx.WritePwmSetting(s.boardIdentifier(), channel.Name(), "frequency", *req.Frequency)
		}
	}

	s.broadcastStateChange(channel.Name(), payload.KindPWM, state, device.StateHistorySourceCommand)

	writeJSON(w, http.StatusOK, map[string]any{
		"name":  channel.Name(),
		"kind":  payload.KindPWM,
		"state": state,
	})
}

// lookupDevice finds the status snapshot for a named device. Board-scoped
// sensors have no name and are served by the temperature routes instead.
func (s *Server) lookupDevice(name string) (device.DeviceStatus, bool) {
	if name == "" {
		return device.DeviceStatus{}, false
	}
	for _, d := range s.registry.Devices() {
		if d.Name == name {
			return d, true
		}
	}
	return device.DeviceStatus{}, false
}
