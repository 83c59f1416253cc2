package device

import (
	"sync"

	"github.com/nerrad567/boardlink/internal/payload"
)

// PWM models a pulse-width-modulated output channel, such as a servo
// motor or speaker driven through a proportional control signal.
//
// A PWM channel is write-only: it publishes enable, duty cycle, and
// frequency changes to the board's events topic and receives nothing
// back, so it carries no inbound callbacks.
type PWM struct {
	name string

	mu        sync.Mutex
	enabled   bool
	dutyCycle float64
	frequency float64
	registry  *Registry
	board     Board
}

// PWMOptions configures a new PWM channel.
type PWMOptions struct {
	// Name is the channel identity as given in the platform pinout.
	// Required.
	Name string
}

// NewPWM creates a PWM channel from the given options.
func NewPWM(opts PWMOptions) (*PWM, error) {
	if opts.Name == "" {
		return nil, ErrInvalidName
	}
	return &PWM{name: opts.Name}, nil
}

// Name returns the channel identity.
func (p *PWM) Name() string {
	return p.name
}

// Kind returns the peripheral class for wire payloads.
func (p *PWM) Kind() payload.PeripheralKind {
	return payload.KindPWM
}

func (p *PWM) bind(r *Registry, b Board) {
	p.mu.Lock()
	p.registry = r
	p.board = b
	p.mu.Unlock()
}

// Enabled reports whether the channel is switched on.
func (p *PWM) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetEnabled switches the channel on or off and publishes the new
// state. The local state updates before the publish is attempted.
func (p *PWM) SetEnabled(enabled bool) error {
	p.mu.Lock()
	p.enabled = enabled
	reg, b := p.registry, p.board
	p.mu.Unlock()

	if reg == nil {
		return ErrNotRegistered
	}

	if err := reg.publishEvent(b, payload.NewPwmState(p.name, enabled, b.Platform())); err != nil {
		return err
	}

	reg.recordState(p.name, p.stateSnapshot(), StateHistorySourceCommand)
	return nil
}

// DutyCycle returns the last duty cycle set on the channel.
func (p *PWM) DutyCycle() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dutyCycle
}

// SetDutyCycle sets the duty cycle percentage, expected between 1 and
// 100, and publishes it. The local state updates before the publish is
// attempted.
func (p *PWM) SetDutyCycle(dutyCycle float64) error {
	p.mu.Lock()
	p.dutyCycle = dutyCycle
	reg, b := p.registry, p.board
	p.mu.Unlock()

	if reg == nil {
		return ErrNotRegistered
	}

	if err := reg.publishEvent(b, payload.NewPwmDutyCycle(p.name, dutyCycle, b.Platform())); err != nil {
		return err
	}

	reg.recordState(p.name, p.stateSnapshot(), StateHistorySourceCommand)
	return nil
}

// Frequency returns the last signal frequency set on the channel.
func (p *PWM) Frequency() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frequency
}

// SetFrequency sets the signal frequency and publishes it. The local
// state updates before the publish is attempted.
func (p *PWM) SetFrequency(frequency float64) error {
	p.mu.Lock()
	p.frequency = frequency
	reg, b := p.registry, p.board
	p.mu.Unlock()

	if reg == nil {
		return ErrNotRegistered
	}

	if err := reg.publishEvent(b, payload.NewPwmFrequency(p.name, frequency, b.Platform())); err != nil {
		return err
	}

	reg.recordState(p.name, p.stateSnapshot(), StateHistorySourceCommand)
	return nil
}

func (p *PWM) stateSnapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		"enabled":    p.enabled,
		"duty_cycle": p.dutyCycle,
		"frequency":  p.frequency,
	}
}

// status returns the channel's registry snapshot.
func (p *PWM) status() DeviceStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	boardID := ""
	if p.board != nil {
		boardID = p.board.Identifier()
	}

	return DeviceStatus{
		Name:  p.name,
		Kind:  payload.KindPWM,
		Label: p.name,
		Board: boardID,
		State: State{
			"enabled":    p.enabled,
			"duty_cycle": p.dutyCycle,
			"frequency":  p.frequency,
		},
	}
}
