package board

import (
	"fmt"
	"sync"

	"github.com/nerrad567/boardlink/internal/payload"
)

// Broker port bounds. Ports below 1024 are privileged and never carry
// broker traffic in a boardlink deployment.
const (
	minPort = 1024
	maxPort = 65535
)

// pinCounts maps known platform labels to their header pin count.
// Unknown platforms accept any positive pin number.
var pinCounts = map[string]int{
	"RaspberryPi 1 Model A":  26,
	"RaspberryPi 1 Model B":  26,
	"RaspberryPi 1 Model A+": 40,
	"RaspberryPi 1 Model B+": 40,
	"RaspberryPi 2 Model B":  40,
	"RaspberryPi 3":          40,
}

// Relay is the board's view of the message relay.
// This allows mocking in tests and is satisfied by *relay.Service.
type Relay interface {
	// Publish queues a message for a topic.
	Publish(topic, message string) error

	// Subscribe queues a subscription to a topic.
	Subscribe(topic string) error
}

// Logger is the structured logging interface used by the board.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options holds configuration for creating a board.
type Options struct {
	// Identifier is the board's unique name. Required.
	Identifier string

	// Platform is the hardware platform label (e.g. "RaspberryPi 3").
	Platform string

	// Host is the broker host this board binds to.
	Host string

	// Port is the broker port; must be in the unprivileged range
	// 1024-65535.
	Port int

	// Relay carries the board's traffic. Required.
	Relay Relay

	// Logger is optional structured logger.
	Logger Logger
}

// Board is one physical board's identity and lifecycle.
//
// It implements the relay Listener interface: register it on the relay
// and call Start so it can watch its own internal topic for the shutdown
// token.
type Board struct {
	identifier string
	platform   string
	host       string
	port       int

	relay Relay

	// shutdown latches once the shutdown token is seen on the internal
	// topic. It never resets.
	shutdown   bool
	shutdownMu sync.RWMutex

	// Callbacks (optional, set via SetOn*).
	onMessageSent    func(topics []string, message string)
	onConnectionLost func(err error)
	onShutdown       func()
	callbackMu       sync.RWMutex

	logger Logger
}

// New creates a board from the given options.
//
// Returns:
//   - *Board: The board, not yet listening; call Start
//   - error: ErrInvalidIdentifier or ErrInvalidPort on bad bindings
func New(opts Options) (*Board, error) {
	if opts.Identifier == "" {
		return nil, ErrInvalidIdentifier
	}
	if opts.Port < minPort || opts.Port > maxPort {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPort, opts.Port)
	}
	if opts.Relay == nil {
		return nil, fmt.Errorf("board: relay is required")
	}

	return &Board{
		identifier: opts.Identifier,
		platform:   opts.Platform,
		host:       opts.Host,
		port:       opts.Port,
		relay:      opts.Relay,
		logger:     opts.Logger,
	}, nil
}

// Start subscribes the board to its own internal topic so it observes the
// shutdown token, whether published by this process, a peer, or the
// broker delivering a Last Will.
func (b *Board) Start() error {
	if err := b.relay.Subscribe(b.InternalTopic()); err != nil {
		return fmt.Errorf("subscribe to internal topic: %w", err)
	}
	return nil
}

// Identifier returns the board's unique name.
func (b *Board) Identifier() string {
	return b.identifier
}

// Platform returns the hardware platform label.
func (b *Board) Platform() string {
	return b.platform
}

// Host returns the broker host this board binds to.
func (b *Board) Host() string {
	return b.host
}

// Port returns the broker port this board binds to.
func (b *Board) Port() int {
	return b.port
}

// PinCount returns the number of header pins for the board's platform,
// or 0 when the platform is unknown.
func (b *Board) PinCount() int {
	return pinCounts[b.platform]
}

// HasPin reports whether the platform's header carries the given pin.
// Unknown platforms accept any positive pin number.
func (b *Board) HasPin(pin int) bool {
	count, ok := pinCounts[b.platform]
	if !ok {
		return pin >= 1
	}
	return pin >= 1 && pin <= count
}

// InternalTopic returns this board's lifecycle topic.
func (b *Board) InternalTopic() string {
	return Topics{}.Internal(b.identifier)
}

// EventsTopic returns this board's board-to-applications topic.
func (b *Board) EventsTopic() string {
	return Topics{}.Events(b.identifier)
}

// CommandsTopic returns this board's applications-to-board topic.
func (b *Board) CommandsTopic() string {
	return Topics{}.Commands(b.identifier)
}

// Shutdown announces the board is going away by publishing the bare
// shutdown token on the internal topic. Peers subscribed there (including
// this board) latch their shutdown flag when the token arrives.
func (b *Board) Shutdown() error {
	return b.relay.Publish(b.InternalTopic(), string(payload.ActionShutdown))
}

// HasShutdown reports whether the shutdown token has been observed on the
// internal topic. Once set it never resets.
func (b *Board) HasShutdown() bool {
	b.shutdownMu.RLock()
	defer b.shutdownMu.RUnlock()
	return b.shutdown
}

// SetOnMessageSent sets a callback invoked after any of the board's
// messages completes delivery.
func (b *Board) SetOnMessageSent(callback func(topics []string, message string)) {
	b.callbackMu.Lock()
	b.onMessageSent = callback
	b.callbackMu.Unlock()
}

// SetOnConnectionLost sets a callback invoked when the broker connection
// drops with a known cause.
func (b *Board) SetOnConnectionLost(callback func(err error)) {
	b.callbackMu.Lock()
	b.onConnectionLost = callback
	b.callbackMu.Unlock()
}

// SetOnShutdown sets a callback invoked when the shutdown token is
// observed on the internal topic.
func (b *Board) SetOnShutdown(callback func()) {
	b.callbackMu.Lock()
	b.onShutdown = callback
	b.callbackMu.Unlock()
}

// MessageReceived watches the internal topic for the shutdown token.
// All other traffic is ignored here; devices route their own messages.
func (b *Board) MessageReceived(topic, message string) {
	if topic != b.InternalTopic() {
		return
	}
	if message != string(payload.ActionShutdown) {
		return
	}

	b.shutdownMu.Lock()
	already := b.shutdown
	b.shutdown = true
	b.shutdownMu.Unlock()

	if already {
		return
	}

	b.logInfo("shutdown token observed", "board", b.identifier)

	b.callbackMu.RLock()
	callback := b.onShutdown
	b.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// MessageSent forwards completed deliveries to the OnMessageSent
// callback. Deliveries without topics or with an empty message are not
// forwarded.
func (b *Board) MessageSent(topics []string, message string) {
	if len(topics) == 0 || message == "" {
		return
	}

	b.callbackMu.RLock()
	callback := b.onMessageSent
	b.callbackMu.RUnlock()
	if callback != nil {
		callback(topics, message)
	}
}

// ConnectionLost forwards dropped connections to the OnConnectionLost
// callback. Losses without a cause are not forwarded.
func (b *Board) ConnectionLost(err error) {
	if err == nil {
		return
	}

	b.callbackMu.RLock()
	callback := b.onConnectionLost
	b.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// logInfo logs an info message if logger is set.
func (b *Board) logInfo(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}
