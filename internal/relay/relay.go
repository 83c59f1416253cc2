package relay

import (
	"fmt"
	"sync"
)

// ConnState is the broker connection state.
//
// Transitions are explicit: Disconnected -> Connecting -> Connected on a
// successful dial, Connecting -> Disconnected on a failed one, and any
// state -> Disconnected when the connection drops or is closed.
type ConnState int

// Connection states.
const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// String returns the lowercase state name.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// BrokerClient is the transport capability the relay drives.
// This allows mocking in tests and flexibility in implementation.
// It is satisfied by *mqtt.Client.
type BrokerClient interface {
	// Connect dials the broker. Connecting while connected is a no-op.
	Connect() error

	// Disconnect closes the connection gracefully. Never an error when
	// already disconnected.
	Disconnect() error

	// Publish sends a message and blocks until delivery completes to the
	// level the QoS requires.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers interest in a topic pattern.
	Subscribe(topic string, qos byte) error

	// Unsubscribe removes interest in a topic pattern.
	Unsubscribe(topic string) error
}

// Logger is the structured logging interface used by the relay.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Options holds configuration for creating a relay service.
type Options struct {
	// Client is the broker transport. Required.
	Client BrokerClient

	// DefaultQoS applies to operations that don't specify a QoS level.
	DefaultQoS byte

	// Logger is optional structured logger.
	Logger Logger
}

// Service multiplexes all of a board's peripherals over one broker
// connection.
//
// Network operations are accepted from any goroutine, queued, and executed
// one at a time by a single background worker in submission order. The
// worker dials the broker lazily: an operation that needs the network
// triggers exactly one connection attempt when disconnected. Event
// delivery to listeners runs on a second goroutine so a slow listener can
// never stall the network.
//
// Thread Safety: All methods are safe for concurrent use.
type Service struct {
	client BrokerClient
	qos    byte

	// Connection state machine.
	state   ConnState
	stateMu sync.RWMutex

	// Pending network operations, executed in FIFO order.
	ops    []op
	opsMu  sync.Mutex
	opWake chan struct{}

	// Pending listener events, delivered in FIFO order.
	events    []event
	eventsMu  sync.Mutex
	eventWake chan struct{}

	// Registered listeners. Duplicates are kept and called once per
	// registration, in registration order.
	listeners   []Listener
	listenersMu sync.RWMutex

	// Shutdown coordination.
	done          chan struct{}
	workerStopped chan struct{}
	stopOnce      sync.Once
	startOnce     sync.Once
	wg            sync.WaitGroup

	logger Logger
}

// New creates a relay service. Call Start to begin processing operations.
func New(opts Options) (*Service, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("broker client is required")
	}
	if opts.DefaultQoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	return &Service{
		client:        opts.Client,
		qos:           opts.DefaultQoS,
		state:         StateDisconnected,
		opWake:        make(chan struct{}, 1),
		eventWake:     make(chan struct{}, 1),
		done:          make(chan struct{}),
		workerStopped: make(chan struct{}),
		logger:        opts.Logger,
	}, nil
}

// Start launches the network worker and the event dispatcher.
// Starting twice is a no-op.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(2)
		go s.networkWorker()
		go s.eventDispatcher()
	})
}

// Close stops the relay.
//
// Operations already queued are still executed, the broker connection is
// closed if open, and queued events are delivered before the dispatcher
// exits. Operations submitted after Close return ErrClosed. Closing twice
// is a no-op.
func (s *Service) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

// State returns the current connection state.
func (s *Service) State() ConnState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// IsConnected reports whether the relay considers the broker connection up.
func (s *Service) IsConnected() bool {
	return s.State() == StateConnected
}

// Connect queues a connection attempt. Connecting while connected is a
// no-op when the operation executes.
func (s *Service) Connect() error {
	return s.enqueue(op{kind: opConnect})
}

// Disconnect queues a graceful disconnect. Disconnecting while
// disconnected is a no-op when the operation executes.
func (s *Service) Disconnect() error {
	return s.enqueue(op{kind: opDisconnect})
}

// Publish queues a message for the given topic at the default QoS level.
//
// The call returns as soon as the operation is queued. If the relay is
// disconnected when the operation executes, it first triggers exactly one
// connection attempt; on connection failure the message is dropped and
// logged. Successful delivery is reported to listeners as a MessageSent
// event.
func (s *Service) Publish(topic, message string) error {
	return s.PublishQoS(topic, message, s.qos)
}

// PublishQoS queues a message with an explicit QoS level.
func (s *Service) PublishQoS(topic, message string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return s.enqueue(op{kind: opPublish, topic: topic, message: message, qos: qos})
}

// Subscribe queues a subscription to the given topic at the default QoS
// level, connecting lazily like Publish.
func (s *Service) Subscribe(topic string) error {
	return s.SubscribeQoS(topic, s.qos)
}

// SubscribeQoS queues a subscription with an explicit QoS level.
func (s *Service) SubscribeQoS(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return s.enqueue(op{kind: opSubscribe, topic: topic, qos: qos})
}

// Unsubscribe queues removal of a subscription, connecting lazily like
// Publish.
func (s *Service) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	return s.enqueue(op{kind: opUnsubscribe, topic: topic})
}

// HandleMessage feeds a received broker message into the relay. It is
// wired to the transport's message callback and fans the message out to
// all listeners via the event dispatcher.
func (s *Service) HandleMessage(topic, message string) {
	s.emit(event{kind: eventMessageReceived, topic: topic, message: message})
}

// HandleConnectionLost feeds a dropped-connection signal into the relay.
// The state reverts to Disconnected immediately; no reconnect is attempted
// until the next queued operation needs the network.
func (s *Service) HandleConnectionLost(err error) {
	s.setState(StateDisconnected)
	s.logWarn("broker connection lost", "error", err)
	s.emit(event{kind: eventConnectionLost, err: err})
}

// setState updates the connection state.
func (s *Service) setState(state ConnState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

// logDebug logs a debug message if logger is set.
func (s *Service) logDebug(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

// logWarn logs a warning message if logger is set.
func (s *Service) logWarn(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (s *Service) logError(msg string, err error) {
	if s.logger != nil {
		s.logger.Error(msg, "error", err)
	}
}
