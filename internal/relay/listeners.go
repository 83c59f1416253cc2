package relay

// Listener receives relay lifecycle and traffic events.
//
// Callbacks are invoked on the relay's event dispatcher goroutine, one
// event at a time, in the order events occurred. Within one event,
// listeners are called in registration order. A listener registered twice
// is called twice. Callbacks should return promptly; a slow listener
// delays every listener behind it but never the network worker.
type Listener interface {
	// MessageReceived is called for every message arriving on any
	// subscribed topic.
	MessageReceived(topic, message string)

	// MessageSent is called after a published message completes delivery
	// to the level its QoS requires.
	MessageSent(topics []string, message string)

	// ConnectionLost is called when the broker connection drops
	// unexpectedly. err describes the cause and may be nil.
	ConnectionLost(err error)
}

// eventKind identifies a queued listener event.
type eventKind int

const (
	eventMessageReceived eventKind = iota
	eventMessageSent
	eventConnectionLost
)

// event is one queued listener notification.
type event struct {
	kind    eventKind
	topic   string
	topics  []string
	message string
	err     error
}

// AddListener registers a listener for relay events.
//
// The same listener may be registered more than once; it will be invoked
// once per registration.
func (s *Service) AddListener(l Listener) {
	if l == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// RemoveListener removes the first registration of the given listener.
// Remaining registrations of the same listener keep receiving events.
func (s *Service) RemoveListener(l Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	for i, registered := range s.listeners {
		if registered == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listener registrations.
func (s *Service) ListenerCount() int {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	return len(s.listeners)
}

// emit appends an event to the queue and wakes the dispatcher.
func (s *Service) emit(e event) {
	s.eventsMu.Lock()
	s.events = append(s.events, e)
	s.eventsMu.Unlock()

	select {
	case s.eventWake <- struct{}{}:
	default:
	}
}

// dequeueEvent pops the oldest queued event.
func (s *Service) dequeueEvent() (event, bool) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()

	if len(s.events) == 0 {
		return event{}, false
	}

	e := s.events[0]
	s.events = s.events[1:]
	return e, true
}

// eventDispatcher delivers queued events to listeners, one event at a
// time. It outlives the network worker so events emitted during the final
// operation drain are still delivered.
func (s *Service) eventDispatcher() {
	defer s.wg.Done()

	for {
		select {
		case <-s.workerStopped:
			s.drainEvents()
			return
		case <-s.eventWake:
			s.drainEvents()
		}
	}
}

// drainEvents delivers queued events until the queue is empty.
func (s *Service) drainEvents() {
	for {
		e, ok := s.dequeueEvent()
		if !ok {
			return
		}
		s.dispatch(e)
	}
}

// dispatch delivers one event to every registered listener in order.
func (s *Service) dispatch(e event) {
	s.listenersMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		s.notify(l, e)
	}
}

// notify invokes one listener callback with panic recovery, so a broken
// listener cannot take down event delivery for the rest.
func (s *Service) notify(l Listener, e event) {
	defer func() {
		if r := recover(); r != nil {
			s.logWarn("listener panic recovered", "panic", r)
		}
	}()

	switch e.kind {
	case eventMessageReceived:
		l.MessageReceived(e.topic, e.message)
	case eventMessageSent:
		l.MessageSent(e.topics, e.message)
	case eventConnectionLost:
		l.ConnectionLost(e.err)
	}
}
