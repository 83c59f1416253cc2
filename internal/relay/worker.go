package relay

// maxQoS is the maximum QoS level supported.
const maxQoS = 2

// opKind identifies a queued network operation.
type opKind int

const (
	opConnect opKind = iota
	opDisconnect
	opPublish
	opSubscribe
	opUnsubscribe
)

// op is one queued network operation. QoS is resolved at submission time
// so the worker never consults configuration.
type op struct {
	kind    opKind
	topic   string
	message string
	qos     byte
}

// enqueue appends an operation to the queue and wakes the worker.
// The queue is unbounded so submission never blocks a caller.
func (s *Service) enqueue(o op) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	s.opsMu.Lock()
	s.ops = append(s.ops, o)
	s.opsMu.Unlock()

	select {
	case s.opWake <- struct{}{}:
	default:
	}

	return nil
}

// dequeue pops the oldest queued operation.
func (s *Service) dequeue() (op, bool) {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	if len(s.ops) == 0 {
		return op{}, false
	}

	o := s.ops[0]
	s.ops = s.ops[1:]
	return o, true
}

// networkWorker executes queued operations one at a time in submission
// order. It is the only goroutine that touches the broker client's
// connect/publish/subscribe paths, which is what keeps operation ordering
// and the lazy-connect policy race-free.
func (s *Service) networkWorker() {
	defer s.wg.Done()
	defer close(s.workerStopped)

	for {
		select {
		case <-s.done:
			// Execute what was queued before Close, then leave the
			// broker cleanly.
			s.drainOps()
			s.doDisconnect()
			return
		case <-s.opWake:
			s.drainOps()
		}
	}
}

// drainOps executes queued operations until the queue is empty.
func (s *Service) drainOps() {
	for {
		o, ok := s.dequeue()
		if !ok {
			return
		}
		s.execute(o)
	}
}

// execute runs a single operation. Runs on the network worker only.
func (s *Service) execute(o op) {
	switch o.kind {
	case opConnect:
		s.doConnect()

	case opDisconnect:
		s.doDisconnect()

	case opPublish:
		if !s.ensureConnected() {
			s.logWarn("dropping publish, broker unreachable", "topic", o.topic)
			return
		}
		if err := s.client.Publish(o.topic, []byte(o.message), o.qos, false); err != nil {
			s.logError("publish failed", err)
			return
		}
		s.emit(event{kind: eventMessageSent, topics: []string{o.topic}, message: o.message})

	case opSubscribe:
		if !s.ensureConnected() {
			s.logWarn("dropping subscribe, broker unreachable", "topic", o.topic)
			return
		}
		if err := s.client.Subscribe(o.topic, o.qos); err != nil {
			s.logError("subscribe failed", err)
		}

	case opUnsubscribe:
		if !s.ensureConnected() {
			s.logWarn("dropping unsubscribe, broker unreachable", "topic", o.topic)
			return
		}
		if err := s.client.Unsubscribe(o.topic); err != nil {
			s.logError("unsubscribe failed", err)
		}
	}
}

// ensureConnected makes at most one connection attempt when the relay is
// disconnected. It returns false when the broker stayed unreachable, in
// which case the triggering operation is dropped; the next operation will
// try again.
func (s *Service) ensureConnected() bool {
	if s.IsConnected() {
		return true
	}
	return s.doConnect() == nil
}

// doConnect dials the broker and advances the state machine. Connecting
// while connected is a no-op.
func (s *Service) doConnect() error {
	s.stateMu.Lock()
	if s.state == StateConnected {
		s.stateMu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.stateMu.Unlock()

	if err := s.client.Connect(); err != nil {
		s.setState(StateDisconnected)
		s.logError("broker connection failed", err)
		return err
	}

	s.setState(StateConnected)
	s.logDebug("broker connection established")
	return nil
}

// doDisconnect closes the broker connection and resets the state machine.
// Disconnecting while disconnected is a no-op.
func (s *Service) doDisconnect() {
	s.stateMu.Lock()
	if s.state == StateDisconnected {
		s.stateMu.Unlock()
		return
	}
	s.stateMu.Unlock()

	if err := s.client.Disconnect(); err != nil {
		s.logError("broker disconnect failed", err)
	}

	s.setState(StateDisconnected)
	s.logDebug("broker connection closed")
}
