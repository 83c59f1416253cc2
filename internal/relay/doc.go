// Package relay multiplexes a board's peripherals over one MQTT broker
// connection.
//
// Many logical devices live on one physical board, but the board holds a
// single broker connection. This package owns that connection: it queues
// network operations from any goroutine, executes them in order on one
// background worker, and fans incoming traffic back out to registered
// listeners.
//
// # Architecture
//
//	┌──────────────┐  Publish/Subscribe   ┌─────────────────┐
//	│   devices,   │─────────────────────►│  relay.Service  │   MQTT
//	│    board     │                      │   (this pkg)    │◄────────► Broker
//	│              │◄─────────────────────│                 │
//	└──────────────┘  listener callbacks  └─────────────────┘
//
// Two goroutines do all the work:
//
//   - The network worker executes queued operations (connect, publish,
//     subscribe, unsubscribe, disconnect) strictly in submission order.
//   - The event dispatcher delivers MessageReceived, MessageSent, and
//     ConnectionLost callbacks to listeners, one event at a time, so a
//     slow listener never stalls the network.
//
// # Lazy Connection
//
// Callers never connect explicitly in the common path. The first queued
// operation that needs the network triggers exactly one connection
// attempt; on failure the operation is dropped and logged, the state
// reverts to Disconnected, and the next operation tries again. There is
// no background reconnect loop.
//
// # Key Responsibilities
//
//   - Serialise all broker I/O through a single worker
//   - Track the connection state machine (disconnected/connecting/connected)
//   - Fan out received messages to every listener, in registration order
//   - Report completed deliveries and dropped connections
//
// # Thread Safety
//
// All exported methods are safe for concurrent use from multiple
// goroutines.
package relay
