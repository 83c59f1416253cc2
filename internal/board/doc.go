// Package board models the physical board whose peripherals share the
// relay's broker connection.
//
// A Board carries the identity that scopes every topic the relay touches:
// the board identifier appears in the internal, events, and commands
// topics, and the platform label travels in every payload. The board also
// owns the shutdown handshake: Shutdown publishes a bare shutdown token on
// the board's internal topic, and any relay on that topic (including this
// one) learns the board is going away.
//
// # Topics
//
// Each board owns three topics, derived from its identifier:
//
//	boardlink/internal/<board>        board lifecycle (shutdown token, LWT)
//	boardlink/boards/<board>/events   board -> applications
//	boardlink/boards/<board>/commands applications -> board
//
// # Listener Role
//
// Board implements the relay's Listener interface. It watches its own
// internal topic for the shutdown token, forwards completed deliveries to
// the OnMessageSent callback, and forwards dropped connections to
// OnConnectionLost when a cause is known.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use from multiple
// goroutines.
package board
