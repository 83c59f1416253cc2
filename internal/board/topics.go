package board

import "fmt"

// Topic prefix for all boardlink traffic.
const topicPrefix = "boardlink"

// Topics provides centralised topic construction for board-scoped
// communication.
//
// Usage:
//
//	topic := board.Topics{}.Events("PiOne")
//	// "boardlink/boards/PiOne/events"
type Topics struct{}

// Internal returns the board-lifecycle topic. The shutdown token and the
// Last Will message travel here.
func (Topics) Internal(identifier string) string {
	return fmt.Sprintf("%s/internal/%s", topicPrefix, identifier)
}

// Events returns the board-to-applications topic. Device registrations
// and peripheral events are published here.
func (Topics) Events(identifier string) string {
	return fmt.Sprintf("%s/boards/%s/events", topicPrefix, identifier)
}

// Commands returns the applications-to-board topic. Remote pin commands
// and sensor requests arrive here.
func (Topics) Commands(identifier string) string {
	return fmt.Sprintf("%s/boards/%s/commands", topicPrefix, identifier)
}

// AllEvents returns a wildcard matching every board's events topic.
func (Topics) AllEvents() string {
	return topicPrefix + "/boards/+/events"
}

// AllInternal returns a wildcard matching every board's internal topic.
func (Topics) AllInternal() string {
	return topicPrefix + "/internal/+"
}
