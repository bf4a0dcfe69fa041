package appcmd

import "github.com/bwmarrin/discordgo"

// EventType names a diagnostic event.
type EventType string

const (
	// EventGuildRegisterFail is published when a guild rejects its commands.
	EventGuildRegisterFail EventType = "guild_command_register_fail"
	// EventSynced is published after every sync cycle.
	EventSynced EventType = "commands_synced"
)

// Event is a diagnostic event.
type Event struct {
	Type    EventType
	GuildID string
	Payload []*discordgo.ApplicationCommand
	Err     error
	Report  *SyncReport
}

// EventBus is a buffered event channel. Publishing never blocks: events are
// dropped while the buffer is full.
type EventBus struct {
	ch chan Event
}

// NewEventBus returns a bus holding up to size undelivered events.
func NewEventBus(size int) *EventBus {
	if size < 1 {
		size = 1
	}
	return &EventBus{ch: make(chan Event, size)}
}

// Publish enqueues evt unless the buffer is full.
func (b *EventBus) Publish(evt Event) bool {
	select {
	case b.ch <- evt:
		return true
	default:
		return false
	}
}

// Events returns the receive side of the bus.
func (b *EventBus) Events() <-chan Event {
	return b.ch
}
