package domain

// Message is anything the bus can dispatch. A message is either a Command
// (a single-recipient intent) or an Event (a broadcast fact). The message
// name is the routing key; handlers are registered against it explicitly
// at startup.
type Message interface {
	MessageName() string
}

// Command represents an intention to change the system state.
// Exactly one handler is registered per command name.
type Command interface {
	Message
	isCommand()
}

// Event represents a fact that has already happened.
// Zero or more handlers may be registered per event name.
type Event interface {
	Message
	isEvent()
}

// CommandMarker marks a struct as a command. Embed it in concrete commands.
type CommandMarker struct{}

func (CommandMarker) isCommand() {}

// EventMarker marks a struct as an event. Embed it in concrete events.
type EventMarker struct{}

func (EventMarker) isEvent() {}
