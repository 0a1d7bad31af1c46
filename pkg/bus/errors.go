package bus

import "errors"

var (
	// ErrInvalidMessageType is returned when a message is neither a command
	// nor an event. No dispatch is attempted.
	ErrInvalidMessageType = errors.New("message is neither a command nor an event")

	// ErrUnknownMessageType is returned when no handler is registered for a
	// command. Events without handlers are not an error.
	ErrUnknownMessageType = errors.New("no handler registered for command")

	// ErrCommandTimeout is returned when a command handler exceeds its
	// deadline. Retrying is a caller decision; the bus never retries.
	ErrCommandTimeout = errors.New("command handler exceeded its deadline")
)
