package bus

import "fmt"

// Registry is the handler table the composition root builds once and hands
// to the bus at construction: one handler per command name, zero or more
// per event name.
type Registry struct {
	commands map[string]CommandHandler
	events   map[string][]EventHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]CommandHandler),
		events:   make(map[string][]EventHandler),
	}
}

// AddCommand registers the single handler for a command name. Registering a
// name twice is a wiring bug and panics.
func (r *Registry) AddCommand(name string, handler CommandHandler) {
	if _, exists := r.commands[name]; exists {
		panic(fmt.Sprintf("handler already registered for command %q", name))
	}
	r.commands[name] = handler
}

// AddEvent appends handlers for an event name.
func (r *Registry) AddEvent(name string, handlers ...EventHandler) {
	r.events[name] = append(r.events[name], handlers...)
}

func (r *Registry) command(name string) (CommandHandler, bool) {
	handler, ok := r.commands[name]
	return handler, ok
}

func (r *Registry) eventHandlers(name string) []EventHandler {
	return r.events[name]
}
