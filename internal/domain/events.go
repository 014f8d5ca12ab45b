package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventPipeOpened      EventType = "PipeOpened"
	EventPipeClosed      EventType = "PipeClosed"
	EventPipeReleased    EventType = "PipeReleased"
	EventWindowOpened    EventType = "WindowOpened"
	EventWindowClosed    EventType = "WindowClosed"
	EventSearchPerformed EventType = "SearchPerformed"
	EventError           EventType = "Error"
	EventConfigLoaded    EventType = "ConfigLoaded"
	EventConfigSaved     EventType = "ConfigSaved"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// PipeOpenedEvent is emitted when a producer opens a new pipe
type PipeOpenedEvent struct {
	Handle PipeHandle
	Title  string
}

func (e PipeOpenedEvent) Type() EventType { return EventPipeOpened }

// PipeClosedEvent is emitted once the last chunk of a closed pipe was applied
type PipeClosedEvent struct {
	Handle PipeHandle
	Size   int
}

func (e PipeClosedEvent) Type() EventType { return EventPipeClosed }

// PipeReleasedEvent is emitted when a pipe's window went away and its sink was dropped
type PipeReleasedEvent struct {
	Handle    PipeHandle
	Discarded int // queued bytes that were never applied
}

func (e PipeReleasedEvent) Type() EventType { return EventPipeReleased }

// WindowOpenedEvent is emitted when an auxiliary window is constructed
type WindowOpenedEvent struct {
	Name string
}

func (e WindowOpenedEvent) Type() EventType { return EventWindowOpened }

// WindowClosedEvent is emitted when an auxiliary window is unregistered
type WindowClosedEvent struct {
	Name string
}

func (e WindowClosedEvent) Type() EventType { return EventWindowClosed }

// SearchPerformedEvent is emitted after every search attempt
type SearchPerformedEvent struct {
	Pattern  string
	Backward bool
	Found    bool
	Offset   int
	Kind     ErrorKind
}

func (e SearchPerformedEvent) Type() EventType { return EventSearchPerformed }

// ErrorEvent is emitted when an error occurs
type ErrorEvent struct {
	Message string
	Err     error
}

func (e ErrorEvent) Type() EventType { return EventError }

// ConfigLoadedEvent is emitted when configuration is loaded
type ConfigLoadedEvent struct {
	Path string
}

func (e ConfigLoadedEvent) Type() EventType { return EventConfigLoaded }

// ConfigSavedEvent is emitted when configuration is saved
type ConfigSavedEvent struct {
	Path string
}

func (e ConfigSavedEvent) Type() EventType { return EventConfigSaved }
