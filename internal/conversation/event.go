package conversation

type EventKind int

const (
	EventOther EventKind = iota
	EventCommand
	EventText
	EventPhoto
	EventCallback
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	case EventCallback:
		return "callback"
	default:
		return "other"
	}
}

// Event is one inbound interaction, already stripped of transport details.
type Event struct {
	Kind   EventKind
	UserID int64
	ChatID int64
	// MessageID is the message a callback button belongs to.
	MessageID int

	Command      string
	Text         string
	PhotoFileID  string
	CallbackID   string
	CallbackData string
}

// Preempts reports whether the event abandons whatever the user was doing.
func (e Event) Preempts() bool {
	switch e.Kind {
	case EventCommand:
		return e.Command == CommandStart
	case EventText:
		return e.Text == StartButton
	}
	return false
}
