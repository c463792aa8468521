package agreement

// EventSink receives events after a transition has been applied. It is never
// consulted to decide whether a transition happens.
type EventSink interface {
	Emit(ev Event)
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}
