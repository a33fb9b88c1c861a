package chatclient

import (
	"time"

	"github.com/ashureev/caficafe-chat/internal/domain"
)

// ConnectionState records whether the chat service was last seen reachable.
type ConnectionState struct {
	Connected     bool
	LastCheckedAt time.Time
}

// Observer receives client state changes so a presentation layer can render
// them. Callbacks run synchronously on the goroutine that made the change and
// must not call back into the Client's send path.
type Observer interface {
	// OnMessage is called after a message is appended to the log.
	OnMessage(msg domain.Message)
	// OnConnectionChange is called after every connection state write.
	OnConnectionChange(state ConnectionState)
	// OnBusyChange is called when a send starts (true) and when the send
	// affordance becomes available again (false).
	OnBusyChange(busy bool)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Message          func(domain.Message)
	ConnectionChange func(ConnectionState)
	BusyChange       func(bool)
}

// OnMessage implements Observer.
func (f ObserverFuncs) OnMessage(msg domain.Message) {
	if f.Message != nil {
		f.Message(msg)
	}
}

// OnConnectionChange implements Observer.
func (f ObserverFuncs) OnConnectionChange(state ConnectionState) {
	if f.ConnectionChange != nil {
		f.ConnectionChange(state)
	}
}

// OnBusyChange implements Observer.
func (f ObserverFuncs) OnBusyChange(busy bool) {
	if f.BusyChange != nil {
		f.BusyChange(busy)
	}
}

var _ Observer = ObserverFuncs{}
