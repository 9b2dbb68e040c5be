package push

import (
	"context"

	"chessarena/pkg/arenadto"
)

// State is the connection state of the push channel.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

type EventCallback func(ev *arenadto.EventEnvelope)

type StateCallback func(state State)

// HeaderProvider injects headers into the websocket handshake.
type HeaderProvider func() map[string]string

// Channel is the push subscription surface the session consumes.
type Channel interface {
	Join(ctx context.Context, gameID, playerID string) error
	OnEvent(cb EventCallback) int
	RemoveEventCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	Leave(ctx context.Context) error
}
