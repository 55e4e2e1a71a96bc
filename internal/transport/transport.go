package transport

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/DoyleJ11/bombastic-viewer/internal/input"
	"github.com/DoyleJ11/bombastic-viewer/pkg/wire"
)

var ErrTransportUnavailable = errors.New("transport not ready")

type State int32

const (
	Disconnected State = iota
	Connecting
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventFrame EventKind = iota
	EventState
	// EventResync asks the consumer to refetch a full frame and reseed.
	EventResync
	// EventNotice carries a plain-text message from the server, such as a
	// rejected session bind.
	EventNotice
)

// Event is what both transport variants deliver to the frame loop.
type Event struct {
	Kind   EventKind
	Frame  string
	Status *wire.PlayerStatus // nil when the source carries no player stats
	State  State
	Notice string
}

// Transport delivers frames and carries actions back to the server.
type Transport interface {
	// Initial fetches the full board used to seed the frame store.
	Initial(ctx context.Context) (string, error)
	// Run delivers events until ctx ends or the transport gives up.
	Run(ctx context.Context, events chan<- Event) error
	// Send is fire-and-forget. It fails with ErrTransportUnavailable unless Ready.
	Send(ctx context.Context, action input.Action) error
	State() State
}

// API is the part of the server REST surface the transports use.
type API interface {
	ReadGlobalState(ctx context.Context) (string, error)
	ReadPlayerState(ctx context.Context, uid string) (wire.PlayerStatus, error)
	SendAction(ctx context.Context, uid string, action string) error
}

type stateBox struct{ v atomic.Int32 }

func (b *stateBox) load() State { return State(b.v.Load()) }

// set stores s and reports the transition on events. It never blocks past ctx.
func (b *stateBox) set(ctx context.Context, s State, events chan<- Event) {
	if State(b.v.Swap(int32(s))) == s {
		return
	}
	emit(ctx, events, Event{Kind: EventState, State: s})
}

func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
