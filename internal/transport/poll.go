package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bombastic-viewer/internal/input"
)

const DefaultPollInterval = 100 * time.Millisecond

// View selects which board the poll transport reads each tick.
type View string

const (
	ViewGlobal View = "global"
	ViewPlayer View = "player"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewGlobal, ViewPlayer:
		return View(s), nil
	default:
		return "", fmt.Errorf("unknown poll view %q", s)
	}
}

// Poll reads the board on a fixed period. Reads are not serialized: a slow
// read may still be in flight when the next tick fires, and results are
// delivered in the order they complete, so a stale frame can land after a
// fresher one.
type Poll struct {
	api      API
	uid      string
	interval time.Duration
	view     View
	log      *zap.Logger

	state  stateBox
	flight sync.WaitGroup
}

func NewPoll(api API, uid string, interval time.Duration, view View, log *zap.Logger) *Poll {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if view == "" {
		view = ViewPlayer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poll{api: api, uid: uid, interval: interval, view: view, log: log}
}

func (p *Poll) State() State { return p.state.load() }

func (p *Poll) Initial(ctx context.Context) (string, error) {
	return p.api.ReadGlobalState(ctx)
}

func (p *Poll) Run(ctx context.Context, events chan<- Event) error {
	p.state.set(ctx, Ready, events)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.flight.Wait()
			p.state.v.Store(int32(Disconnected))
			return nil
		case <-ticker.C:
			p.flight.Add(1)
			go func() {
				defer p.flight.Done()
				p.read(ctx, events)
			}()
		}
	}
}

func (p *Poll) read(ctx context.Context, events chan<- Event) {
	if p.view == ViewGlobal {
		raw, err := p.api.ReadGlobalState(ctx)
		if err != nil {
			p.dropped(err)
			return
		}
		emit(ctx, events, Event{Kind: EventFrame, Frame: raw})
		return
	}

	status, err := p.api.ReadPlayerState(ctx, p.uid)
	if err != nil {
		p.dropped(err)
		return
	}
	emit(ctx, events, Event{Kind: EventFrame, Frame: status.Game, Status: &status})
}

func (p *Poll) dropped(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	// Next tick simply tries again.
	p.log.Debug("poll read failed", zap.Error(err))
}

func (p *Poll) Send(ctx context.Context, action input.Action) error {
	if p.State() != Ready {
		return ErrTransportUnavailable
	}
	go func() {
		if err := p.api.SendAction(ctx, p.uid, string(action)); err != nil {
			p.log.Debug("send action failed", zap.String("action", string(action)), zap.Error(err))
		}
	}()
	return nil
}
