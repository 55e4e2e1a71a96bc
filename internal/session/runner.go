package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/bombastic-viewer/internal/frame"
	"github.com/DoyleJ11/bombastic-viewer/internal/framestore"
	"github.com/DoyleJ11/bombastic-viewer/internal/input"
	"github.com/DoyleJ11/bombastic-viewer/internal/render"
	"github.com/DoyleJ11/bombastic-viewer/internal/transport"
	"github.com/DoyleJ11/bombastic-viewer/pkg/wire"
)

// Runner drives one viewing session: acquire a uid, paint the first full
// frame, then apply frame diffs while forwarding key presses.
type Runner struct {
	Bootstrap Bootstrap
	// NewTransport builds the transport once the uid is known.
	NewTransport func(uid string) transport.Transport
	Store        *framestore.Store
	Surface      render.Surface
	Keys         <-chan input.KeyCode
	Log          *zap.Logger
	// OnReady, if set, observes the uid once bootstrap succeeds.
	OnReady func(uid string)

	tr     transport.Transport
	status render.Status
}

func (r *Runner) Run(ctx context.Context) error {
	log := logger(r.Log)

	uid, err := r.Bootstrap.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if r.OnReady != nil {
		r.OnReady(uid)
	}
	log = log.With(zap.String("uid", uid))
	r.Log = log

	r.tr = r.NewTransport(uid)
	if err := r.resync(ctx); err != nil {
		return fmt.Errorf("initial frame: %w", err)
	}

	events := make(chan transport.Event, 16)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := r.tr.Run(gctx, events)
		if err != nil {
			// The viewer stays up showing the last board; the HUD says why.
			log.Error("transport stopped", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		return r.frameLoop(gctx, events)
	})

	if r.Keys != nil {
		ch := input.NewChannel(r.tr, log)
		g.Go(func() error {
			return ch.Run(gctx, r.Keys)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// frameLoop is the only goroutine that touches the store.
func (r *Runner) frameLoop(ctx context.Context, events <-chan transport.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if err := r.handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) handle(ctx context.Context, ev transport.Event) error {
	switch ev.Kind {
	case transport.EventState:
		r.status.State = ev.State
		r.Surface.SetStatus(r.status)

	case transport.EventResync:
		if err := r.resync(ctx); err != nil {
			r.Log.Warn("resync failed", zap.Error(err))
			return nil
		}

	case transport.EventNotice:
		r.status.Notice = ev.Notice
		r.Surface.SetStatus(r.status)

	case transport.EventFrame:
		r.status.Notice = ""
		r.applyFrame(ev.Frame, ev.Status)
	}
	return r.Surface.Flush()
}

func (r *Runner) applyFrame(raw string, status *wire.PlayerStatus) {
	f := frame.Parse(raw)
	changes, err := r.Store.Diff(f)
	if err != nil {
		if !errors.Is(err, frame.ErrShapeMismatch) {
			r.Log.Error("diff", zap.Error(err))
			return
		}
		r.Log.Warn("frame shape changed, repainting", zap.Error(err))
		r.repaint(f)
	} else {
		r.Surface.Apply(changes)
	}

	if status != nil {
		r.status.Player = status
	}
	r.Surface.SetStatus(r.status)
}

// resync fetches the full board, reseeds and repaints everything.
func (r *Runner) resync(ctx context.Context) error {
	raw, err := r.tr.Initial(ctx)
	if err != nil {
		return err
	}
	r.repaint(frame.Parse(raw))
	return r.Surface.Flush()
}

func (r *Runner) repaint(f frame.Frame) {
	r.Store.Seed(f)
	r.Surface.Reset(f.Shape())
	r.Surface.SetStatus(r.status)
	r.Surface.Apply(r.Store.Repaint())
}
