package input

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type Action string

const (
	ActionBomb  Action = "BOMB"
	ActionUp    Action = "UP"
	ActionDown  Action = "DOWN"
	ActionLeft  Action = "LEFT"
	ActionRight Action = "RIGHT"
)

// KeyCode follows the DOM keyCode numbering.
type KeyCode int

const (
	KeySpace KeyCode = 32
	KeyLeft  KeyCode = 37
	KeyUp    KeyCode = 38
	KeyRight KeyCode = 39
	KeyDown  KeyCode = 40
)

var keyActions = map[KeyCode]Action{
	KeySpace: ActionBomb,
	KeyLeft:  ActionLeft,
	KeyUp:    ActionUp,
	KeyRight: ActionRight,
	KeyDown:  ActionDown,
}

// Map returns the action for a key. handled is true only for mapped keys;
// those suppress the key's default handling, every other key keeps it.
func Map(code KeyCode) (action Action, handled bool) {
	action, handled = keyActions[code]
	return action, handled
}

type Sender interface {
	Send(ctx context.Context, action Action) error
}

// Channel forwards one action per mapped key event. Held keys repeat; rate
// limiting is the server's job.
type Channel struct {
	sender Sender
	log    *zap.Logger
}

func NewChannel(sender Sender, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{sender: sender, log: log}
}

// Handle reports whether the key was consumed.
func (c *Channel) Handle(ctx context.Context, code KeyCode) bool {
	action, ok := Map(code)
	if !ok {
		return false
	}
	if err := c.sender.Send(ctx, action); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Debug("action dropped", zap.String("action", string(action)), zap.Error(err))
	}
	return true
}

// Run feeds key events from keys until the channel closes or ctx ends.
func (c *Channel) Run(ctx context.Context, keys <-chan KeyCode) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case code, ok := <-keys:
			if !ok {
				return nil
			}
			c.Handle(ctx, code)
		}
	}
}
