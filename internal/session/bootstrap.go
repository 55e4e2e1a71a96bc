package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bombastic-viewer/pkg/wire"
)

const uidParam = "uid"

// Joiner is the join call of the server surface.
type Joiner interface {
	CreatePlayer(ctx context.Context, name string) (wire.PlayerStatus, error)
}

// Bootstrap yields the player uid used for the whole session.
type Bootstrap interface {
	Acquire(ctx context.Context) (string, error)
}

// AlwaysCreate joins as a new player every time; nothing is reused.
type AlwaysCreate struct {
	Joiner Joiner
	Name   string
	Log    *zap.Logger
}

func (b AlwaysCreate) Acquire(ctx context.Context) (string, error) {
	p, err := b.Joiner.CreatePlayer(ctx, b.Name)
	if err != nil {
		return "", err
	}
	logger(b.Log).Info("joined as new player", zap.String("uid", p.UID))
	return p.UID, nil
}

// ResumeFromAddress reuses the uid embedded in the location. Without one it
// joins and rewrites the location so the next start resumes this player.
type ResumeFromAddress struct {
	Joiner   Joiner
	Name     string
	Location Location
	Log      *zap.Logger
}

func (b ResumeFromAddress) Acquire(ctx context.Context) (string, error) {
	log := logger(b.Log)

	u, err := b.Location.Current()
	if err != nil {
		return "", err
	}
	if uid := u.Query().Get(uidParam); uid != "" {
		log.Info("resuming player", zap.String("uid", uid))
		return uid, nil
	}

	p, err := b.Joiner.CreatePlayer(ctx, b.Name)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set(uidParam, p.UID)
	u.RawQuery = q.Encode()
	if err := b.Location.Replace(u); err != nil {
		return "", fmt.Errorf("remember uid: %w", err)
	}
	log.Info("joined as new player", zap.String("uid", p.UID), zap.String("address", u.String()))
	return p.UID, nil
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
