package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/bombastic-viewer/internal/input"
	"github.com/DoyleJ11/bombastic-viewer/pkg/wire"
)

const DefaultPushPort = 9000

// Retry bounds reconnection of the push channel. Attempts == 0 means a
// dropped channel stays down.
type Retry struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

var DefaultRetry = Retry{Attempts: 5, Base: 250 * time.Millisecond, Max: 5 * time.Second}

// Delay is the wait before the given attempt, starting at 1.
func (r Retry) Delay(attempt int) time.Duration {
	d := r.Base
	for i := 1; i < attempt && d < r.Max; i++ {
		d *= 2
	}
	return min(d, r.Max)
}

// PushURL builds the websocket address on the same host as the REST server.
func PushURL(server *url.URL, port int) string {
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(server.Hostname(), strconv.Itoa(port)), Path: "/"}
	if server.Scheme == "https" {
		u.Scheme = "wss"
	}
	return u.String()
}

// Push keeps one duplex connection open. The first outbound message binds
// the connection to the player's uid; inbound messages are player status
// objects carrying the frame; outbound actions are bare command strings.
type Push struct {
	api   API
	url   string
	uid   string
	retry Retry
	log   *zap.Logger

	state stateBox
	mu    sync.Mutex
	conn  *websocket.Conn
}

func NewPush(api API, wsURL, uid string, retry Retry, log *zap.Logger) *Push {
	if log == nil {
		log = zap.NewNop()
	}
	return &Push{api: api, url: wsURL, uid: uid, retry: retry, log: log}
}

func (p *Push) State() State { return p.state.load() }

func (p *Push) Initial(ctx context.Context) (string, error) {
	return p.api.ReadGlobalState(ctx)
}

func (p *Push) Run(ctx context.Context, events chan<- Event) error {
	attempt := 0
	for {
		bound, err := p.session(ctx, events, attempt > 0)
		if ctx.Err() != nil {
			return nil
		}
		if bound {
			attempt = 0
		}

		attempt++
		if attempt > p.retry.Attempts {
			return fmt.Errorf("%w: push channel closed: %v", ErrTransportUnavailable, err)
		}

		delay := p.retry.Delay(attempt)
		p.log.Warn("push channel lost, reconnecting",
			zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}

// session runs one connection to completion. bound reports whether the uid
// was delivered, i.e. the connection reached Ready.
func (p *Push) session(ctx context.Context, events chan<- Event, resync bool) (bool, error) {
	p.state.set(ctx, Connecting, events)
	defer p.state.set(ctx, Disconnected, events)

	conn, _, err := websocket.Dial(ctx, p.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", p.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	conn.SetReadLimit(1 << 20)

	if err := conn.Write(ctx, websocket.MessageText, []byte(p.uid)); err != nil {
		return false, fmt.Errorf("session bind: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.conn = nil
		p.mu.Unlock()
	}()

	p.state.set(ctx, Ready, events)
	p.log.Info("push channel ready", zap.String("url", p.url))
	if resync {
		emit(ctx, events, Event{Kind: EventResync})
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return true, errors.New("closed by server")
			}
			return true, err
		}

		if notice, ok := serverNotice(data); ok {
			p.log.Warn("push channel notice", zap.String("notice", notice))
			if !emit(ctx, events, Event{Kind: EventNotice, Notice: notice}) {
				return true, ctx.Err()
			}
			continue
		}

		var status wire.PlayerStatus
		if err := json.Unmarshal(data, &status); err != nil || status.Game == "" {
			p.log.Debug("ignoring push message", zap.ByteString("data", data), zap.Error(err))
			continue
		}
		if !emit(ctx, events, Event{Kind: EventFrame, Frame: status.Game, Status: &status}) {
			return true, ctx.Err()
		}
	}
}

// serverNotice recognises text the server sends instead of a status object,
// e.g. "Invalid player UID" after a bind with a stale uid. It may arrive bare
// or as a JSON string.
func serverNotice(data []byte) (string, bool) {
	text := strings.TrimSpace(string(data))
	if text == "" || strings.HasPrefix(text, "{") {
		return "", false
	}
	var quoted string
	if err := json.Unmarshal([]byte(text), &quoted); err == nil {
		text = quoted
	}
	return text, text != ""
}

func (p *Push) Send(ctx context.Context, action input.Action) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil || p.State() != Ready {
		return ErrTransportUnavailable
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(action)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return nil
}
