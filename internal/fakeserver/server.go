// Package fakeserver is a scripted stand-in for the game server. It serves
// whatever frame it was last given and records the actions it receives.
package fakeserver

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/DoyleJ11/bombastic-viewer/pkg/wire"
)

type Msg interface{ isServerMsg() }

type Publish struct{ Frame string }

type CreatePlayer struct {
	Name  string
	Reply chan wire.PlayerStatus
}

type GetPlayer struct {
	UID   string
	Reply chan lookup
}

type Act struct {
	UID    string
	Action string
	Reply  chan bool
}

type RemovePlayer struct {
	UID   string
	Reply chan bool
}

type Subscribe struct {
	ClientID string
	UID      string
	Outbox   chan wire.PlayerStatus
	Reply    chan bool
}

type Unsubscribe struct{ ClientID string }

type GetView struct{ Reply chan View }

// DropConnections ends every push subscription the way a server restart would.
type DropConnections struct{}

type Shutdown struct{}

func (Publish) isServerMsg()         {}
func (CreatePlayer) isServerMsg()    {}
func (GetPlayer) isServerMsg()       {}
func (Act) isServerMsg()             {}
func (RemovePlayer) isServerMsg()    {}
func (Subscribe) isServerMsg()       {}
func (Unsubscribe) isServerMsg()     {}
func (GetView) isServerMsg()         {}
func (DropConnections) isServerMsg() {}
func (Shutdown) isServerMsg()        {}

type lookup struct {
	Status wire.PlayerStatus
	OK     bool
}

// ActionRecord is one action the server accepted.
type ActionRecord struct {
	UID    string
	Action string
}

// View reflects the server's internal state for tests.
type View struct {
	Frame       string
	Players     int
	Created     int
	Deleted     int
	Subscribers int
	Actions     []ActionRecord
}

type subscriber struct {
	uid    string
	outbox chan wire.PlayerStatus
}

type Server struct {
	inbox   chan Msg
	frame   string
	players map[string]*wire.PlayerStatus
	subs    map[string]subscriber
	actions []ActionRecord
	created int
	deleted int
	ctx     context.Context
	cancel  context.CancelFunc
}

var validActions = map[string]bool{"BOMB": true, "UP": true, "DOWN": true, "LEFT": true, "RIGHT": true}

func New(parent context.Context, initialFrame string) *Server {
	ctx, cancel := context.WithCancel(parent)
	s := &Server{
		inbox:   make(chan Msg, 64),
		frame:   initialFrame,
		players: make(map[string]*wire.PlayerStatus),
		subs:    make(map[string]subscriber),
		ctx:     ctx,
		cancel:  cancel,
	}
	go s.loop()
	return s
}

func (s *Server) Inbox() chan<- Msg { return s.inbox }

func (s *Server) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Publish:
				s.frame = msg.Frame
				s.broadcast()

			case CreatePlayer:
				uid := strings.ReplaceAll(uuid.NewString(), "-", "")
				p := &wire.PlayerStatus{UID: uid, Name: msg.Name, Bomb: 1, Flame: 1}
				s.players[uid] = p
				s.created++
				msg.Reply <- s.status(p)

			case GetPlayer:
				p, ok := s.players[msg.UID]
				if !ok {
					msg.Reply <- lookup{}
					break
				}
				msg.Reply <- lookup{Status: s.status(p), OK: true}

			case Act:
				_, ok := s.players[msg.UID]
				if !ok || !validActions[msg.Action] {
					msg.Reply <- false
					break
				}
				s.actions = append(s.actions, ActionRecord{UID: msg.UID, Action: msg.Action})
				msg.Reply <- true

			case RemovePlayer:
				_, ok := s.players[msg.UID]
				delete(s.players, msg.UID)
				if ok {
					s.deleted++
				}
				msg.Reply <- ok

			case Subscribe:
				p, ok := s.players[msg.UID]
				if !ok {
					msg.Reply <- false
					break
				}
				s.subs[msg.ClientID] = subscriber{uid: msg.UID, outbox: msg.Outbox}
				msg.Reply <- true
				msg.Outbox <- s.status(p)

			case Unsubscribe:
				delete(s.subs, msg.ClientID)

			case GetView:
				msg.Reply <- View{
					Frame:       s.frame,
					Players:     len(s.players),
					Created:     s.created,
					Deleted:     s.deleted,
					Subscribers: len(s.subs),
					Actions:     append([]ActionRecord(nil), s.actions...),
				}

			case DropConnections:
				s.dropAll()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Server) status(p *wire.PlayerStatus) wire.PlayerStatus {
	out := *p
	out.Game = s.frame
	return out
}

func (s *Server) broadcast() {
	for id, sub := range s.subs {
		p, ok := s.players[sub.uid]
		if !ok {
			continue
		}
		select {
		case sub.outbox <- s.status(p):
		default:
			// Subscriber is slow/full - drop them.
			close(sub.outbox)
			delete(s.subs, id)
		}
	}
}

func (s *Server) dropAll() {
	for id, sub := range s.subs {
		close(sub.outbox)
		delete(s.subs, id)
	}
}

func (s *Server) shutdown() {
	s.dropAll()
	s.cancel()
}

// View is a synchronous read of the server state.
func (s *Server) View() View {
	reply := make(chan View, 1)
	s.inbox <- GetView{Reply: reply}
	return <-reply
}
