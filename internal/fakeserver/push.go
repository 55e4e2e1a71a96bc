package fakeserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/bombastic-viewer/pkg/wire"
)

// InvalidUIDReply is the plain-text answer to a bind naming no player.
const InvalidUIDReply = "Invalid player UID"

// PushHandler serves the duplex channel: the first message binds the
// connection to a uid, every later message is a bare action.
func PushHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan wire.PlayerStatus, 8)
		clientID := uuid.NewString()

		uid, ok := bind(r.Context(), conn, s, clientID, out)
		if !ok {
			return
		}
		defer func() { s.Inbox() <- Unsubscribe{ClientID: clientID} }()

		// Writer goroutine. A closed outbox means the server dropped us.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case status, ok := <-out:
					if !ok {
						_ = conn.Close(websocket.StatusGoingAway, "dropped")
						return
					}
					payload, _ := json.Marshal(status)
					ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			reply := make(chan bool, 1)
			s.Inbox() <- Act{UID: uid, Action: string(data), Reply: reply}
			<-reply
		}
	}
}

// bind reads messages until one names a known player.
func bind(ctx context.Context, conn *websocket.Conn, s *Server, clientID string, out chan wire.PlayerStatus) (string, bool) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return "", false
		}
		uid := string(data)

		reply := make(chan bool, 1)
		s.Inbox() <- Subscribe{ClientID: clientID, UID: uid, Outbox: out, Reply: reply}
		if <-reply {
			return uid, true
		}
		_ = conn.Write(ctx, websocket.MessageText, []byte(InvalidUIDReply))
	}
}
