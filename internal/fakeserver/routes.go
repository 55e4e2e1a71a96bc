package fakeserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/bombastic-viewer/pkg/wire"
)

// Routes exposes the REST surface the viewer consumes.
func Routes(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Post("/player", createPlayer(s))
	r.Get("/game", readGame(s))
	r.Get("/player/{uid}", readPlayer(s))
	r.Put("/player/{uid}", act(s))
	r.Delete("/player/{uid}", removePlayer(s))
	r.Get("/healthz", Healthz)
	return r
}

func createPlayer(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body wire.CreatePlayer
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "expected json", http.StatusBadRequest)
				return
			}
		}

		reply := make(chan wire.PlayerStatus, 1)
		s.Inbox() <- CreatePlayer{Name: body.Name, Reply: reply}
		writeJSON(w, http.StatusOK, <-reply)
	}
}

func readGame(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.View().Frame)
	}
}

func readPlayer(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan lookup, 1)
		s.Inbox() <- GetPlayer{UID: chi.URLParam(r, "uid"), Reply: reply}
		res := <-reply
		if !res.OK {
			http.Error(w, "invalid", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, res.Status)
	}
}

func act(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body wire.Action
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "expected json", http.StatusBadRequest)
			return
		}

		reply := make(chan bool, 1)
		s.Inbox() <- Act{UID: chi.URLParam(r, "uid"), Action: body.Action, Reply: reply}
		if !<-reply {
			http.Error(w, "invalid", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func removePlayer(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan bool, 1)
		s.Inbox() <- RemovePlayer{UID: chi.URLParam(r, "uid"), Reply: reply}
		if !<-reply {
			http.Error(w, "invalid", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
