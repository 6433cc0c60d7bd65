package main

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

// Long polling carries the same events as the websocket for clients that
// cannot hold one open:
//
//	POST   /poll       open a session, returns {"type":"session","sid":...}
//	POST   /poll/:sid  submit one event
//	GET    /poll/:sid  wait for queued messages, returns a JSON array
//	DELETE /poll/:sid  disconnect
//
// A session that is not polled for cfg.pollTimeout is disconnected.

type pollSession struct {
	client  *Client
	polling sync.Mutex

	mu   sync.Mutex
	idle *time.Timer
}

type PollServer struct {
	cfg *Config
	hub *Hub

	mu       sync.Mutex
	sessions map[string]*pollSession
}

func newPollServer(cfg *Config, hub *Hub) *PollServer {
	return &PollServer{
		cfg:      cfg,
		hub:      hub,
		sessions: make(map[string]*pollSession),
	}
}

func (ps *PollServer) session(sid string) (*pollSession, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	s, ok := ps.sessions[sid]

	return s, ok
}

func (ps *PollServer) open() (*pollSession, bool) {
	sid := uuid.NewString()
	s := &pollSession{client: newClient(sid, ps.cfg.sendBuffer)}

	if !ps.hub.connect(s.client) {
		return nil, false
	}

	// The timer's callback takes ps.mu, so it cannot run before the session
	// is visible.
	ps.mu.Lock()
	s.idle = time.AfterFunc(ps.cfg.pollTimeout, func() {
		logf(ps.cfg, "CONNS: Poll session %s timed out", sid)
		ps.close(sid)
	})
	ps.sessions[sid] = s
	ps.mu.Unlock()

	return s, true
}

func (ps *PollServer) close(sid string) {
	ps.mu.Lock()
	s, ok := ps.sessions[sid]
	delete(ps.sessions, sid)
	ps.mu.Unlock()

	if !ok {
		return
	}

	s.mu.Lock()
	s.idle.Stop()
	s.mu.Unlock()

	ps.hub.leave(s.client)
}

// Len reports the number of open sessions.
func (ps *PollServer) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	return len(ps.sessions)
}

func (s *pollSession) pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.idle.Stop()
}

func (s *pollSession) resume(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.idle.Reset(d)
}

// wait blocks until at least one message is queued, then takes everything
// queued. gone reports that the hub has dropped the client.
func (s *pollSession) wait(done <-chan struct{}, d time.Duration) (msgs []any, gone bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	msgs = []any{}

	select {
	case msg, ok := <-s.client.send:
		if !ok {
			return msgs, true
		}
		msgs = append(msgs, msg)
	case <-timer.C:
		return msgs, false
	case <-done:
		return msgs, false
	}

	for {
		select {
		case msg, ok := <-s.client.send:
			if !ok {
				return msgs, true
			}
			msgs = append(msgs, msg)
		default:
			return msgs, false
		}
	}
}

func (ps *PollServer) serveOpen(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s, ok := ps.open()
		if !ok {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}

		logf(ps.cfg, "CONNS: Poll session %s from %s", s.client.id, realIP(r))

		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(ps.cfg, w)

		_, err := writeJSON(w, http.StatusOK, SessionMessage{Type: "session", SID: s.client.id})
		if err != nil {
			errs <- err
		}
	}
}

func (ps *PollServer) serveSubmit() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		s, ok := ps.session(p.ByName("sid"))
		if !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
		if err != nil {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return
		}

		// Invalid events are dropped exactly as on the websocket.
		ev, err := decodeEvent(data)
		if err != nil {
			logf(ps.cfg, "CONNS: Ignoring event from %s: %v", s.client.id, err)
		} else if !ps.hub.dispatch(s.client, ev) {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (ps *PollServer) servePoll(errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		sid := p.ByName("sid")

		s, ok := ps.session(sid)
		if !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}

		if !s.polling.TryLock() {
			http.Error(w, "session is already being polled", http.StatusConflict)
			return
		}
		defer s.polling.Unlock()

		s.pause()
		msgs, gone := s.wait(r.Context().Done(), ps.cfg.pollWait)
		if gone {
			ps.close(sid)
			if len(msgs) == 0 {
				http.Error(w, "session closed", http.StatusGone)
				return
			}
		} else {
			s.resume(ps.cfg.pollTimeout)
		}

		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(ps.cfg, w)

		_, err := writeJSON(w, http.StatusOK, msgs)
		if err != nil {
			errs <- err
		}
	}
}

func (ps *PollServer) serveClose() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		sid := p.ByName("sid")

		if _, ok := ps.session(sid); !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}

		ps.close(sid)

		w.WriteHeader(http.StatusNoContent)
	}
}

func registerPolling(cfg *Config, mux *httprouter.Router, ps *PollServer, errs chan<- error) {
	mux.POST(cfg.prefix+"/poll", ps.serveOpen(errs))
	mux.POST(cfg.prefix+"/poll/:sid", ps.serveSubmit())
	mux.GET(cfg.prefix+"/poll/:sid", ps.servePoll(errs))
	mux.DELETE(cfg.prefix+"/poll/:sid", ps.serveClose())
}
