// Package httphost exposes stories over HTTP. Every session owns its
// own Story built from a factory; the handler serializes access per
// session, honoring the engine's single-goroutine contract. Playback
// events stream out over SSE.
package httphost

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/weftworks/skein"
	"github.com/weftworks/skein/pkg/story"
)

// StoryFactory builds a fresh story for a new session.
type StoryFactory func() (*skein.Story, error)

// Server hosts story sessions.
type Server struct {
	factory StoryFactory
	logger  *slog.Logger
	metrics http.Handler

	mu       sync.RWMutex
	sessions map[string]*session
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts a handler (typically promhttp) at
// /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates a Server that builds a story per session.
func New(factory StoryFactory, opts ...Option) *Server {
	s := &Server{
		factory:  factory,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.withSession(s.getView))
			r.Delete("/", s.deleteSession)
			r.Post("/goto", s.withSession(s.gotoPassage))
			r.Post("/choose", s.withSession(s.choose))
			r.Post("/pause", s.withSession(s.pause))
			r.Post("/resume", s.withSession(s.resume))
			r.Post("/reset", s.withSession(s.reset))
			r.Get("/events", s.withSession(s.subscribeEvents))
		})
	})
	return r
}

// session pairs one story with its event subscribers. mu serializes
// every engine call for the session.
type session struct {
	id    string
	mu    sync.Mutex
	story *skein.Story

	subMu sync.Mutex
	subs  map[chan []byte]struct{}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.factory()
	if err != nil {
		s.logger.Error("session story build failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	sess := &session{
		id:    uuid.NewString(),
		story: st,
		subs:  make(map[chan []byte]struct{}),
	}
	st.Observe(sess.observers())

	sess.mu.Lock()
	err = st.Begin()
	sess.mu.Unlock()
	if err != nil {
		writeStoryError(w, err)
		return
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("session created", "session", sess.id)
	writeJSON(w, http.StatusCreated, sess.view())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no session %q", id))
		return
	}
	sess.closeSubs()
	s.logger.Info("session deleted", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

// withSession resolves the session and serializes the handler against
// its story.
func (s *Server) withSession(fn func(w http.ResponseWriter, r *http.Request, sess *session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("no session %q", id))
			return
		}
		fn(w, r, sess)
	}
}

func (s *Server) getView(w http.ResponseWriter, _ *http.Request, sess *session) {
	sess.mu.Lock()
	v := sess.view()
	sess.mu.Unlock()
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) gotoPassage(w http.ResponseWriter, r *http.Request, sess *session) {
	var body struct {
		Passage string `json:"passage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Passage == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("body must name a passage"))
		return
	}
	sess.do(w, func() error { return sess.story.GoTo(body.Passage) })
}

func (s *Server) choose(w http.ResponseWriter, r *http.Request, sess *session) {
	var body struct {
		Link  string `json:"link"`
		Index *int   `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	switch {
	case body.Index != nil:
		sess.do(w, func() error { return sess.story.FollowLinkAt(*body.Index) })
	case body.Link != "":
		sess.do(w, func() error { return sess.story.FollowLinkNamed(body.Link) })
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("body must carry a link name or index"))
	}
}

func (s *Server) pause(w http.ResponseWriter, _ *http.Request, sess *session) {
	sess.do(w, sess.story.Pause)
}

func (s *Server) resume(w http.ResponseWriter, _ *http.Request, sess *session) {
	sess.do(w, sess.story.Resume)
}

func (s *Server) reset(w http.ResponseWriter, _ *http.Request, sess *session) {
	sess.do(w, sess.story.Reset)
}

// do runs one engine call under the session lock and answers with the
// refreshed view.
func (sess *session) do(w http.ResponseWriter, fn func() error) {
	sess.mu.Lock()
	err := fn()
	v := sess.view()
	sess.mu.Unlock()
	if err != nil {
		writeStoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// subscribeEvents streams playback events as SSE until the client
// disconnects.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request, sess *session) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := sess.subscribe()
	defer sess.unsubscribe(events)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// Event is one SSE payload.
type Event struct {
	Event   string `json:"event"`
	Passage string `json:"passage,omitempty"`
	State   string `json:"state,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Text    string `json:"text,omitempty"`
}

func (sess *session) observers() story.Observers {
	return story.Observers{
		PassageEntered: func(p *story.Passage) {
			sess.broadcast(Event{Event: "passage", Passage: p.Name})
		},
		StateChanged: func(st story.State) {
			sess.broadcast(Event{Event: "state", State: string(st)})
		},
		OutputAdded: func(o story.Output) {
			switch item := o.(type) {
			case *story.Text:
				sess.broadcast(Event{Event: "output", Kind: "text", Text: item.Content})
			case *story.LineBreak:
				sess.broadcast(Event{Event: "output", Kind: "line_break"})
			case *story.Link:
				sess.broadcast(Event{Event: "output", Kind: "link", Text: item.Name})
			}
		},
	}
}

func (sess *session) subscribe() chan []byte {
	ch := make(chan []byte, 64)
	sess.subMu.Lock()
	sess.subs[ch] = struct{}{}
	sess.subMu.Unlock()
	return ch
}

func (sess *session) unsubscribe(ch chan []byte) {
	sess.subMu.Lock()
	if _, ok := sess.subs[ch]; ok {
		delete(sess.subs, ch)
		close(ch)
	}
	sess.subMu.Unlock()
}

func (sess *session) closeSubs() {
	sess.subMu.Lock()
	for ch := range sess.subs {
		delete(sess.subs, ch)
		close(ch)
	}
	sess.subMu.Unlock()
}

// broadcast fans an event out to every subscriber. Slow consumers
// drop events rather than stall playback.
func (sess *session) broadcast(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	sess.subMu.Lock()
	for ch := range sess.subs {
		select {
		case ch <- data:
		default:
		}
	}
	sess.subMu.Unlock()
}

// View is the session snapshot returned by every state-changing call.
type View struct {
	ID            string     `json:"id"`
	State         string     `json:"state"`
	Passage       string     `json:"passage"`
	Tags          []string   `json:"tags,omitempty"`
	Text          string     `json:"text"`
	Links         []LinkView `json:"links"`
	History       []string   `json:"history"`
	LinksFollowed int        `json:"links_followed"`
}

// LinkView is one offered link.
type LinkView struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Target string `json:"target,omitempty"`
}

// view snapshots the session. Callers hold sess.mu.
func (sess *session) view() View {
	st := sess.story
	v := View{
		ID:            sess.id,
		State:         string(st.State()),
		Passage:       st.CurrentPassage(),
		Tags:          st.Tags(),
		Text:          renderText(st.Output()),
		Links:         []LinkView{},
		History:       st.History(),
		LinksFollowed: st.LinksFollowed(),
	}
	for i, l := range st.Links() {
		v.Links = append(v.Links, LinkView{Index: i, Name: l.Name, Target: l.Target})
	}
	return v
}

func renderText(items []story.Output) string {
	var b strings.Builder
	for _, o := range items {
		switch item := o.(type) {
		case *story.Text:
			b.WriteString(item.Content)
		case *story.LineBreak:
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeStoryError maps engine failures to HTTP statuses: state
// violations conflict, missing definitions are not found, dead links
// are unprocessable.
func writeStoryError(w http.ResponseWriter, err error) {
	var stateErr *story.StateError
	var notFound *story.NotFoundError
	switch {
	case errors.As(err, &stateErr):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, story.ErrDeadLink):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
