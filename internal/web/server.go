// Package web serves the HTMX review interface: deck overview, session
// start in either study mode, and the question/answer/outcome loop.
package web

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/mfreire/revisa/internal/leitner"
	"github.com/mfreire/revisa/internal/storage"
	"github.com/mfreire/revisa/internal/sync"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP server.
type Server struct {
	db        *storage.DB
	sched     *leitner.Scheduler
	reposDir  string
	router    *http.ServeMux
	templates *template.Template

	mu       gosync.Mutex
	sessions map[string]*reviewSession
}

// sessionTTL is how long an idle session survives before the next session
// start sweeps it away. Abandoning a queue is a safe no-op for scheduling, so
// eviction only reclaims memory.
const sessionTTL = time.Hour

// reviewSession pairs a scheduler session with the card states it was built
// from, so each submit can do a conditional write against the state the
// transition was computed from.
//
// The session and states map are not safe for concurrent use; mu serializes
// request handlers so two simultaneous submits cannot both score the same
// queue position. lastActive is guarded by Server.mu, not this mutex.
type reviewSession struct {
	mu         gosync.Mutex
	session    *leitner.Session
	states     map[string]leitner.Card
	lastActive time.Time
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, sched *leitner.Scheduler, reposDir string) *Server {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	s := &Server{
		db:        db,
		sched:     sched,
		reposDir:  reposDir,
		router:    http.NewServeMux(),
		templates: tpl,
		sessions:  make(map[string]*reviewSession),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// render executes the named template. By the time execution fails the
// response is usually half-written, so the error is only logged.
func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("rendering template", "template", name, "error", err)
	}
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("Failed to create sub-filesystem for static assets: %v", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("/static/", http.StripPrefix("/static/", fileServer))
	s.router.Handle("/", fileServer)

	// HTMX-based routes
	s.router.HandleFunc("/decks", s.handleGetDecks())
	s.router.HandleFunc("/session", s.handleStartSession())
	s.router.HandleFunc("/session/", s.handleSessionRoutes())

	// Source management routes
	s.router.HandleFunc("/sources", s.handleSources())
	s.router.HandleFunc("/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/sync", s.handlePostSync())
}

// handleGetDecks renders the deck overview with due counts and the study
// mode picker.
func (s *Server) handleGetDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decks, err := s.db.GetDecks(time.Now())
		if err != nil {
			slog.Error("listing decks", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data := map[string]interface{}{
			"Decks": decks,
		}
		s.render(w, "decks", data)
	}
}

// handleStartSession builds a queue over the chosen deck in the chosen mode
// and renders the first card.
func (s *Server) handleStartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		deck := r.PostFormValue("deck")
		if deck == "" {
			http.Error(w, "Deck cannot be empty", http.StatusBadRequest)
			return
		}
		mode, err := leitner.ParseMode(r.PostFormValue("mode"))
		if err != nil {
			http.Error(w, "Invalid study mode", http.StatusBadRequest)
			return
		}

		rows, err := s.db.GetCardsByDeck(deck)
		if err != nil {
			slog.Error("loading deck", "deck", deck, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		states := make(map[string]leitner.Card, len(rows))
		cards := make([]leitner.Card, 0, len(rows))
		for _, row := range rows {
			state := row.State()
			states[state.ID] = state
			cards = append(cards, state)
		}

		session, err := s.sched.NewSession(cards, mode)
		if err != nil {
			http.Error(w, "Invalid study mode", http.StatusBadRequest)
			return
		}
		if err := session.Start(time.Now()); err != nil {
			slog.Error("starting session", "deck", deck, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		id := uuid.New().String()
		now := time.Now()
		s.mu.Lock()
		s.evictStale(now)
		s.sessions[id] = &reviewSession{session: session, states: states, lastActive: now}
		s.mu.Unlock()

		slog.Info("session started", "session", id, "deck", deck, "mode", mode)
		s.renderNextCard(w, id)
	}
}

// handleSessionRoutes dispatches /session/{id}/next, /session/{id}/answer/{card}
// and /session/{id}/review/{card}.
func (s *Server) handleSessionRoutes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/session/"), "/")
		switch {
		case len(parts) == 2 && parts[1] == "next" && r.Method == http.MethodGet:
			s.renderNextCard(w, parts[0])
		case len(parts) == 3 && parts[1] == "answer" && r.Method == http.MethodGet:
			s.handleShowAnswer(w, parts[0], parts[2])
		case len(parts) == 3 && parts[1] == "review" && r.Method == http.MethodPost:
			s.handleSubmitReview(w, r, parts[0], parts[2])
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Server) lookupSession(id string) *reviewSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.sessions[id]
	if rs != nil {
		rs.lastActive = time.Now()
	}
	return rs
}

// evictStale drops sessions idle for longer than sessionTTL. Callers must
// hold s.mu.
func (s *Server) evictStale(now time.Time) {
	for id, rs := range s.sessions {
		if now.Sub(rs.lastActive) > sessionTTL {
			delete(s.sessions, id)
		}
	}
}

// renderNextCard renders the front of the card at the head of the queue, or
// the completion summary when the queue is exhausted.
func (s *Server) renderNextCard(w http.ResponseWriter, sessionID string) {
	rs := s.lookupSession(sessionID)
	if rs == nil {
		http.Error(w, "Unknown session", http.StatusNotFound)
		return
	}

	rs.mu.Lock()
	cardID, ok := rs.session.Next()
	reviewed, total := rs.session.Progress()
	rs.mu.Unlock()

	if !ok {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		s.render(w, "session_done", map[string]interface{}{
			"Reviewed": reviewed,
			"Total":    total,
		})
		return
	}

	row, err := s.db.FindCardByID(cardID)
	if err != nil || row == nil {
		slog.Error("loading card", "card", cardID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, "card_front", map[string]interface{}{
		"SessionID": sessionID,
		"Card":      row,
		"Position":  reviewed + 1,
		"Total":     total,
	})
}

// handleShowAnswer renders the back of the current card with the outcome
// buttons.
func (s *Server) handleShowAnswer(w http.ResponseWriter, sessionID, cardID string) {
	rs := s.lookupSession(sessionID)
	if rs == nil {
		http.Error(w, "Unknown session", http.StatusNotFound)
		return
	}

	row, err := s.db.FindCardByID(cardID)
	if err != nil || row == nil {
		http.Error(w, "Unknown card", http.StatusNotFound)
		return
	}
	s.render(w, "card_back", map[string]interface{}{
		"SessionID": sessionID,
		"Card":      row,
	})
}

// handleSubmitReview scores the current card, persists the transition and
// the audit log entry, and renders the next card.
func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request, sessionID, cardID string) {
	rs := s.lookupSession(sessionID)
	if rs == nil {
		http.Error(w, "Unknown session", http.StatusNotFound)
		return
	}

	outcome, err := leitner.ParseOutcome(r.PostFormValue("outcome"))
	if err != nil {
		http.Error(w, "Invalid outcome", http.StatusBadRequest)
		return
	}

	if err := s.applyReview(rs, cardID, outcome, time.Now()); err != nil {
		switch {
		case errors.Is(err, leitner.ErrUnknownCard):
			http.Error(w, "Unknown card", http.StatusNotFound)
		case errors.Is(err, leitner.ErrOutOfOrder), errors.Is(err, leitner.ErrSessionState):
			http.Error(w, "Review out of order", http.StatusConflict)
		case errors.Is(err, storage.ErrConflict):
			http.Error(w, "Card was reviewed elsewhere", http.StatusConflict)
		default:
			slog.Error("submitting review", "card", cardID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	s.renderNextCard(w, sessionID)
}

// applyReview scores one card and persists the transition. The session lock
// is held across the whole step, so of two simultaneous submits for the same
// queue position only the first can score; the second fails the head check
// inside Submit.
func (s *Server) applyReview(rs *reviewSession, cardID string, outcome leitner.Outcome, now time.Time) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	prev, ok := rs.states[cardID]
	if !ok {
		return leitner.ErrUnknownCard
	}

	updated, err := rs.session.Submit(cardID, outcome, now)
	if err != nil {
		return err
	}

	if err := s.db.UpdateCardState(prev, updated); err != nil {
		return err
	}
	rs.states[cardID] = updated

	rlog := leitner.ReviewLog{CardID: cardID, Outcome: outcome, ReviewedAt: now}
	if err := s.db.InsertReview(rlog); err != nil {
		slog.Warn("recording review log", "card", cardID, "error", err)
	}
	return nil
}

// handlePostSync triggers a manual sync and re-renders the source list.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Run in the foreground to make the user wait.
		if err := sync.RunAll(s.db, s.reposDir, time.Now()); err != nil {
			slog.Error("sync failed", "error", err)
			http.Error(w, "Sync failed", http.StatusInternalServerError)
			return
		}

		sources, err := s.db.GetAllSources()
		if err != nil {
			slog.Error("listing sources after sync", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data := map[string]interface{}{
			"Sources": sources,
		}

		s.render(w, "sync_success", nil)
		s.render(w, "source_list", data)
	}
}

// handleSources handles both GET and POST for the sources page.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSources(w, r)
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		slog.Error("listing sources", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data := map[string]interface{}{
		"Sources": sources,
	}
	s.render(w, "sources", data)
}

// handlePostSource adds a new source and re-renders the source list.
func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	path := r.PostFormValue("path")
	if path == "" {
		http.Error(w, "Path cannot be empty", http.StatusBadRequest)
		return
	}

	sourceType := "local"
	if sync.IsGitURL(path) {
		sourceType = "git"
	}

	if _, err := s.db.InsertSource(path, sourceType); err != nil {
		slog.Error("inserting source", "path", path, "error", err)
		http.Error(w, "Failed to add source", http.StatusInternalServerError)
		return
	}

	sources, err := s.db.GetAllSources()
	if err != nil {
		slog.Error("listing sources after add", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data := map[string]interface{}{
		"Sources": sources,
	}
	s.render(w, "source_list", data)
}

// handleDeleteSource deletes a source and re-renders the source list.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}

		if err := s.db.DeleteSource(id); err != nil {
			slog.Error("deleting source", "id", id, "error", err)
			http.Error(w, "Failed to delete source", http.StatusInternalServerError)
			return
		}

		sources, err := s.db.GetAllSources()
		if err != nil {
			slog.Error("listing sources after delete", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data := map[string]interface{}{
			"Sources": sources,
		}
		s.render(w, "source_list", data)
	}
}
