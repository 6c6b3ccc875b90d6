// Package web serves the JSON API and the HTML month view. All reads go
// through the store's snapshot accessor and all writes through its
// transactional operations; handlers never touch the document directly.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"teamcal/internal/config"
	"teamcal/internal/grid"
	"teamcal/internal/ics"
	appLog "teamcal/internal/log"
	"teamcal/internal/model"
	"teamcal/internal/store"
)

// Server provides HTTP access to the schedule: document API, month view,
// and iCalendar export.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	router chi.Router
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st *store.Store) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		router: chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Get("/api/document", s.handleDocument)
	s.router.Get("/api/month", s.handleMonth)
	s.router.Post("/api/users", s.handleAddUser)
	s.router.Delete("/api/users/{name}", s.handleDeleteUser)
	s.router.Post("/api/events", s.handleAddEvent)
	s.router.Put("/api/events/{id}", s.handleUpdateEvent)
	s.router.Delete("/api/events/{id}", s.handleDeleteEvent)

	s.router.Get("/calendar.ics", s.handleICS)
	s.router.Get("/", s.handleMonthView)
}

// Auth ------------------------------------------------------------------------

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Treat empty username or password as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="teamcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Handlers --------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleDocument(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// eventDTO is the JSON view of an event within a month response, joined with
// its formatted chip.
type eventDTO struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"`
	Time       string   `json:"time,omitempty"`
	Title      string   `json:"title"`
	Desc       string   `json:"desc,omitempty"`
	Writers    []string `json:"writers"`
	CategoryID string   `json:"categoryId"`
	Label      string   `json:"label"`
	Tooltip    string   `json:"tooltip"`
}

type cellDTO struct {
	Date    string     `json:"date"`
	InMonth bool       `json:"in_month"`
	Events  []eventDTO `json:"events"`
}

type monthResponse struct {
	Year  int       `json:"year"`
	Month int       `json:"month"`
	Rows  int       `json:"rows"`
	Cells []cellDTO `json:"cells"`
}

// handleMonth returns the computed month grid.
//
// GET /api/month?year=2026&month=2 — both default to the current month.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc := s.store.Snapshot()
	cells := grid.BuildMonth(doc, year, month)

	resp := monthResponse{
		Year:  year,
		Month: int(month),
		Rows:  grid.Rows(year, month),
		Cells: make([]cellDTO, 0, len(cells)),
	}
	for _, c := range cells {
		dto := cellDTO{
			Date:    c.Date.String(),
			InMonth: c.InMonth,
			Events:  make([]eventDTO, 0, len(c.Events)),
		}
		for _, ev := range c.Events {
			chip := grid.FormatChip(ev)
			dto.Events = append(dto.Events, eventDTO{
				ID:         ev.ID,
				Date:       ev.Date.String(),
				Time:       ev.Time,
				Title:      ev.Title,
				Desc:       ev.Desc,
				Writers:    ev.Writers,
				CategoryID: ev.CategoryID,
				Label:      chip.Label,
				Tooltip:    chip.Tooltip,
			})
		}
		resp.Cells = append(resp.Cells, dto)
	}
	writeJSON(w, http.StatusOK, resp)
}

type addUserRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req addUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if err := s.store.AddUser(r.Context(), req.Name); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// handleDeleteUser removes a user. The confirmation prompt for this
// destructive action lives in the UI; by the time the request arrives the
// decision has been made.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	// Names may contain spaces or quotes; the path segment arrives escaped.
	if dec, err := url.PathUnescape(name); err == nil {
		name = dec
	}
	if err := s.store.DeleteUser(r.Context(), name); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// eventRequest is the JSON body for creating or updating an event.
type eventRequest struct {
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	Title      string   `json:"title"`
	Desc       string   `json:"desc"`
	Writers    []string `json:"writers"`
	CategoryID string   `json:"categoryId"`
}

func (req eventRequest) toEvent(id string) (model.Event, error) {
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		ID:         id,
		Date:       date,
		Time:       req.Time,
		Title:      req.Title,
		Desc:       req.Desc,
		Writers:    req.Writers,
		CategoryID: req.CategoryID,
	}, nil
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev, err := req.toEvent("")
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	created, err := s.store.AddEvent(r.Context(), ev)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev, err := req.toEvent(eventID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if err := s.store.UpdateEvent(r.Context(), ev); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if err := s.store.DeleteEvent(r.Context(), eventID); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	doc := s.store.Snapshot()
	body := ics.Serialize(doc, time.Local, time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// Helpers ---------------------------------------------------------------------

// monthParams reads year/month query parameters, defaulting to the current
// month.
func monthParams(r *http.Request) (int, time.Month, error) {
	now := time.Now()
	year := now.Year()
	month := now.Month()

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, errors.New("year must be an integer")
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			return 0, 0, errors.New("month must be in [1, 12]")
		}
		month = time.Month(n)
	}
	return year, month, nil
}

// writeStoreError maps model/store errors onto HTTP statuses. Whatever the
// status, the document and the backing file are known to be unchanged.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	var (
		unknownUser  model.UnknownUserError
		unknownEvent model.UnknownEventError
	)
	switch {
	case errors.Is(err, store.ErrTransactionInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &unknownUser), errors.As(err, &unknownEvent):
		writeError(w, http.StatusNotFound, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		// Persistence failures and anything unexpected: the transaction was
		// rolled back, the caller may retry after fixing the environment.
		appLog.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func isValidationError(err error) bool {
	var (
		dupUser    model.DuplicateUserError
		dupEvent   model.DuplicateEventError
		unknownAsg model.UnknownAssigneeError
		badDate    model.InvalidDateError
		badTime    model.InvalidTimeError
	)
	return errors.As(err, &dupUser) ||
		errors.As(err, &dupEvent) ||
		errors.As(err, &unknownAsg) ||
		errors.As(err, &badDate) ||
		errors.As(err, &badTime) ||
		errors.Is(err, model.ErrEmptyTitle)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
