// Package web serves the calendar as JSON for wall displays and web
// dashboards. Every request builds its own agenda.Calendar; the selected
// day is owned by the caller and passed in the query string.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pulsedash/dashcal/internal/agenda"
	"github.com/pulsedash/dashcal/internal/core"
)

const fetchTimeout = 30 * time.Second

// Config holds the defaults a request can override.
type Config struct {
	// RollingDays is used when the request has no days parameter. 0 means monthly.
	RollingDays int
	HorizonDays int
	Limit       int
	Location    *time.Location
	// Fetch carries calendar filters; its range is set per request.
	Fetch core.FetchOptions
	// CacheTTL bounds how long fetched events are reused. 0 keeps them
	// until Invalidate.
	CacheTTL time.Duration
	Clock    agenda.Clock
}

// Server provides the calendar API.
type Server struct {
	provider core.Provider
	cfg      Config
	router   chi.Router

	mu    sync.Mutex
	cache map[fetchKey]cachedEvents
}

type fetchKey struct {
	start, end int64
}

type cachedEvents struct {
	events    []core.Event
	fetchedAt time.Time
}

// NewServer constructs a Server reading events from provider.
func NewServer(provider core.Provider, cfg Config) *Server {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Clock == nil {
		cfg.Clock = agenda.SystemClock
	}
	s := &Server{
		provider: provider,
		cfg:      cfg,
		cache:    make(map[fetchKey]cachedEvents),
	}
	s.registerRoutes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/api/calendar", s.handleCalendar)
	s.router = r
}

// Invalidate drops every cached fetch so the next request hits the provider.
func (s *Server) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
	log.Debug("event cache cleared")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": s.provider.ID(),
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, s.cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	selected := q.selected
	cal := agenda.New(agenda.Options{
		RollingDays:  q.days,
		InitialMonth: q.month,
		Selection:    agenda.Delegated(func() time.Time { return selected }, nil),
		AgendaLimit:  q.limit,
		Clock:        s.cfg.Clock,
		Location:     s.cfg.Location,
	})

	start, end := cal.FetchRange(s.cfg.HorizonDays)
	events, err := s.events(r.Context(), start, end)
	if err != nil {
		log.Error("fetching events failed", "provider", s.provider.ID(), "err", err)
		writeError(w, http.StatusBadGateway, "failed to fetch events")
		return
	}
	cal.SetEvents(events)

	writeJSON(w, http.StatusOK, newCalendarResponse(cal, start, end))
}

// events returns the provider's events for [start, end), reusing a cached
// fetch of the same range. Expired entries are dropped on lookup and swept
// on store, so client-chosen ranges cannot grow the cache past one TTL.
func (s *Server) events(ctx context.Context, start, end time.Time) ([]core.Event, error) {
	key := fetchKey{start.Unix(), end.Unix()}
	now := s.cfg.Clock()

	s.mu.Lock()
	c, ok := s.cache[key]
	if ok && !s.fresh(c, now) {
		delete(s.cache, key)
		ok = false
	}
	s.mu.Unlock()
	if ok {
		return c.events, nil
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	opts := s.cfg.Fetch
	opts.Start, opts.End = start, end
	events, err := s.provider.FetchEvents(ctx, opts)
	if err != nil {
		return nil, err
	}
	log.Debug("fetched events", "start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly), "count", len(events))

	s.mu.Lock()
	for k, c := range s.cache {
		if !s.fresh(c, now) {
			delete(s.cache, k)
		}
	}
	s.cache[key] = cachedEvents{events: events, fetchedAt: now}
	s.mu.Unlock()
	return events, nil
}

// fresh reports whether c is still within CacheTTL. Caller holds s.mu.
func (s *Server) fresh(c cachedEvents, now time.Time) bool {
	return s.cfg.CacheTTL <= 0 || now.Sub(c.fetchedAt) < s.cfg.CacheTTL
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
