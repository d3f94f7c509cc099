// Package web is the operator dashboard: a read-only view over the job
// store behind a login. It never mutates booking state.
package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/albertnahas/booker-agent/internal/auth"
	"github.com/albertnahas/booker-agent/internal/booking"
	"github.com/albertnahas/booker-agent/internal/store"
)

//go:embed templates/*.html
var fs embed.FS

type Server struct {
	Auth   *auth.Store
	Store  store.Store
	Logger *slog.Logger
}

type tmplData struct {
	Title string
	User  int64
	Flash string

	Bookings []booking.Job
	Booking  booking.Job
	Outcome  string // pretty-printed result or error, detail page only
}

// Register mounts the dashboard under /ui.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ui/login", s.handleLogin)
	mux.HandleFunc("/ui/logout", s.handleLogout)
	mux.Handle("GET /ui", s.Auth.RequireAuth("/ui/login", http.HandlerFunc(s.handleList)))
	mux.Handle("GET /ui/bookings/{id}", s.Auth.RequireAuth("/ui/login", http.HandlerFunc(s.handleDetail)))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "templates/login.html", tmplData{Title: "Login"})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")
		id, err := s.Auth.Authenticate(r.Context(), username, password)
		if err != nil {
			s.render(w, "templates/login.html", tmplData{Title: "Login", Flash: "Invalid username/password"})
			return
		}
		if err := s.Auth.SetSession(w, r, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/ui", http.StatusFound)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/ui/login", http.StatusFound)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	js, err := s.Store.List(r.Context())
	if err != nil {
		s.Logger.Error("list bookings failed", "error", err)
		http.Error(w, "failed to load bookings", http.StatusInternalServerError)
		return
	}
	s.render(w, "templates/bookings.html", tmplData{
		Title:    "Bookings",
		User:     uid,
		Bookings: js,
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	j, err := s.Store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}
	s.render(w, "templates/booking.html", tmplData{
		Title:   j.ID,
		User:    uid,
		Booking: j,
		Outcome: outcome(j),
	})
}

func outcome(j booking.Job) string {
	switch {
	case j.Result != nil:
		b, err := json.MarshalIndent(j.Result, "", "  ")
		if err != nil {
			return ""
		}
		return string(b)
	case j.Error != "":
		return j.Error
	}
	return ""
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}
