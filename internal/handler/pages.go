package handler

import (
	"io/fs"
	"net/http"

	"github.com/keydesk/keydesk/internal/server/middleware"
)

const (
	loginPage      = "login.html"
	dashboardPage  = "dashboard.html"
	createUserPage = "create-user.html"
)

// PageHandler serves the dashboard HTML pages from an embedded bundle.
type PageHandler struct {
	pages fs.FS
}

// NewPageHandler creates a PageHandler serving files from pages.
func NewPageHandler(pages fs.FS) *PageHandler {
	return &PageHandler{pages: pages}
}

// Index serves the dashboard to logged-in admins and the login form to
// everyone else.
// GET /
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	if middleware.GetSession(r.Context()) != nil {
		h.serve(w, r, dashboardPage)
		return
	}
	h.serve(w, r, loginPage)
}

// Dashboard serves the dashboard or redirects anonymous callers to /.
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if middleware.GetSession(r.Context()) == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.serve(w, r, dashboardPage)
}

// CreateUser serves the public user registration form.
// GET /create-user
func (h *PageHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, createUserPage)
}

// Assets returns a file server for the bundle's static files.
func (h *PageHandler) Assets() http.Handler {
	return http.FileServerFS(h.pages)
}

func (h *PageHandler) serve(w http.ResponseWriter, r *http.Request, name string) {
	// Pages vary on the session cookie.
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFileFS(w, r, h.pages, name)
}
