package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page holds the fields every view shares.
type Page struct {
	Title string
	Error string
}

// Views renders the embedded page templates.
type Views struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

var pageNames = []string{"home", "checking", "login", "register", "dashboard", "soil"}

// NewViews parses every page with the shared layout.
func NewViews(appName string, logger *slog.Logger) (*Views, error) {
	funcs := template.FuncMap{
		"appName": func() string { return appName },
	}

	v := &Views{pages: make(map[string]*template.Template, len(pageNames)), logger: logger}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		v.pages[name] = t
	}

	return v, nil
}

// Render writes the named page with status. The page is executed into a
// buffer first so that a template error never produces a half-written page.
func (v *Views) Render(w http.ResponseWriter, status int, name string, data any) {
	t, ok := v.pages[name]
	if !ok {
		v.logger.Error("unknown template", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		v.logger.Error("rendering template", "name", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Checking is the page shown while the session is still loading.
func (v *Views) Checking() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.Render(w, http.StatusOK, "checking", Page{Title: "Checking authentication"})
	})
}
