// Package web renders the server-side pages and serves their static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names.
const (
	PageHome     = "home"
	PageLogin    = "login"
	PageSignup   = "signup"
	PageMovies   = "movies"
	PageMovie    = "movie"
	PageNotFound = "notfound"
)

const imageBaseURL = "https://image.tmdb.org/t/p/"

// Pages holds the parsed page templates, each composed with the shared layout.
type Pages struct {
	pages map[string]*template.Template
}

// New parses the embedded templates.
func New() (*Pages, error) {
	funcs := template.FuncMap{
		"image": imageURL,
		"year":  releaseYear,
	}
	names := []string{PageHome, PageLogin, PageSignup, PageMovies, PageMovie, PageNotFound}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		tpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = tpl
	}
	return &Pages{pages: pages}, nil
}

// Render writes page with status. The page is rendered into a buffer first so
// a template failure never leaves a half-written response.
func (p *Pages) Render(w http.ResponseWriter, status int, page string, data map[string]any) error {
	tpl, ok := p.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded assets under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

// SafeNext returns next when it is a local absolute path and fallback
// otherwise, so the login flow cannot be used as an open redirect.
func SafeNext(next, fallback string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}

func imageURL(size string, path *string) string {
	if path == nil || *path == "" {
		return ""
	}
	return imageBaseURL + size + *path
}

func releaseYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}
