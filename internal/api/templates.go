package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/npezzotti/roomchat/internal/types"
)

//go:embed templates
var templateFS embed.FS

//go:embed public
var publicFS embed.FS

type chatPageData struct {
	Name        string
	Username    string
	Connections []types.Connection
}

// NewTemplateCache parses every page together with the base layout.
// Pages are keyed by file name without the extension.
func NewTemplateCache() (map[string]*template.Template, error) {
	tmplCache := make(map[string]*template.Template)

	pages, err := fs.Glob(templateFS, "templates/pages/*.html.tmpl")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		name := strings.TrimSuffix(path.Base(page), ".html.tmpl")

		ts, err := template.New(name).ParseFS(templateFS, "templates/base.html.tmpl", page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}

		tmplCache[name] = ts
	}

	return tmplCache, nil
}

func (s *ChatApp) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		s.log.Printf("template %q not in cache", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	buf := &bytes.Buffer{}
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		s.log.Printf("render %q: %v", page, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func publicHandler() http.Handler {
	sub, err := fs.Sub(publicFS, "public")
	if err != nil {
		panic(err)
	}

	return http.StripPrefix("/public/", http.FileServerFS(sub))
}
