package server

import (
	"embed"
	"html/template"
	"net/http"
	"path"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const (
	templateConsent = "consent.html"
	templateHome    = "home.html"
)

// ParseTemplate parses one page from the embedded templates directory
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).ParseFS(templateFiles, path.Join("templates", name))
}

func parseTemplates(names ...string) (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := ParseTemplate(name)
		if err != nil {
			return nil, err
		}
		templates[name] = t
	}
	return templates, nil
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", contentTypeHTML)
	if err := s.templates[name].Execute(w, data); err != nil {
		log.Err(err).Str("template", name).Msg("failed to render template")
	}
}
