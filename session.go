package main

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/aquilax/usernotes/node"
	"github.com/aquilax/usernotes/usernote"
)

//go:embed templates/*.html
var templateFS embed.FS

type Session struct {
	td TemplateData
	sc *scope
}

type TemplateData map[string]interface{}

type PathItem struct {
	URL   string
	Title string
}

func NewSession(config *Config, sc *scope) *Session {
	return &Session{
		td: NewTemplateData(config, sc.notes),
		sc: sc,
	}
}

func NewTemplateData(config *Config, notes *usernote.Request) TemplateData {
	td := make(TemplateData)
	td.Set("Title", config.Title)
	td.Set("Language", config.Language)
	td.Set("Viewer", notes.Viewer())
	td.Set("Moderator", notes.CanModerate())
	td.Set("Path", []PathItem{})
	return td
}

func (s *Session) getHelpers() template.FuncMap {
	return template.FuncMap{
		"lang":        s.Lang,
		"time":        s.sc.lang.FormatTime,
		"slug":        hfSlug,
		"rendered":    func(html string) template.HTML { return template.HTML(html) },
		"author":      s.author,
		"notesToggle": s.notesToggle,
		"notesPanel":  s.notesPanel,
	}
}

func (s *Session) Lang(text string) string {
	return s.sc.lang.Lang(text)
}

func (s *Session) AddPath(url, title string) {
	s.td["Path"] = append(s.td["Path"].([]PathItem), PathItem{URL: url, Title: title})
}

func (s *Session) author(id node.UserID) string {
	u, err := s.sc.db.GetUser(id)
	if err != nil {
		return s.Lang("Unknown user")
	}
	return u.DisplayName
}

func noteItem(n node.Node, threadURL string) usernote.Item {
	return usernote.Item{ID: n.ID, AuthorID: n.AuthorID, ThreadURL: threadURL}
}

func (s *Session) notesToggle(n node.Node, threadURL string) (template.HTML, error) {
	return s.sc.notes.ToggleLink(noteItem(n, threadURL))
}

func (s *Session) notesPanel(n node.Node, threadURL string) (template.HTML, error) {
	return s.sc.notes.Panel(noteItem(n, threadURL))
}

// render executes the named templates into a buffer so a failing template still
// produces a clean error response.
func (s *Session) render(w http.ResponseWriter, names ...string) error {
	patterns := make([]string, len(names))
	for i, name := range names {
		patterns[i] = "templates/" + name
	}
	t, err := template.New(names[0]).Funcs(s.getHelpers()).ParseFS(templateFS, patterns...)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, s.td); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

func (td TemplateData) Set(name string, value interface{}) {
	td[name] = value
}

func (s *Session) Set(name string, value interface{}) {
	s.td.Set(name, value)
}
