package usernote

import (
	"bytes"
	"errors"
	"html/template"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/node"
	"go.uber.org/zap"
)

var noteTemplate = template.Must(template.New("note").Parse(
	`<div class="usernotes-note">{{.Body}} <span class="usernotes-note-meta">{{.By}} {{.Author}} @ ` +
		`{{if .Post}}<a href="{{.Post}}">{{.Time}}</a>{{else}}{{.Time}}{{end}}</span></div>`))

type noteView struct {
	Body   template.HTML
	By     string
	Author string
	Post   string
	Time   string
}

// Notes returns the subject's notes formatted for display, oldest first. The store is
// read at most once per subject for the lifetime of the request.
func (r *Request) Notes(subject node.UserID) ([]template.HTML, error) {
	if fragments, found := r.notes[subject]; found {
		return fragments, nil
	}
	log, err := r.store.Read(subject)
	if err != nil {
		return nil, err
	}
	fragments := make([]template.HTML, 0, len(log))
	for _, n := range log {
		f, err := r.format(n)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	r.notes[subject] = fragments
	return fragments, nil
}

func (r *Request) format(n Note) (template.HTML, error) {
	name := r.host.Lang.Lang("Unknown user")
	if author := r.author(n.Author); author != nil {
		name = author.DisplayName
	}
	var buf bytes.Buffer
	err := noteTemplate.Execute(&buf, noteView{
		// Stored bodies are sanitized on write; this guards against older data.
		Body:   template.HTML(Sanitize(n.Note)),
		By:     r.host.Lang.Lang("by"),
		Author: name,
		Post:   n.Post,
		Time:   r.host.Lang.FormatTime(n.Time),
	})
	return template.HTML(buf.String()), err
}

// author returns nil when the id no longer resolves; the miss is remembered too.
func (r *Request) author(id node.UserID) *node.User {
	if u, found := r.authors[id]; found {
		return u
	}
	u, err := r.host.Users.GetUser(id)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			r.host.Logger.Warn("note_author_lookup_failed", zap.Int64("author", id), zap.Error(err))
		}
		u = nil
	}
	r.authors[id] = u
	return u
}
