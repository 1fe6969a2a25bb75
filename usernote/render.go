package usernote

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/aquilax/usernotes/node"
)

const (
	fieldText         = "note-text"
	fieldSubject      = "subject-user-id"
	fieldOriginalItem = "original-item-id"
	fieldToken        = "forgery-token"
)

var (
	toggleTemplate = template.Must(template.New("toggle").Parse(
		`<span class="usernotes-toggle" data-usernotes-toggle="#usernotes-{{.ID}}">{{.Label}}</span>`))

	panelTemplate = template.Must(template.New("panel").Parse(
		`<div class="usernotes" id="usernotes-{{.ID}}">` +
			`<h2>{{.Heading}}</h2>` +
			`{{range .Notes}}{{.}}{{end}}` +
			`{{.Form}}` +
			`</div>`))

	formTemplate = template.Must(template.New("form").Parse(`
<form action="{{.Action}}" method="post" class="usernotes-add">
	<input type="hidden" name="` + fieldSubject + `" value="{{.SubjectID}}">
	<input type="hidden" name="` + fieldOriginalItem + `" value="{{.ItemID}}">
	<input type="hidden" name="` + fieldToken + `" value="{{.Token}}">
	<label for="usernotes-new-note-{{.ItemID}}" class="screen-reader-text">{{.Label}}</label>
	<textarea name="` + fieldText + `" id="usernotes-new-note-{{.ItemID}}"></textarea>
	<button type="submit">{{.Button}}</button>
</form>
`))
)

func addScope(subject node.UserID) string {
	return "add-" + strconv.FormatInt(subject, 10)
}

func execute(t *template.Template, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// ToggleLink renders the control that shows and hides the note panel of item.
func (r *Request) ToggleLink(item Item) (template.HTML, error) {
	if !r.CanModerate() {
		return "", nil
	}
	return execute(toggleTemplate, struct {
		ID    node.NodeID
		Label string
	}{item.ID, r.host.Lang.Lang("Toggle user notes")})
}

// Panel renders the notes on item's author followed by the add-note form.
func (r *Request) Panel(item Item) (template.HTML, error) {
	if !r.CanModerate() {
		return "", nil
	}
	notes, err := r.Notes(item.AuthorID)
	if err != nil {
		return "", fmt.Errorf("notes for user %d: %w", item.AuthorID, err)
	}
	form, err := r.Form(item)
	if err != nil {
		return "", err
	}
	return execute(panelTemplate, struct {
		ID      node.NodeID
		Heading string
		Notes   []template.HTML
		Form    template.HTML
	}{item.ID, r.host.Lang.Lang("User notes"), notes, form})
}

// Form renders the add-note form for item's author. It posts back to the thread,
// anchored at the reply.
func (r *Request) Form(item Item) (template.HTML, error) {
	if !r.CanModerate() {
		return "", nil
	}
	token, err := r.host.Tokens.Issue(addScope(item.AuthorID), r.viewer.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return execute(formTemplate, struct {
		Action    string
		SubjectID node.UserID
		ItemID    node.NodeID
		Token     string
		Label     string
		Button    string
	}{
		Action:    fmt.Sprintf("%s#post-%d", item.ThreadURL, item.ID),
		SubjectID: item.AuthorID,
		ItemID:    item.ID,
		Token:     token,
		Label:     r.host.Lang.Lang("New note:"),
		Button:    r.host.Lang.Lang("Add your note"),
	})
}
