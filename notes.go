package main

import (
	"errors"
	"fmt"
	"html"
	"io"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/node"
	"github.com/aquilax/usernotes/usernote"
	"github.com/fatih/color"
	"github.com/microcosm-cc/bluemonday"
)

var (
	plainPolicy = bluemonday.StrictPolicy()
	headerColor = color.New(color.Bold)
	timeColor   = color.New(color.FgCyan)
	authorColor = color.New(color.FgYellow)
	linkColor   = color.New(color.Faint)
)

// printNotes writes a user's note log as plain text, oldest first.
func printNotes(w io.Writer, db database.Database, subject node.UserID) error {
	user, err := db.GetUser(subject)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("user %d not found", subject)
		}
		return err
	}
	log, err := usernote.NewStore(db).Read(subject)
	if err != nil {
		return err
	}

	headerColor.Fprintf(w, "Notes on %s (#%d)\n", user.DisplayName, user.ID)
	if len(log) == 0 {
		fmt.Fprintln(w, "no notes")
		return nil
	}
	authors := make(map[node.UserID]string)
	for _, n := range log {
		name, found := authors[n.Author]
		if !found {
			name = "unknown user"
			if u, err := db.GetUser(n.Author); err == nil {
				name = u.DisplayName
			}
			authors[n.Author] = name
		}
		timeColor.Fprint(w, n.Time.UTC().Format("2006-01-02 15:04:05"))
		fmt.Fprint(w, " ")
		authorColor.Fprint(w, name)
		fmt.Fprintf(w, ": %s\n", html.UnescapeString(plainPolicy.Sanitize(n.Note)))
		if n.Post != "" {
			linkColor.Fprintf(w, "  %s\n", n.Post)
		}
	}
	return nil
}
