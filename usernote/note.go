package usernote

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/aquilax/usernotes/node"
)

// MetaKey is the user metadata key the note log is stored under.
const MetaKey = "_usernotes_log"

const schemaVersion = 1

// Note is a single moderator annotation on a user.
type Note struct {
	Note   string      `json:"note"`
	Time   time.Time   `json:"time"`
	Post   string      `json:"post"`
	Author node.UserID `json:"author"`
}

// NoteLog is a user's notes, oldest first.
type NoteLog []Note

type record struct {
	Version int     `json:"version"`
	Notes   NoteLog `json:"notes"`
}

func encode(log NoteLog) ([]byte, error) {
	return json.Marshal(record{Version: schemaVersion, Notes: log})
}

// decode never fails: anything that is not a note log reads as an empty one.
// Bare arrays are accepted as the unversioned form of the log.
func decode(raw []byte) NoteLog {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return NoteLog{}
	}
	switch raw[0] {
	case '[':
		var log NoteLog
		if err := json.Unmarshal(raw, &log); err != nil {
			return NoteLog{}
		}
		return log
	case '{':
		var r record
		if err := json.Unmarshal(raw, &r); err != nil || r.Version < 1 || r.Notes == nil {
			return NoteLog{}
		}
		return r.Notes
	}
	return NoteLog{}
}
