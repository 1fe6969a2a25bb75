package usernote

import (
	"errors"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/node"
)

// MetaStore is the per-user key/value facility notes are kept in.
type MetaStore interface {
	GetUserMeta(userID node.UserID, key string) ([]byte, error)
	UpdateUserMeta(userID node.UserID, key string, fn database.UpdateFunc) error
}

// Store reads and appends note logs.
type Store struct {
	meta MetaStore
}

func NewStore(meta MetaStore) *Store {
	return &Store{meta: meta}
}

// Read returns the subject's notes. A missing or malformed log is empty; only
// failures of the underlying store are returned.
func (s *Store) Read(subject node.UserID) (NoteLog, error) {
	raw, err := s.meta.GetUserMeta(subject, MetaKey)
	if errors.Is(err, database.ErrNotFound) {
		return NoteLog{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(raw), nil
}

// Append adds note to the end of the subject's log. A malformed stored log is
// replaced by a log holding just the new note.
func (s *Store) Append(subject node.UserID, note Note) error {
	return s.meta.UpdateUserMeta(subject, MetaKey, func(current []byte) ([]byte, error) {
		return encode(append(decode(current), note))
	})
}
