package usernote

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/database/memory"
	"github.com/aquilax/usernotes/node"
)

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore(memory.New())
	note := Note{Note: "watch this one", Time: testNow.Truncate(time.Second), Post: "http://forum.test/topic/1/t.html#post-2", Author: 1}

	if err := s.Append(5, note); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	log, err := s.Read(5)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("got %d notes, want 1", len(log))
	}
	got := log[0]
	if got.Note != note.Note || got.Post != note.Post || got.Author != note.Author {
		t.Errorf("got %+v, want %+v", got, note)
	}
	if !got.Time.Equal(note.Time) {
		t.Errorf("got time %v, want %v", got.Time, note.Time)
	}
}

func TestStorePreservesOrder(t *testing.T) {
	s := NewStore(memory.New())
	for _, text := range []string{"A", "B", "C"} {
		if err := s.Append(5, Note{Note: text, Time: testNow, Author: 1}); err != nil {
			t.Fatal(err)
		}
	}
	log, err := s.Read(5)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, n := range log {
		got = append(got, n.Note)
	}
	if !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("got %v", got)
	}
}

func TestStoreKeepsLogsPerUser(t *testing.T) {
	s := NewStore(memory.New())
	_ = s.Append(1, Note{Note: "one"})
	_ = s.Append(2, Note{Note: "two"})

	log, _ := s.Read(1)
	if len(log) != 1 || log[0].Note != "one" {
		t.Errorf("user 1 log = %+v", log)
	}
	log, _ = s.Read(3)
	if len(log) != 0 {
		t.Errorf("user 3 log = %+v", log)
	}
}

func TestStoreReadsStoredValues(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		want   []string
	}{
		{"versioned record", `{"version":1,"notes":[{"note":"a","time":"2024-03-09T14:30:15Z","post":"","author":1}]}`, []string{"a"}},
		{"newer version with extra fields", `{"version":2,"notes":[{"note":"a","time":"2024-03-09T14:30:15Z","author":1,"tags":["x"]}],"rev":9}`, []string{"a"}},
		{"bare array", `[{"note":"a","time":"2024-03-09T14:30:15+02:00","post":"","author":1},{"note":"b","time":"2024-03-09T15:30:15+02:00","post":"","author":2}]`, []string{"a", "b"}},
		{"empty value", ``, nil},
		{"string", `"just a string"`, nil},
		{"object without version", `{"notes":[{"note":"a"}]}`, nil},
		{"notes not a list", `{"version":1,"notes":{"note":"a"}}`, nil},
		{"broken json", `[{"note":`, nil},
		{"bad timestamp", `[{"note":"a","time":"yesterday"}]`, nil},
		{"serialized php", `a:1:{i:0;O:8:"stdClass":0:{}}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := memory.New()
			_ = db.UpdateUserMeta(1, MetaKey, func([]byte) ([]byte, error) { return []byte(tt.stored), nil })
			log, err := NewStore(db).Read(1)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if log == nil {
				t.Fatalf("Read() returned nil log")
			}
			var got []string
			for _, n := range log {
				got = append(got, n.Note)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreAppendReplacesMalformedLog(t *testing.T) {
	db := memory.New()
	_ = db.UpdateUserMeta(1, MetaKey, func([]byte) ([]byte, error) { return []byte("garbage"), nil })
	s := NewStore(db)

	if err := s.Append(1, Note{Note: "fresh"}); err != nil {
		t.Fatal(err)
	}
	log, _ := s.Read(1)
	if len(log) != 1 || log[0].Note != "fresh" {
		t.Errorf("got %+v", log)
	}
}

type failingMeta struct{ err error }

func (f failingMeta) GetUserMeta(node.UserID, string) ([]byte, error) { return nil, f.err }

func (f failingMeta) UpdateUserMeta(node.UserID, string, database.UpdateFunc) error { return f.err }

func TestStorePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	s := NewStore(failingMeta{boom})
	if _, err := s.Read(1); !errors.Is(err, boom) {
		t.Errorf("Read() error = %v, want %v", err, boom)
	}
	if err := s.Append(1, Note{}); !errors.Is(err, boom) {
		t.Errorf("Append() error = %v, want %v", err, boom)
	}
}
