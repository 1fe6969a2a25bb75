// Package usernote lets moderators keep an append-only log of notes on forum users and
// renders those notes next to the user's replies.
//
// All state lives in a Request, created when an HTTP request starts and dropped when it
// ends. It memoizes author lookups and formatted notes so a user with many replies on a
// page costs one store read.
package usernote

import (
	"html/template"
	"time"

	"github.com/aquilax/usernotes/node"
	"go.uber.org/zap"
)

// UserLookup resolves user ids; missing users yield database.ErrNotFound.
type UserLookup interface {
	GetUser(userID node.UserID) (*node.User, error)
}

// Permalinks builds absolute reply URLs.
type Permalinks interface {
	ReplyURL(replyID node.NodeID) (string, error)
}

// Tokens issues and checks forgery tokens bound to a scope and the acting user.
type Tokens interface {
	Issue(scope string, userID int64) (string, error)
	Verify(scope string, userID int64, token string) bool
}

type Localizer interface {
	Lang(text string) string
	FormatTime(t time.Time) string
}

// Host bundles the platform services a Request calls into.
type Host struct {
	Users  UserLookup
	Links  Permalinks
	Tokens Tokens
	Lang   Localizer
	Logger *zap.Logger
	Now    func() time.Time
}

// Item is the reply currently being rendered.
type Item struct {
	ID        node.NodeID
	AuthorID  node.UserID
	ThreadURL string
}

type Request struct {
	store  *Store
	host   Host
	viewer *node.User

	// authors holds nil for ids that did not resolve.
	authors map[node.UserID]*node.User
	notes   map[node.UserID][]template.HTML
}

// NewRequest starts a render pass for viewer, which is nil for anonymous visitors.
func NewRequest(store *Store, host Host, viewer *node.User) *Request {
	if host.Logger == nil {
		host.Logger = zap.NewNop()
	}
	if host.Now == nil {
		host.Now = time.Now
	}
	return &Request{
		store:   store,
		host:    host,
		viewer:  viewer,
		authors: make(map[node.UserID]*node.User),
		notes:   make(map[node.UserID][]template.HTML),
	}
}

// CanModerate is the single authorization check for reading and writing notes.
func (r *Request) CanModerate() bool {
	return r.viewer.Can(node.CapModerate)
}

func (r *Request) Viewer() *node.User {
	return r.viewer
}
