package database

import (
	"errors"

	"github.com/aquilax/usernotes/node"
)

// ErrNotFound is returned by every backend for missing users, nodes and metadata keys.
var ErrNotFound = errors.New("not found")

// UpdateFunc receives the current metadata value (nil when absent) and returns the
// value to store.
type UpdateFunc func(current []byte) ([]byte, error)

type Database interface {
	Open(database, dsn string) error
	Close() error

	GetUser(userID node.UserID) (*node.User, error)
	AddUser(user *node.User) (node.UserID, error)

	GetNode(nodeID node.NodeID) (*node.Node, error)
	GetChildNodes(parentNodeID node.NodeID, count, offset int) (*node.NodeList, error)
	AddNode(n *node.Node) (node.NodeID, error)

	GetUserMeta(userID node.UserID, key string) ([]byte, error)
	// UpdateUserMeta runs fn and stores its result atomically with respect to other
	// updates of the same user and key.
	UpdateUserMeta(userID node.UserID, key string, fn UpdateFunc) error
}
