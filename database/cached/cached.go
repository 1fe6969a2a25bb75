// Package cached wraps a database with read-through caches for users and nodes.
// A Cached value is meant to live for a single request: entries never expire and
// nothing is shared between instances, so it needs no locking.
package cached

import (
	"errors"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/node"
)

type GetUserCache map[node.UserID]*node.User
type GetNodeCache map[node.NodeID]*node.Node

type Cached struct {
	db        database.Database
	userCache GetUserCache
	nodeCache GetNodeCache
}

func New(db database.Database) *Cached {
	return &Cached{
		db:        db,
		userCache: make(GetUserCache),
		nodeCache: make(GetNodeCache),
	}
}

func (m *Cached) Open(database, dsn string) error {
	return m.db.Open(database, dsn)
}

// GetUser caches misses as a nil entry so an unknown id is looked up once.
func (m *Cached) GetUser(userID node.UserID) (*node.User, error) {
	if result, found := m.userCache[userID]; found {
		if result == nil {
			return nil, database.ErrNotFound
		}
		return result, nil
	}
	result, err := m.db.GetUser(userID)
	switch {
	case err == nil:
		m.userCache[userID] = result
	case errors.Is(err, database.ErrNotFound):
		m.userCache[userID] = nil
	}
	return result, err
}

func (m *Cached) AddUser(user *node.User) (node.UserID, error) {
	id, err := m.db.AddUser(user)
	if err == nil {
		delete(m.userCache, id)
	}
	return id, err
}

func (m *Cached) GetNode(nodeID node.NodeID) (*node.Node, error) {
	if result, found := m.nodeCache[nodeID]; found {
		if result == nil {
			return nil, database.ErrNotFound
		}
		return result, nil
	}
	result, err := m.db.GetNode(nodeID)
	switch {
	case err == nil:
		m.nodeCache[nodeID] = result
	case errors.Is(err, database.ErrNotFound):
		m.nodeCache[nodeID] = nil
	}
	return result, err
}

// GetChildNodes is not cached but primes the node cache with the returned nodes.
func (m *Cached) GetChildNodes(parentNodeID node.NodeID, count, offset int) (*node.NodeList, error) {
	nl, err := m.db.GetChildNodes(parentNodeID, count, offset)
	if err != nil {
		return nl, err
	}
	for i := range *nl {
		n := (*nl)[i]
		m.nodeCache[n.ID] = &n
	}
	return nl, nil
}

func (m *Cached) AddNode(n *node.Node) (node.NodeID, error) {
	id, err := m.db.AddNode(n)
	if err == nil {
		delete(m.nodeCache, id)
	}
	return id, err
}

func (m *Cached) GetUserMeta(userID node.UserID, key string) ([]byte, error) {
	return m.db.GetUserMeta(userID, key)
}

func (m *Cached) UpdateUserMeta(userID node.UserID, key string, fn database.UpdateFunc) error {
	return m.db.UpdateUserMeta(userID, key, fn)
}

// Close is a no-op: the wrapped database outlives the request.
func (m *Cached) Close() error {
	return nil
}
