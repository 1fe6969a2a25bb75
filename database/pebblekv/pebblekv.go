// Package pebblekv stores users, forum nodes and user metadata in a Pebble key/value
// database. Records are JSON encoded; replies are found through a parent index.
package pebblekv

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/node"
	"github.com/cockroachdb/pebble"
)

// Key layout:
//
//	user:<id>               json node.User
//	node:<id>               json node.Node
//	child:<parent>:<id>     empty, reply index in insertion order
//	meta:<user>:<key>       raw metadata value
//	seq:<name>              last issued id
const (
	seqUser = "seq:user"
	seqNode = "seq:node"
)

func userKey(id node.UserID) []byte { return []byte(fmt.Sprintf("user:%020d", id)) }
func nodeKey(id node.NodeID) []byte { return []byte(fmt.Sprintf("node:%020d", id)) }
func childPrefix(parent node.NodeID) string {
	return fmt.Sprintf("child:%020d:", parent)
}
func metaKey(userID node.UserID, key string) []byte {
	return []byte(fmt.Sprintf("meta:%020d:%s", userID, key))
}

type Pebble struct {
	db *pebble.DB
	// writes serialises sequence allocation and read-modify-write updates.
	writes sync.Mutex
}

func New() *Pebble {
	return &Pebble{}
}

// Open treats dsn as the database directory.
func (m *Pebble) Open(database, dsn string) error {
	var err error
	m.db, err = pebble.Open(dsn, &pebble.Options{})
	return err
}

func (m *Pebble) get(key []byte) ([]byte, error) {
	v, closer, err := m.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (m *Pebble) getJSON(key []byte, v interface{}) error {
	data, err := m.get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// next must be called with writes held.
func (m *Pebble) next(seq string) (int64, error) {
	var last int64
	data, err := m.get([]byte(seq))
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		if last, err = strconv.ParseInt(string(data), 10, 64); err != nil {
			return 0, fmt.Errorf("corrupt sequence %s: %w", seq, err)
		}
	}
	return last + 1, nil
}

func (m *Pebble) GetUser(userID node.UserID) (*node.User, error) {
	var u node.User
	if err := m.getJSON(userKey(userID), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *Pebble) AddUser(user *node.User) (node.UserID, error) {
	m.writes.Lock()
	defer m.writes.Unlock()
	id, err := m.next(seqUser)
	if err != nil {
		return 0, err
	}
	user.ID = id
	if user.Created.IsZero() {
		user.Created = time.Now()
	}
	data, err := json.Marshal(user)
	if err != nil {
		return 0, err
	}
	b := m.db.NewBatch()
	defer b.Close()
	if err := b.Set(userKey(id), data, nil); err != nil {
		return 0, err
	}
	if err := b.Set([]byte(seqUser), []byte(strconv.FormatInt(id, 10)), nil); err != nil {
		return 0, err
	}
	return id, b.Commit(pebble.Sync)
}

func (m *Pebble) GetNode(nodeID node.NodeID) (*node.Node, error) {
	var n node.Node
	if err := m.getJSON(nodeKey(nodeID), &n); err != nil {
		return nil, err
	}
	if n.Status != node.StatusEnabled {
		return nil, database.ErrNotFound
	}
	return &n, nil
}

func (m *Pebble) GetChildNodes(parentNodeID node.NodeID, count, offset int) (*node.NodeList, error) {
	prefix := childPrefix(parentNodeID)
	iter, err := m.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: []byte(prefix + "~"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	nl := node.NodeList{}
	skipped := 0
	for iter.First(); iter.Valid() && len(nl) < count; iter.Next() {
		id, err := strconv.ParseInt(string(iter.Key()[len(prefix):]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt child key %q: %w", iter.Key(), err)
		}
		n, err := m.GetNode(id)
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if skipped < offset {
			skipped++
			continue
		}
		nl = append(nl, *n)
	}
	return &nl, iter.Error()
}

func (m *Pebble) AddNode(n *node.Node) (node.NodeID, error) {
	m.writes.Lock()
	defer m.writes.Unlock()
	id, err := m.next(seqNode)
	if err != nil {
		return 0, err
	}
	n.ID = id
	now := time.Now()
	if n.Created.IsZero() {
		n.Created = now
	}
	n.Updated = now
	data, err := json.Marshal(n)
	if err != nil {
		return 0, err
	}
	b := m.db.NewBatch()
	defer b.Close()
	if err := b.Set(nodeKey(id), data, nil); err != nil {
		return 0, err
	}
	if err := b.Set([]byte(fmt.Sprintf("%s%020d", childPrefix(n.ParentID), id)), nil, nil); err != nil {
		return 0, err
	}
	if err := b.Set([]byte(seqNode), []byte(strconv.FormatInt(id, 10)), nil); err != nil {
		return 0, err
	}
	return id, b.Commit(pebble.Sync)
}

func (m *Pebble) GetUserMeta(userID node.UserID, key string) ([]byte, error) {
	return m.get(metaKey(userID, key))
}

func (m *Pebble) UpdateUserMeta(userID node.UserID, key string, fn database.UpdateFunc) error {
	m.writes.Lock()
	defer m.writes.Unlock()
	k := metaKey(userID, key)
	current, err := m.get(k)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	return m.db.Set(k, next, pebble.Sync)
}

func (m *Pebble) Close() error {
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}
