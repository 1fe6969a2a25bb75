package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/node"
)

type metaKey struct {
	userID node.UserID
	key    string
}

type Memory struct {
	mu     sync.RWMutex
	users  map[node.UserID]node.User
	nl     node.NodeList
	meta   map[metaKey][]byte
	lastID int64
}

func New() *Memory {
	return &Memory{
		users: make(map[node.UserID]node.User),
		meta:  make(map[metaKey][]byte),
	}
}

func min(value int, values ...int) int {
	for _, v := range values {
		if v < value {
			value = v
		}
	}
	return value
}

func find(nl node.NodeList, filter func(n node.Node) bool) node.NodeList {
	var result node.NodeList
	for _, n := range nl {
		if filter(n) {
			result = append(result, n)
		}
	}
	return result
}

func (m *Memory) Open(database, dsn string) error {
	return nil
}

func (m *Memory) nextID() int64 {
	m.lastID++
	return m.lastID
}

func (m *Memory) GetUser(userID node.UserID) (*node.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, found := m.users[userID]
	if !found {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) AddUser(user *node.User) (node.UserID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.nextID()
	if user.Created.IsZero() {
		user.Created = time.Now()
	}
	m.users[user.ID] = *user
	return user.ID, nil
}

func (m *Memory) GetNode(nodeID node.NodeID) (*node.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := find(m.nl, func(n node.Node) bool {
		return n.ID == nodeID && n.Status == node.StatusEnabled
	})
	if len(found) > 0 {
		return &found[0], nil
	}
	return nil, database.ErrNotFound
}

func (m *Memory) GetChildNodes(parentNodeID node.NodeID, count, offset int) (*node.NodeList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := find(m.nl, func(n node.Node) bool {
		return n.ParentID == parentNodeID && n.Status == node.StatusEnabled
	})
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Created.Before(found[j].Created)
	})
	if offset > len(found) {
		offset = len(found)
	}
	result := found[offset:min(len(found), offset+count)]
	return &result, nil
}

func (m *Memory) AddNode(n *node.Node) (node.NodeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = m.nextID()
	now := time.Now()
	if n.Created.IsZero() {
		n.Created = now
	}
	n.Updated = now
	m.nl = append(m.nl, *n)
	return n.ID, nil
}

func (m *Memory) GetUserMeta(userID node.UserID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, found := m.meta[metaKey{userID, key}]
	if !found {
		return nil, database.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) UpdateUserMeta(userID node.UserID, key string, fn database.UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := metaKey{userID, key}
	var current []byte
	if value, found := m.meta[k]; found {
		current = append([]byte(nil), value...)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	m.meta[k] = next
	return nil
}

func (m *Memory) Close() error {
	return nil
}
