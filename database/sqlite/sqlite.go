package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/node"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	login TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	role TEXT NOT NULL,
	created DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS node (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id INTEGER NOT NULL,
	author_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	rendered TEXT NOT NULL,
	status INTEGER NOT NULL,
	level INTEGER NOT NULL,
	created DATETIME NOT NULL,
	updated DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS node_parent ON node (parent_id, created);

CREATE TABLE IF NOT EXISTS usermeta (
	user_id INTEGER NOT NULL,
	meta_key TEXT NOT NULL,
	meta_value BLOB NOT NULL,
	PRIMARY KEY (user_id, meta_key)
);
`

type SQLite struct {
	db *sqlx.DB
}

func New() *SQLite {
	return &SQLite{}
}

// Open ignores the driver name; the pure Go driver is always registered as "sqlite".
func (m *SQLite) Open(database, DSN string) error {
	var err error
	m.db, err = sqlx.Open("sqlite", DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	// One connection serialises every transaction, so metadata updates cannot interleave.
	m.db.SetMaxOpenConns(1)
	if _, err := m.db.Exec(schema); err != nil {
		m.db.Close()
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	return err
}

func (m *SQLite) GetUser(userID node.UserID) (*node.User, error) {
	var u node.User
	if err := m.db.Get(&u, "SELECT * FROM users WHERE id = ?", userID); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (m *SQLite) AddUser(user *node.User) (node.UserID, error) {
	if user.Created.IsZero() {
		user.Created = time.Now()
	}
	res, err := m.db.NamedExec(`INSERT INTO users (
			login,
			display_name,
			role,
			created
		) VALUES (
			:login,
			:display_name,
			:role,
			:created
		)`, user)
	if err != nil {
		return 0, err
	}
	user.ID, err = res.LastInsertId()
	return user.ID, err
}

func (m *SQLite) GetNode(nodeID node.NodeID) (*node.Node, error) {
	var n node.Node
	if err := m.db.Get(&n, "SELECT * FROM node WHERE id = ? AND status = ?", nodeID, node.StatusEnabled); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (m *SQLite) GetChildNodes(parentNodeID node.NodeID, count, offset int) (*node.NodeList, error) {
	var nl node.NodeList
	err := m.db.Select(&nl, "SELECT * FROM node WHERE parent_id = ? AND status = ? ORDER BY created, id LIMIT ? OFFSET ?", parentNodeID, node.StatusEnabled, count, offset)
	return &nl, err
}

func (m *SQLite) AddNode(n *node.Node) (node.NodeID, error) {
	now := time.Now()
	if n.Created.IsZero() {
		n.Created = now
	}
	n.Updated = now
	res, err := m.db.NamedExec(`INSERT INTO node (
			parent_id,
			author_id,
			title,
			body,
			rendered,
			status,
			level,
			created,
			updated
		) VALUES (
			:parent_id,
			:author_id,
			:title,
			:body,
			:rendered,
			:status,
			:level,
			:created,
			:updated
		)`, n)
	if err != nil {
		return 0, err
	}
	n.ID, err = res.LastInsertId()
	return n.ID, err
}

func (m *SQLite) GetUserMeta(userID node.UserID, key string) ([]byte, error) {
	var value []byte
	if err := m.db.Get(&value, "SELECT meta_value FROM usermeta WHERE user_id = ? AND meta_key = ?", userID, key); err != nil {
		return nil, notFound(err)
	}
	return value, nil
}

func (m *SQLite) UpdateUserMeta(userID node.UserID, key string, fn database.UpdateFunc) error {
	tx, err := m.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var current []byte
	err = tx.Get(&current, "SELECT meta_value FROM usermeta WHERE user_id = ? AND meta_key = ?", userID, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO usermeta (user_id, meta_key, meta_value) VALUES (?, ?, ?)
		ON CONFLICT (user_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value`, userID, key, next); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *SQLite) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
