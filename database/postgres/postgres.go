package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/node"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	login TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	role TEXT NOT NULL,
	created TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS node (
	id BIGSERIAL PRIMARY KEY,
	parent_id BIGINT NOT NULL,
	author_id BIGINT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	rendered TEXT NOT NULL,
	status INTEGER NOT NULL,
	level INTEGER NOT NULL,
	created TIMESTAMPTZ NOT NULL,
	updated TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS node_parent ON node (parent_id, created);

CREATE TABLE IF NOT EXISTS usermeta (
	user_id BIGINT NOT NULL,
	meta_key TEXT NOT NULL,
	meta_value BYTEA NOT NULL,
	PRIMARY KEY (user_id, meta_key)
);
`

type Postgres struct {
	db *sqlx.DB
}

func New() *Postgres {
	return &Postgres{}
}

func (m *Postgres) Open(database, DSN string) error {
	var err error
	m.db, err = sqlx.Open("postgres", DSN)
	if err != nil {
		return err
	}
	if err := m.db.Ping(); err != nil {
		return err
	}
	_, err = m.db.Exec(schema)
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	return err
}

func (m *Postgres) GetUser(userID node.UserID) (*node.User, error) {
	var u node.User
	if err := m.db.Get(&u, "SELECT * FROM users WHERE id = $1", userID); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (m *Postgres) AddUser(user *node.User) (node.UserID, error) {
	if user.Created.IsZero() {
		user.Created = time.Now()
	}
	err := m.db.Get(&user.ID, `INSERT INTO users (login, display_name, role, created)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		user.Login, user.DisplayName, user.Role, user.Created)
	return user.ID, err
}

func (m *Postgres) GetNode(nodeID node.NodeID) (*node.Node, error) {
	var n node.Node
	if err := m.db.Get(&n, "SELECT * FROM node WHERE id = $1 AND status = $2", nodeID, node.StatusEnabled); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (m *Postgres) GetChildNodes(parentNodeID node.NodeID, count, offset int) (*node.NodeList, error) {
	var nl node.NodeList
	err := m.db.Select(&nl, "SELECT * FROM node WHERE parent_id = $1 AND status = $2 ORDER BY created, id LIMIT $3 OFFSET $4", parentNodeID, node.StatusEnabled, count, offset)
	return &nl, err
}

func (m *Postgres) AddNode(n *node.Node) (node.NodeID, error) {
	now := time.Now()
	if n.Created.IsZero() {
		n.Created = now
	}
	n.Updated = now
	err := m.db.Get(&n.ID, `INSERT INTO node (
			parent_id,
			author_id,
			title,
			body,
			rendered,
			status,
			level,
			created,
			updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		n.ParentID, n.AuthorID, n.Title, n.Body, n.Rendered, n.Status, n.Level, n.Created, n.Updated)
	return n.ID, err
}

func (m *Postgres) GetUserMeta(userID node.UserID, key string) ([]byte, error) {
	var value []byte
	if err := m.db.Get(&value, "SELECT meta_value FROM usermeta WHERE user_id = $1 AND meta_key = $2", userID, key); err != nil {
		return nil, notFound(err)
	}
	if len(value) == 0 {
		return nil, database.ErrNotFound
	}
	return value, nil
}

// UpdateUserMeta inserts an empty placeholder row first so that the row lock also
// covers the very first write for a user.
func (m *Postgres) UpdateUserMeta(userID node.UserID, key string, fn database.UpdateFunc) error {
	tx, err := m.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO usermeta (user_id, meta_key, meta_value) VALUES ($1, $2, '')
		ON CONFLICT (user_id, meta_key) DO NOTHING`, userID, key); err != nil {
		return err
	}
	var current []byte
	if err := tx.Get(&current, "SELECT meta_value FROM usermeta WHERE user_id = $1 AND meta_key = $2 FOR UPDATE", userID, key); err != nil {
		return err
	}
	if len(current) == 0 {
		current = nil
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE usermeta SET meta_value = $3 WHERE user_id = $1 AND meta_key = $2", userID, key, next); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *Postgres) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
