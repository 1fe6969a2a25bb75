package node

import (
	"time"
)

type NodeID = int64
type UserID = int64

const RootNodeID NodeID = 0

const (
	LevelTopic = iota
	LevelReply
)

const StatusEnabled = 1

type Node struct {
	ID       NodeID    `db:"id" json:"id"`
	ParentID NodeID    `db:"parent_id" json:"parent_id"`
	AuthorID UserID    `db:"author_id" json:"author_id"`
	Title    string    `db:"title" json:"title"`
	Body     string    `db:"body" json:"body"`
	Rendered string    `db:"rendered" json:"rendered"`
	Status   int       `db:"status" json:"status"`
	Level    int       `db:"level" json:"level"`
	Created  time.Time `db:"created" json:"created"`
	Updated  time.Time `db:"updated" json:"updated"`
}

type NodeList []Node

// TopicID returns the id of the topic the node belongs to.
func (n *Node) TopicID() NodeID {
	if n.Level == LevelTopic {
		return n.ID
	}
	return n.ParentID
}

const (
	RoleParticipant = "participant"
	RoleModerator   = "moderator"
	RoleKeymaster   = "keymaster"
)

// CapModerate allows reading and writing user notes.
const CapModerate = "moderate"

var roleCaps = map[string][]string{
	RoleParticipant: {},
	RoleModerator:   {CapModerate},
	RoleKeymaster:   {CapModerate},
}

type User struct {
	ID          UserID    `db:"id" json:"id"`
	Login       string    `db:"login" json:"login"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Role        string    `db:"role" json:"role"`
	Created     time.Time `db:"created" json:"created"`
}

// Can reports whether the user's role grants capability.
func (u *User) Can(capability string) bool {
	if u == nil {
		return false
	}
	for _, c := range roleCaps[u.Role] {
		if c == capability {
			return true
		}
	}
	return false
}
