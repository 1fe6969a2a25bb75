package usernote

import (
	"fmt"
	"time"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/database/memory"
	"github.com/aquilax/usernotes/node"
	"github.com/aquilax/usernotes/nonce"
)

var testNow = time.Date(2024, 3, 9, 14, 30, 15, 500, time.UTC)

type plainLang struct{}

func (plainLang) Lang(text string) string { return text }

func (plainLang) FormatTime(t time.Time) string { return t.Format("2006-01-02 15:04:05") }

type testLinks struct{}

func (testLinks) ReplyURL(replyID node.NodeID) (string, error) {
	if replyID == 0 {
		return "", database.ErrNotFound
	}
	return fmt.Sprintf("http://forum.test/topic/1/t.html#post-%d", replyID), nil
}

// countingMeta counts note log reads.
type countingMeta struct {
	*memory.Memory
	reads int
}

func (c *countingMeta) GetUserMeta(userID node.UserID, key string) ([]byte, error) {
	c.reads++
	return c.Memory.GetUserMeta(userID, key)
}

// countingUsers counts user lookups.
type countingUsers struct {
	*memory.Memory
	lookups map[node.UserID]int
}

func (c *countingUsers) GetUser(userID node.UserID) (*node.User, error) {
	c.lookups[userID]++
	return c.Memory.GetUser(userID)
}

type fixture struct {
	db        *memory.Memory
	meta      *countingMeta
	users     *countingUsers
	tokens    *nonce.Issuer
	store     *Store
	moderator *node.User
	member    *node.User
}

func newFixture() *fixture {
	db := memory.New()
	f := &fixture{
		db:     db,
		meta:   &countingMeta{Memory: db},
		users:  &countingUsers{Memory: db, lookups: make(map[node.UserID]int)},
		tokens: nonce.New(nonce.Config{Secret: []byte("test-secret-0123456789"), Clock: func() time.Time { return testNow }}),
	}
	f.store = NewStore(f.meta)
	f.moderator = f.addUser("mod", "The Moderator", node.RoleModerator)
	f.member = f.addUser("member", "A Member", node.RoleParticipant)
	return f
}

func (f *fixture) addUser(login, name, role string) *node.User {
	u := &node.User{Login: login, DisplayName: name, Role: role}
	if _, err := f.db.AddUser(u); err != nil {
		panic(err)
	}
	return u
}

func (f *fixture) request(viewer *node.User) *Request {
	return NewRequest(f.store, Host{
		Users:  f.users,
		Links:  testLinks{},
		Tokens: f.tokens,
		Lang:   plainLang{},
		Now:    func() time.Time { return testNow },
	}, viewer)
}

func (f *fixture) token(subject node.UserID, viewer *node.User) string {
	token, err := f.tokens.Issue(addScope(subject), viewer.ID)
	if err != nil {
		panic(err)
	}
	return token
}
