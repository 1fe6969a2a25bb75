package main

import (
	"fmt"
	"io"
	"time"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/node"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Users  []seedUser  `yaml:"users"`
	Topics []seedTopic `yaml:"topics"`
}

type seedUser struct {
	Login       string `yaml:"login"`
	DisplayName string `yaml:"display_name"`
	Role        string `yaml:"role"`
}

type seedPost struct {
	Author string `yaml:"author"`
	Body   string `yaml:"body"`
}

type seedTopic struct {
	Title    string     `yaml:"title"`
	seedPost `yaml:",inline"`
	Replies  []seedPost `yaml:"replies"`
}

type seedResult struct {
	Users, Topics, Replies int
}

// seed loads a fixture file. Posts reference users by login and are created one
// second apart so they keep the file's order.
func seed(db database.Database, r io.Reader, now func() time.Time) (seedResult, error) {
	var res seedResult
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return res, fmt.Errorf("parse fixtures: %w", err)
	}

	created := now().UTC().Truncate(time.Second)
	logins := make(map[string]node.UserID)
	for _, su := range f.Users {
		if su.Login == "" {
			return res, fmt.Errorf("user without login")
		}
		role := su.Role
		if role == "" {
			role = node.RoleParticipant
		}
		name := su.DisplayName
		if name == "" {
			name = su.Login
		}
		id, err := db.AddUser(&node.User{Login: su.Login, DisplayName: name, Role: role, Created: created})
		if err != nil {
			return res, fmt.Errorf("add user %s: %w", su.Login, err)
		}
		logins[su.Login] = id
		res.Users++
	}

	addPost := func(p seedPost, parent node.NodeID, title string, level int) (node.NodeID, error) {
		author, ok := logins[p.Author]
		if !ok {
			return 0, fmt.Errorf("unknown author %q", p.Author)
		}
		created = created.Add(time.Second)
		return db.AddNode(&node.Node{
			ParentID: parent,
			AuthorID: author,
			Title:    title,
			Body:     p.Body,
			Rendered: renderText(p.Body),
			Status:   node.StatusEnabled,
			Level:    level,
			Created:  created,
			Updated:  created,
		})
	}

	for _, st := range f.Topics {
		topicID, err := addPost(st.seedPost, node.RootNodeID, st.Title, node.LevelTopic)
		if err != nil {
			return res, fmt.Errorf("topic %q: %w", st.Title, err)
		}
		res.Topics++
		for _, sr := range st.Replies {
			if _, err := addPost(sr, topicID, "", node.LevelReply); err != nil {
				return res, fmt.Errorf("reply in %q: %w", st.Title, err)
			}
			res.Replies++
		}
	}
	return res, nil
}
