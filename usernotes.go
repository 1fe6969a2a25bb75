package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/database/cached"
	"github.com/aquilax/usernotes/node"
	"github.com/aquilax/usernotes/nonce"
	"github.com/aquilax/usernotes/usernote"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	topicsPerPage  = 100
	repliesPerPage = 200
)

// App is the forum front end hosting the user notes.
type App struct {
	config  *Config
	db      database.Database
	tp      *TransPool
	tokens  *nonce.Issuer
	store   *usernote.Store
	metrics *Metrics
	logger  *zap.Logger
}

type appHandler func(http.ResponseWriter, *http.Request) error

func NewApp(config *Config, db database.Database, logger *zap.Logger) *App {
	metrics := NewMetrics()
	return &App{
		config: config,
		db:     db,
		tp:     NewTransPool(config.Translations, logger),
		tokens: nonce.New(nonce.Config{
			Secret: []byte(config.TokenSecret),
			TTL:    config.TokenTTL,
		}),
		store:   usernote.NewStore(meteredMeta{MetaStore: db, reads: metrics.logReads}),
		metrics: metrics,
		logger:  logger,
	}
}

// Handler returns the forum router wrapped in request logging and the per-request
// note scope.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", a.metrics.Handler()).Methods("GET")
	r.Handle("/", appHandler(a.indexHandler)).Methods("GET")
	r.Handle("/topic/{topicID}/{slug}", appHandler(a.topicHandler)).Methods("GET", "POST")

	// Static assets
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(a.config.Assets)))

	return logRequests(a.logger)(a.requestScope(r))
}

func (fn appHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := fn(w, r); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		var httpError *HTTPError
		if errors.As(err, &httpError) {
			http.Error(w, httpError.Error(), httpError.Code)
			return
		}
		zap.L().Error("handler_failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type scopeKey struct{}

// scope is everything one request shares: cached lookups, the note request and the
// viewer's language.
type scope struct {
	db    *cached.Cached
	links *permalinks
	notes *usernote.Request
	lang  *Language
}

func scopeFrom(r *http.Request) *scope {
	return r.Context().Value(scopeKey{}).(*scope)
}

// requestScope builds the request scope and handles note submissions before routing.
// A forged submission ends the request with an empty 403.
func (a *App) requestScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		db := cached.New(a.db)
		sc := &scope{
			db:    db,
			links: &permalinks{db: db, base: a.baseURL(r)},
			lang:  a.tp.Get(a.config.Language),
		}
		sc.notes = usernote.NewRequest(a.store, usernote.Host{
			Users:  db,
			Links:  sc.links,
			Tokens: a.tokens,
			Lang:   sc.lang,
			Logger: a.logger,
		}, a.viewer(r, db))

		if r.Method == http.MethodPost {
			sub := usernote.ParseSubmission(r)
			outcome, err := sc.notes.AddNote(sub)
			if sub.SubjectUserID != 0 && outcome != "" {
				a.metrics.submission(outcome)
			}
			if errors.Is(err, usernote.ErrForgery) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if err != nil {
				a.logger.Error("note_add_failed", zap.Int64("subject", sub.SubjectUserID), zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), scopeKey{}, sc)))
	})
}

// viewer resolves the acting user from the trusted proxy header. Unknown or missing
// ids are anonymous.
func (a *App) viewer(r *http.Request, users usernote.UserLookup) *node.User {
	id, ok := parseNodeID(r.Header.Get(a.config.UserHeader))
	if !ok {
		return nil
	}
	u, err := users.GetUser(id)
	if err != nil {
		a.logger.Debug("viewer_lookup_failed", zap.Int64("user", id), zap.Error(err))
		return nil
	}
	return u
}

func (a *App) baseURL(r *http.Request) string {
	if a.config.SiteURL != "" {
		return a.config.SiteURL
	}
	return "http://" + r.Host
}

func (a *App) newSession(sc *scope) *Session {
	s := NewSession(a.config, sc)
	s.AddPath("/", s.Lang("Home"))
	return s
}

func (a *App) indexHandler(w http.ResponseWriter, r *http.Request) error {
	sc := scopeFrom(r)
	topics, err := sc.db.GetChildNodes(node.RootNodeID, topicsPerPage, 0)
	if err != nil {
		return err
	}
	s := a.newSession(sc)
	s.Set("Topics", *topics)
	return s.render(w, "layout.html", "index.html")
}

func (a *App) topicHandler(w http.ResponseWriter, r *http.Request) error {
	sc := scopeFrom(r)
	topicID, ok := parseNodeID(mux.Vars(r)["topicID"])
	if !ok {
		return &HTTPError{Message: "Not found", Code: http.StatusNotFound}
	}
	topic, err := sc.db.GetNode(topicID)
	if err != nil {
		return err
	}
	if topic.Level != node.LevelTopic {
		return &HTTPError{Message: "Not found", Code: http.StatusNotFound}
	}
	threadURL := sc.links.TopicURL(topic)

	if r.Method == http.MethodPost {
		// The note, if any, was stored by requestScope.
		target := threadURL
		if id := usernote.ParseSubmission(r).OriginalItem; id != 0 {
			target += "#post-" + strconv.FormatInt(id, 10)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return nil
	}

	replies, err := sc.db.GetChildNodes(topic.ID, repliesPerPage, 0)
	if err != nil {
		return err
	}
	posts := append(node.NodeList{*topic}, *replies...)

	s := a.newSession(sc)
	s.AddPath("", topic.Title)
	s.Set("Subtitle", topic.Title)
	s.Set("Topic", topic)
	s.Set("Posts", posts)
	s.Set("ThreadURL", threadURL)
	return s.render(w, "layout.html", "topic.html")
}

// permalinks builds absolute topic and reply URLs.
type permalinks struct {
	db   database.Database
	base string
}

func (p *permalinks) TopicURL(topic *node.Node) string {
	return p.base + "/topic/" + strconv.FormatInt(topic.ID, 10) + "/" + hfSlug(topic.Title)
}

// ReplyURL links to a post inside its topic. Lead posts are addressed the same way
// as replies.
func (p *permalinks) ReplyURL(replyID node.NodeID) (string, error) {
	n, err := p.db.GetNode(replyID)
	if err != nil {
		return "", err
	}
	topic := n
	if n.Level != node.LevelTopic {
		if topic, err = p.db.GetNode(n.TopicID()); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%s#post-%d", p.TopicURL(topic), n.ID), nil
}
