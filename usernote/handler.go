package usernote

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aquilax/usernotes/database"
	"github.com/aquilax/usernotes/node"
	"go.uber.org/zap"
)

// ErrForgery aborts the request: the form token did not match the subject and the
// acting user.
var ErrForgery = errors.New("usernote: invalid forgery token")

// Outcome tells what AddNote did with a submission.
type Outcome string

const (
	Added                 Outcome = "added"
	SkippedEmpty          Outcome = "empty"
	SkippedForbidden      Outcome = "forbidden"
	SkippedUnknownSubject Outcome = "unknown_subject"
	RejectedForgery       Outcome = "forgery"
)

// Submission is the add-note form as posted.
type Submission struct {
	Text          string
	SubjectUserID node.UserID
	OriginalItem  node.NodeID
	Token         string
}

// ParseSubmission reads the add-note fields from a posted form. Ids that are not
// numbers become 0, which never names a user or reply.
func ParseSubmission(r *http.Request) Submission {
	return Submission{
		Text:          r.PostFormValue(fieldText),
		SubjectUserID: parseID(r.PostFormValue(fieldSubject)),
		OriginalItem:  parseID(r.PostFormValue(fieldOriginalItem)),
		Token:         r.PostFormValue(fieldToken),
	}
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// AddNote appends the submitted note to the subject's log. Submissions without text,
// from non-moderators or about unknown users are ignored without error. A bad token
// returns ErrForgery and nothing is written.
func (r *Request) AddNote(sub Submission) (Outcome, error) {
	log := r.host.Logger.With(zap.Int64("subject", sub.SubjectUserID))
	if strings.TrimSpace(sub.Text) == "" {
		return SkippedEmpty, nil
	}
	if !r.CanModerate() {
		log.Debug("note_skipped_not_moderator")
		return SkippedForbidden, nil
	}
	if !r.host.Tokens.Verify(addScope(sub.SubjectUserID), r.viewer.ID, sub.Token) {
		log.Warn("note_forgery_rejected", zap.Int64("viewer", r.viewer.ID))
		return RejectedForgery, ErrForgery
	}
	if _, err := r.host.Users.GetUser(sub.SubjectUserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Debug("note_skipped_unknown_subject")
			return SkippedUnknownSubject, nil
		}
		return "", err
	}
	body := Sanitize(sub.Text)
	if strings.TrimSpace(body) == "" {
		log.Debug("note_skipped_empty_after_sanitize")
		return SkippedEmpty, nil
	}
	post, err := r.host.Links.ReplyURL(sub.OriginalItem)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return "", fmt.Errorf("reply url %d: %w", sub.OriginalItem, err)
	}
	note := Note{
		Note:   body,
		Time:   r.host.Now().Truncate(time.Second),
		Post:   post,
		Author: r.viewer.ID,
	}
	if err := r.store.Append(sub.SubjectUserID, note); err != nil {
		return "", err
	}
	delete(r.notes, sub.SubjectUserID)
	log.Info("note_added", zap.Int64("author", r.viewer.ID))
	return Added, nil
}
