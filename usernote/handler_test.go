package usernote

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseSubmission(t *testing.T) {
	form := url.Values{
		"note-text":        {"hello"},
		"subject-user-id":  {" 12 "},
		"original-item-id": {"x9"},
		"forgery-token":    {"tok"},
	}
	r := httptest.NewRequest(http.MethodPost, "/topic/1/t.html", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	got := ParseSubmission(r)
	want := Submission{Text: "hello", SubjectUserID: 12, OriginalItem: 0, Token: "tok"}
	if got != want {
		t.Errorf("ParseSubmission() = %+v, want %+v", got, want)
	}
}

func TestAddNote(t *testing.T) {
	Convey("Given a moderator submitting a note about a member", t, func() {
		f := newFixture()
		subject := f.member.ID
		sub := Submission{
			Text:          `<script>alert(1)</script><a href="http://x">link</a>`,
			SubjectUserID: subject,
			OriginalItem:  4,
			Token:         f.token(subject, f.moderator),
		}

		Convey("The sanitized note is appended", func() {
			outcome, err := f.request(f.moderator).AddNote(sub)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, Added)

			log, err := f.store.Read(subject)
			So(err, ShouldBeNil)
			So(log, ShouldHaveLength, 1)
			So(log[0].Note, ShouldEqual, `<a href="http://x">link</a>`)
			So(log[0].Author, ShouldEqual, f.moderator.ID)
			So(log[0].Post, ShouldEqual, "http://forum.test/topic/1/t.html#post-4")
			So(log[0].Time.Equal(testNow.Truncate(time.Second)), ShouldBeTrue)
		})

		Convey("The same request renders the new note", func() {
			r := f.request(f.moderator)
			notes, _ := r.Notes(subject)
			So(notes, ShouldBeEmpty)
			_, err := r.AddNote(sub)
			So(err, ShouldBeNil)
			notes, _ = r.Notes(subject)
			So(notes, ShouldHaveLength, 1)
		})

		Convey("Empty text is ignored", func() {
			sub.Text = "  \n "
			outcome, err := f.request(f.moderator).AddNote(sub)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, SkippedEmpty)
		})

		Convey("Text that sanitizes to nothing is ignored", func() {
			sub.Text = "<script>alert(1)</script>"
			outcome, err := f.request(f.moderator).AddNote(sub)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, SkippedEmpty)
			log, _ := f.store.Read(subject)
			So(log, ShouldBeEmpty)
		})

		Convey("Non-moderators are ignored before the token is checked", func() {
			sub.Token = "forged"
			outcome, err := f.request(f.member).AddNote(sub)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, SkippedForbidden)
			outcome, err = f.request(nil).AddNote(sub)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, SkippedForbidden)
		})

		Convey("A token for another subject aborts and leaves the log unchanged", func() {
			sub.Token = f.token(subject+1, f.moderator)
			outcome, err := f.request(f.moderator).AddNote(sub)
			So(err, ShouldEqual, ErrForgery)
			So(outcome, ShouldEqual, RejectedForgery)
			log, _ := f.store.Read(subject)
			So(log, ShouldBeEmpty)
		})

		Convey("A token issued to another moderator aborts", func() {
			other := f.addUser("mod2", "Other Mod", "keymaster")
			sub.Token = f.token(subject, other)
			_, err := f.request(f.moderator).AddNote(sub)
			So(err, ShouldEqual, ErrForgery)
		})

		Convey("A missing token aborts", func() {
			sub.Token = ""
			_, err := f.request(f.moderator).AddNote(sub)
			So(err, ShouldEqual, ErrForgery)
		})

		Convey("An unknown subject is ignored and nothing is stored", func() {
			sub.SubjectUserID = 4242
			sub.Token = f.token(4242, f.moderator)
			outcome, err := f.request(f.moderator).AddNote(sub)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, SkippedUnknownSubject)
			_, err = f.db.GetUserMeta(4242, MetaKey)
			So(err, ShouldNotBeNil)
			log, _ := f.store.Read(subject)
			So(log, ShouldBeEmpty)
		})

		Convey("An unknown reply stores the note without permalink", func() {
			sub.OriginalItem = 0
			outcome, err := f.request(f.moderator).AddNote(sub)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, Added)
			log, _ := f.store.Read(subject)
			So(log[0].Post, ShouldEqual, "")
		})
	})
}
