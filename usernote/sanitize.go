package usernote

import (
	"github.com/microcosm-cc/bluemonday"
)

var notePolicy = newNotePolicy()

// newNotePolicy keeps links and nothing else: <a> with an href, all other markup
// removed and <script>/<style> dropped together with their content.
func newNotePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowAttrs("href").OnElements("a")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}

// Sanitize strips note text down to plain text and links.
func Sanitize(text string) string {
	return notePolicy.Sanitize(text)
}
