package main

import (
	"strconv"

	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var ugcPolicy = bluemonday.UGCPolicy()

func hfSlug(s string) string {
	return slug.Make(s) + ".html"
}

func parseNodeID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// renderText turns a markdown post body into sanitized HTML.
func renderText(t string) string {
	extensions := blackfriday.CommonExtensions |
		blackfriday.Autolink |
		blackfriday.HardLineBreak |
		blackfriday.NoIntraEmphasis |
		blackfriday.Strikethrough

	htmlFlags := blackfriday.UseXHTML |
		blackfriday.Smartypants |
		blackfriday.SmartypantsFractions

	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: htmlFlags})
	unsafe := blackfriday.Run([]byte(t), blackfriday.WithExtensions(extensions), blackfriday.WithRenderer(renderer))
	return string(ugcPolicy.SanitizeBytes(unsafe))
}
