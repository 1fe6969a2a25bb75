package usernote

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"script dropped with content", `<script>alert(1)</script><a href="http://x">link</a>`, `<a href="http://x">link</a>`},
		{"plain text untouched", "spams links in every thread", "spams links in every thread"},
		{"formatting stripped", "<b>bold</b> and <em>em</em>", "bold and em"},
		{"other anchor attributes removed", `<a href="https://example.com/p" onclick="steal()" title="t">p</a>`, `<a href="https://example.com/p">p</a>`},
		{"relative link kept", `<a href="/topic/3/x.html">earlier</a>`, `<a href="/topic/3/x.html">earlier</a>`},
		{"javascript link loses its tag", `<a href="javascript:alert(1)">click</a>`, "click"},
		{"images removed", `<img src="http://x/a.png">warned`, "warned"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize() = %q, want %q", got, tt.want)
			}
		})
	}
}
