package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keeps formatting", "<p>Hello <strong>world</strong></p>", "<p>Hello <strong>world</strong></p>"},
		{"drops script content", "<p>Hi<script>alert(1)</script></p>", "<p>Hi</p>"},
		{"unwraps unknown tags", "<div>text</div>", "text"},
		{"drops unsafe href and handlers", `<a href="javascript:alert(1)" onclick="x">link</a>`, "<a>link</a>"},
		{"keeps safe link", `<a href="https://example.com" target="_blank">x</a>`, `<a href="https://example.com" target="_blank" rel="noopener noreferrer">x</a>`},
		{"closes open tags", "<em>hi", "<em>hi</em>"},
		{"escapes text", "1 < 2 & 3", "1 &lt; 2 &amp; 3"},
		{"ignores stray end tags", "a</b>c", "ac"},
		{"closes self-closing tags", `<b/>hi <a href="https://x" target="_blank"/>there`, `<b></b>hi <a href="https://x" target="_blank" rel="noopener noreferrer"></a>there`},
		{"keeps line breaks void", "a<br/>b", "a<br>b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello there\nSecond", PlainText("<p>Hello&nbsp;<b>there</b></p><p>Second</p>"))
	assert.Equal(t, "a\nb", PlainText("a<br>b"))
	assert.Equal(t, "visible", PlainText("<style>p{}</style>visible"))
	assert.Equal(t, "", PlainText("   "))
}

func TestIsEmojiOnly(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"😀", true},
		{"😀 &nbsp;👍", true},
		{"<p>🎉</p>", true},
		{"👍🏽", true},
		{"❤️", true},
		{`<img class="emoji" src="smile.png">`, true},
		{"hi 😀", false},
		{"", false},
		{"&nbsp;", false},
		{`<img src="photo.png">`, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEmojiOnly(tt.in), tt.in)
	}
}
