package richtext

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// IsEmojiOnly reports whether a message consists of nothing but emoji once
// wrapper markup, whitespace and &nbsp; entities are removed. Inline <img>
// tags marked as emoji (class "emoji" or a data-emoji attribute) count as
// emoji.
func IsEmojiOnly(raw string) bool {
	emoji := 0
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		token := z.Token()

		switch tt {
		case html.TextToken:
			for _, r := range token.Data {
				switch {
				case unicode.IsSpace(r):
				case isEmojiModifier(r):
				case isEmojiRune(r):
					emoji++
				default:
					return false
				}
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			if token.Data == "img" {
				if !isEmojiImage(token) {
					return false
				}
				emoji++
			}
		}
	}
	return emoji > 0
}

func isEmojiImage(token html.Token) bool {
	for _, attr := range token.Attr {
		switch attr.Key {
		case "data-emoji":
			return true
		case "class":
			for _, class := range strings.Fields(attr.Val) {
				if class == "emoji" || strings.HasSuffix(class, "-emoji") {
					return true
				}
			}
		}
	}
	return false
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r == 0x00A9 || r == 0x00AE || r == 0x203C || r == 0x2049 || r == 0x2122:
		return true
	}
	return unicode.Is(unicode.So, r)
}

// Joiners, variation selectors, skin tones and keycaps never stand alone.
func isEmojiModifier(r rune) bool {
	switch {
	case r == 0x200D, r == 0xFE0E, r == 0xFE0F, r == 0x20E3:
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r >= 0xE0020 && r <= 0xE007F:
		return true
	}
	return false
}
