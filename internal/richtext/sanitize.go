// Package richtext cleans the HTML snippets produced by the chat composer
// and the resume builder.
package richtext

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

var allowedTags = map[string]map[string]bool{
	"p":          {},
	"br":         {},
	"strong":     {},
	"b":          {},
	"em":         {},
	"i":          {},
	"u":          {},
	"s":          {},
	"ul":         {},
	"ol":         {},
	"li":         {},
	"code":       {},
	"pre":        {},
	"blockquote": {},
	"span":       {"class": true},
	"a":          {"href": true, "target": true},
}

// Elements whose content is dropped together with the element.
var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"template": true,
	"noscript": true,
	"textarea": true,
}

var blockTags = map[string]bool{
	"p": true, "br": true, "li": true, "div": true, "blockquote": true,
	"pre": true, "h1": true, "h2": true, "h3": true, "h4": true, "tr": true,
}

// Sanitize keeps a small allow-list of formatting tags and attributes and
// strips everything else. Text of removed tags is kept, except for script-like
// elements whose content is dropped as well.
func Sanitize(raw string) string {
	var out strings.Builder
	var open []string
	skipDepth := 0
	skipTag := ""

	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				return ""
			}
			break
		}
		token := z.Token()

		if skipDepth > 0 {
			switch {
			case tt == html.StartTagToken && token.Data == skipTag:
				skipDepth++
			case tt == html.EndTagToken && token.Data == skipTag:
				skipDepth--
			}
			continue
		}

		switch tt {
		case html.TextToken:
			out.WriteString(html.EscapeString(token.Data))
		case html.StartTagToken, html.SelfClosingTagToken:
			if droppedTags[token.Data] {
				if tt == html.StartTagToken {
					skipDepth = 1
					skipTag = token.Data
				}
				continue
			}
			attrs, ok := allowedTags[token.Data]
			if !ok {
				continue
			}
			writeStartTag(&out, token, attrs)
			if token.Data == "br" {
				continue
			}
			if tt == html.SelfClosingTagToken {
				out.WriteString("</" + token.Data + ">")
				continue
			}
			open = append(open, token.Data)
		case html.EndTagToken:
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] != token.Data {
					continue
				}
				for j := len(open) - 1; j >= i; j-- {
					out.WriteString("</" + open[j] + ">")
				}
				open = open[:i]
				break
			}
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		out.WriteString("</" + open[i] + ">")
	}
	return out.String()
}

func writeStartTag(out *strings.Builder, token html.Token, allowed map[string]bool) {
	out.WriteString("<" + token.Data)
	blank := false
	for _, attr := range token.Attr {
		key := strings.ToLower(attr.Key)
		if !allowed[key] || attr.Namespace != "" {
			continue
		}
		value := strings.TrimSpace(attr.Val)
		switch key {
		case "href":
			if !safeHref(value) {
				continue
			}
		case "target":
			if value != "_blank" {
				continue
			}
			blank = true
		}
		out.WriteString(" " + key + `="` + html.EscapeString(value) + `"`)
	}
	if blank {
		out.WriteString(` rel="noopener noreferrer"`)
	}
	out.WriteString(">")
}

func safeHref(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto":
		return true
	default:
		return false
	}
}

// PlainText returns the visible text of an HTML snippet with block elements
// turned into line breaks and runs of spaces collapsed.
func PlainText(raw string) string {
	var out strings.Builder
	skipDepth := 0
	skipTag := ""

	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		token := z.Token()

		if skipDepth > 0 {
			switch {
			case tt == html.StartTagToken && token.Data == skipTag:
				skipDepth++
			case tt == html.EndTagToken && token.Data == skipTag:
				skipDepth--
			}
			continue
		}

		switch tt {
		case html.TextToken:
			out.WriteString(token.Data)
		case html.StartTagToken, html.SelfClosingTagToken:
			if droppedTags[token.Data] && tt == html.StartTagToken {
				skipDepth = 1
				skipTag = token.Data
				continue
			}
			if token.Data == "br" {
				out.WriteString("\n")
			}
		case html.EndTagToken:
			if blockTags[token.Data] {
				out.WriteString("\n")
			}
		}
	}

	return collapse(out.String())
}

func collapse(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\u00a0", " "), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if fields := strings.Fields(line); len(fields) > 0 {
			kept = append(kept, strings.Join(fields, " "))
		}
	}
	return strings.Join(kept, "\n")
}
