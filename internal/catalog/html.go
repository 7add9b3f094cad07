package catalog

import (
	"strings"

	"golang.org/x/net/html"
)

// tags whose content never reaches the text
var hiddenTags = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

// tags that separate words even without surrounding whitespace
var breakTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// TextFromHTML reduces scraped description markup to plain text with
// entities decoded. Input without markup only has its whitespace collapsed.
func TextFromHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return cleanText(s)
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	hidden := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF, or malformed input: keep what was read
			return cleanText(b.String())

		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if hiddenTags[tag] {
				if tt == html.StartTagToken {
					hidden++
				} else if tt == html.EndTagToken && hidden > 0 {
					hidden--
				}
			}
			if breakTags[tag] {
				b.WriteByte(' ')
			}

		case html.TextToken:
			if hidden == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// cleanText collapses runs of whitespace and trims the ends
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
