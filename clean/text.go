// Package clean converts scraped HTML fragments into plain text or
// Markdown for console output and exports.
package clean

import (
	"strings"

	"golang.org/x/net/html"
)

// HTMLToText strips all markup from an HTML fragment and returns the
// visible text with whitespace collapsed. Script, style, and noscript
// content is skipped. Input that is already plain text passes through with
// whitespace normalized.
func HTMLToText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(raw))
	var buf strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(buf.String())
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				text := strings.Join(strings.Fields(string(tokenizer.Text())), " ")
				if text != "" {
					if buf.Len() > 0 {
						buf.WriteByte(' ')
					}
					buf.WriteString(text)
				}
			}
		}
	}
}
