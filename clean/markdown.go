package clean

import (
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

var mdOnce sync.Once
var mdConv *converter.Converter

// markdownConverter builds the shared, goroutine-safe Converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta,
//     link, input, textarea, HTML comments.
//   - commonmark plugin: standard Markdown rendering (headings, lists,
//     links, emphasis, blockquotes, etc.).
//
// Job descriptions are simple sanitized fragments, so the table plugin is
// not configured.
func markdownConverter() *converter.Converter {
	mdOnce.Do(func() {
		mdConv = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
	})
	return mdConv
}

// HTMLToMarkdown converts a sanitized HTML fragment to Markdown. The domain
// resolves relative URLs in links so the output is self-contained.
func HTMLToMarkdown(htmlContent string, domain string) (string, error) {
	return markdownConverter().ConvertString(htmlContent, converter.WithDomain(domain))
}
