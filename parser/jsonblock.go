// Package parser extracts job records from the two response shapes each
// page type can take: the provider-keyed mosaic / legacy initial-data
// blocks on listing pages, and the embedded-view JSON / JobPosting
// linked-data blocks on detail pages.
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ysmood/gson"
)

// mosaicProviderRe locates provider assignments of the form
//
//	window.mosaic.providerData["mosaic-provider-jobcards"] = {...};
//
// The regexp only finds the opening brace; the object itself is pulled out
// by brace counting because provider blobs routinely nest hundreds of
// levels and contain "};" inside string values.
var mosaicProviderRe = regexp.MustCompile(`window\.mosaic\.providerData\[(?:"|')(.+?)(?:"|')\]\s*=\s*\{`)

// extractJSONObject returns the JSON object starting at startIdx (which
// must point at '{') by counting braces, skipping over string literals and
// escape sequences. Returns "" when the object never closes.
func extractJSONObject(text string, startIdx int) string {
	if startIdx < 0 || startIdx >= len(text) || text[startIdx] != '{' {
		return ""
	}
	depth := 0
	inStr := false
	esc := false
	for i := startIdx; i < len(text); i++ {
		ch := text[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[startIdx : i+1]
			}
		}
	}
	return ""
}

// extractMosaicProviders pulls every provider blob out of a mosaic script
// body. Blobs that fail to close or are not valid JSON objects are skipped.
func extractMosaicProviders(script string) map[string]gson.JSON {
	providers := make(map[string]gson.JSON)
	if script == "" {
		return providers
	}

	for _, m := range mosaicProviderRe.FindAllStringSubmatchIndex(script, -1) {
		key := strings.TrimSpace(script[m[2]:m[3]])
		if key == "" {
			continue
		}
		blob := extractJSONObject(script, m[1]-1)
		if blob == "" || !json.Valid([]byte(blob)) {
			continue
		}
		providers[key] = gson.NewFrom(blob)
	}
	return providers
}

// firstString resolves candidate gson paths in priority order and returns
// the first non-empty string value.
func firstString(j gson.JSON, paths ...string) string {
	for _, p := range paths {
		if !j.Has(p) {
			continue
		}
		if s, ok := j.Get(p).Val().(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// joinStrings collects the non-empty string members of a gson array.
func joinStrings(j gson.JSON, sep string) string {
	if _, ok := j.Val().([]interface{}); !ok {
		return ""
	}
	var parts []string
	for _, v := range j.Arr() {
		if s, ok := v.Val().(string); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	return strings.Join(parts, sep)
}
