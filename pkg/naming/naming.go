// Package naming expands filename templates for downloaded episodes and
// keeps names unique across a batch.
//
// Templates mix literal text with placeholder tokens:
//
//	[标题]   the search title
//	[集数]   episode tag, e.g. "E03"
//	[序号]   sequence number, zero-padded to 2 digits
//	[序号N]  sequence number, zero-padded to N digits
//	[原]     the original episode title with its platform tag stripped
//
// Expansion is a single left-to-right pass over the token grammar, so a
// placeholder-like substring inside an expanded value is never expanded
// again. Unrecognized bracketed text passes through as a literal.
package naming

import (
	"fmt"
	"strconv"
	"strings"
)

// EpisodeTag is the placeholder appended automatically when a dry run
// detects colliding names.
const EpisodeTag = "[集数]"

const (
	titleTag    = "[标题]"
	rawTitleTag = "[原]"
	seqPrefix   = "[序号"
)

// Item describes one episode for template expansion.
type Item struct {
	Title    string // batch title, usually the search keyword
	RawTitle string // original episode title, platform tag already stripped
	Index    int    // zero-based position of the episode in its source list
	Total    int    // number of items in the batch
	Movie    bool   // single-film resource
}

// single reports whether the episode-varying tags collapse to nothing:
// a movie downloaded as a one-item batch needs no episode markers.
func (it Item) single() bool {
	return it.Movie && it.Total == 1
}

// Expand substitutes every recognized placeholder in template for it.
// The result is not yet filesystem-safe; see [Sanitize].
func Expand(template string, it Item) string {
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '[')
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:open])
		rest = rest[open:]

		close := strings.IndexByte(rest, ']')
		if close < 0 {
			b.WriteString(rest)
			return b.String()
		}
		token := rest[:close+1]
		b.WriteString(expandToken(token, it))
		rest = rest[close+1:]
	}
}

func expandToken(token string, it Item) string {
	switch token {
	case titleTag:
		return it.Title
	case rawTitleTag:
		return it.RawTitle
	case EpisodeTag:
		if it.single() {
			return ""
		}
		return fmt.Sprintf("E%02d", it.Index+1)
	}
	if inner, ok := strings.CutPrefix(token, seqPrefix); ok {
		digits := strings.TrimSuffix(inner, "]")
		width := 2
		if digits != "" {
			w, err := strconv.Atoi(digits)
			if err != nil {
				return token // not a sequence token after all
			}
			width = w
		}
		if it.single() {
			return ""
		}
		return fmt.Sprintf("%0*d", width, it.Index+1)
	}
	return token
}

// Sanitize collapses whitespace runs to single spaces, trims the ends and
// replaces characters that are unsafe in filenames with underscores.
func Sanitize(name string) string {
	collapsed := strings.Join(strings.Fields(name), " ")
	return unsafeReplacer.Replace(collapsed)
}

var unsafeReplacer = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_",
	"?", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

// Resolve expands one sanitized name per item, running a collision dry run
// first: when the expanded names are not pairwise distinct and the template
// does not already carry the episode tag, the tag is appended once and the
// names re-derived. The returned flag reports whether that happened.
//
// A template that still collides after the single fix is returned as-is;
// further auto-correction is deliberately not attempted.
func Resolve(template string, items []Item) (names []string, appended bool) {
	names = expandAll(template, items)
	if len(items) > 1 && countDistinct(names) < len(items) && !strings.Contains(template, EpisodeTag) {
		names = expandAll(template+EpisodeTag, items)
		appended = true
	}
	return names, appended
}

func expandAll(template string, items []Item) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = Sanitize(Expand(template, it))
	}
	return names
}

func countDistinct(names []string) int {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		seen[n] = struct{}{}
	}
	return len(seen)
}
