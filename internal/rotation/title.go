package rotation

import (
	"regexp"
	"strings"
)

// Rendition qualifiers that distinguish versions of the same song without
// making it a different song on air.
var renditionWords = map[string]bool{
	"remix":        true,
	"remixed":      true,
	"acoustic":     true,
	"live":         true,
	"instrumental": true,
	"remaster":     true,
	"remastered":   true,
	"unplugged":    true,
	"demo":         true,
	"edit":         true,
	"version":      true,
	"mix":          true,
	"cover":        true,
}

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	featTailRe      = regexp.MustCompile(`(?i)\s+(feat\.?|ft\.?|featuring)\s+.*$`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// BaseTitle normalizes a song title for collision detection, so that
// "Song (Remix)", "Song - Acoustic" and "Song ft. Someone" all reduce to
// "song". Qualifiers inside parentheses or brackets, dash-separated
// rendition suffixes, bare trailing rendition words and feat./ft. tails
// are stripped, then the result is case-folded.
func BaseTitle(title string) string {
	t := parentheticalRe.ReplaceAllString(title, " ")
	t = featTailRe.ReplaceAllString(t, "")
	t = stripDashRenditions(t)
	t = stripTrailingRenditionWords(t)
	t = whitespaceRe.ReplaceAllString(t, " ")
	return strings.ToLower(strings.TrimSpace(t))
}

// stripDashRenditions drops trailing dash-separated segments that mention
// a rendition word ("Song - Acoustic", "Song – 2011 Remaster").
func stripDashRenditions(title string) string {
	for {
		idx := lastDashIndex(title)
		if idx < 0 {
			return title
		}
		tail := title[idx+1:]
		if !containsRenditionWord(tail) {
			return title
		}
		title = title[:idx]
	}
}

// lastDashIndex finds the final dash separator (hyphen, en or em dash)
// that has whitespace on both sides, so hyphenated words survive. The
// rightmost occurrence across all three dash styles wins, so a title
// mixing them is still stripped segment by segment from the end.
func lastDashIndex(s string) int {
	last := -1
	for _, sep := range []string{" - ", " – ", " — "} {
		if idx := strings.LastIndex(s, sep); idx > last {
			last = idx
		}
	}
	return last
}

// stripTrailingRenditionWords drops bare rendition words from the end of
// the title ("Song Remix" -> "Song").
func stripTrailingRenditionWords(title string) string {
	words := strings.Fields(title)
	for len(words) > 1 && renditionWords[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

func containsRenditionWord(s string) bool {
	for _, w := range strings.Fields(s) {
		if renditionWords[strings.ToLower(strings.Trim(w, ".,"))] {
			return true
		}
	}
	return false
}
