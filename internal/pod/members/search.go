package members

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransform strips combining marks after decomposing to NFD, then
// recomposes to NFC — the standard x/text accent-fold recipe, adopted
// here specifically because the pack's go.mod already carries
// golang.org/x/text transitively and nothing else in the corpus
// provides this.
var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeForSearch lowercases and accent-folds s, e.g. "Émile" -> "emile".
func normalizeForSearch(s string) string {
	folded, _, err := transform.String(foldTransform, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// tokenize splits a normalized query on whitespace, dropping empties.
func tokenize(query string) []string {
	fields := strings.Fields(normalizeForSearch(query))
	return fields
}

// matches reports whether every token in tokens appears as a substring
// of either the member's nickname or the node part of its JID.
func matches(nickname, jid string, tokens []string) bool {
	node := jid
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		node = jid[:i]
	}
	haystacks := []string{normalizeForSearch(nickname), normalizeForSearch(node)}
	for _, tok := range tokens {
		found := false
		for _, h := range haystacks {
			if strings.Contains(h, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
