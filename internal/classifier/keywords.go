package classifier

import "strings"

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "can": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "has": {}, "have": {}, "how": {}, "i": {}, "if": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "me": {}, "my": {}, "need": {},
	"of": {}, "on": {}, "or": {}, "should": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "want": {}, "was": {}, "what": {}, "which": {},
	"will": {}, "with": {}, "would": {}, "you": {}, "your": {},
}

// domainBigrams are known multi-word domain terms emitted as single
// keywords when both words appear adjacent in the query.
var domainBigrams = []string{
	"ascent series", "explorian series", "propel series", "smoothie bowl",
	"nut butter", "hot soup", "frozen dessert", "baby food",
	"self detect", "variable speed", "pulse feature", "low profile",
	"stainless steel", "smoothie bar", "pureed diet",
}

// extractKeywords lowercases, strips punctuation, drops stop words and
// appends any matching domain bigrams. Order follows first appearance.
func extractKeywords(q string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, q)

	seen := make(map[string]struct{})
	var keywords []string
	for _, tok := range strings.Fields(cleaned) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}

	joined := " " + strings.Join(strings.Fields(cleaned), " ") + " "
	for _, bg := range domainBigrams {
		if strings.Contains(joined, " "+bg+" ") {
			if _, dup := seen[bg]; !dup {
				seen[bg] = struct{}{}
				keywords = append(keywords, bg)
			}
		}
	}
	if keywords == nil {
		keywords = []string{}
	}
	return keywords
}
