package urlmap

import (
	"regexp"
	"strings"
)

const (
	productFuzzyThreshold = 0.6
	recipeFuzzyThreshold  = 0.5
)

var (
	productHref = regexp.MustCompile(`href="/products/([^"]+)"`)
	recipeHref  = regexp.MustCompile(`href="/recipes/([^"]+)"`)
)

// CorrectURLs rewrites product and recipe hyperlinks in the rendered HTML
// to their canonical identifiers. Lookup order: exact match, simple string
// variants, then bigram-Jaccard fuzzy match above the per-kind threshold.
// Unresolvable links are left untouched, which makes the whole pass
// idempotent.
func (c *Catalog) CorrectURLs(html string) string {
	html = productHref.ReplaceAllStringFunc(html, func(m string) string {
		ref := productHref.FindStringSubmatch(m)[1]
		if sku, ok := c.resolveProduct(ref); ok {
			return `href="/products/` + sku + `"`
		}
		return m
	})
	html = recipeHref.ReplaceAllStringFunc(html, func(m string) string {
		ref := recipeHref.FindStringSubmatch(m)[1]
		if slug, ok := c.resolveRecipe(ref); ok {
			return `href="/recipes/` + slug + `"`
		}
		return m
	})
	return html
}

func (c *Catalog) resolveProduct(ref string) (string, bool) {
	return resolve(ref, c.products, productFuzzyThreshold)
}

func (c *Catalog) resolveRecipe(ref string) (string, bool) {
	return resolve(ref, c.recipes, recipeFuzzyThreshold)
}

func resolve(ref string, index map[string]string, threshold float64) (string, bool) {
	if canonical, ok := index[strings.ToLower(ref)]; ok {
		return canonical, true
	}
	key := normalizeKey(strings.ReplaceAll(ref, "-", " "))
	if canonical, ok := index[key]; ok {
		return canonical, true
	}
	// Fuzzy pass over every indexed key.
	var (
		bestScore float64
		bestValue string
	)
	refGrams := bigrams(key)
	if len(refGrams) == 0 {
		return "", false
	}
	for candidate, canonical := range index {
		score := jaccard(refGrams, bigrams(candidate))
		if score > bestScore {
			bestScore = score
			bestValue = canonical
		}
	}
	if bestScore >= threshold {
		return bestValue, true
	}
	return "", false
}

// bigrams returns the set of character bigrams of s, spaces excluded.
func bigrams(s string) map[string]struct{} {
	s = strings.ReplaceAll(s, " ", "")
	grams := make(map[string]struct{})
	for i := 0; i+2 <= len(s); i++ {
		grams[s[i:i+2]] = struct{}{}
	}
	return grams
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for g := range a {
		if _, ok := b[g]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
