// Package urlmap post-processes rendered HTML, correcting product and
// recipe hyperlinks against a canonical catalog built from the relational
// store. Correction is idempotent: already-canonical links are left alone.
package urlmap

import (
	"context"
	"strings"

	"github.com/paolomoz/pagepoof-sub000/internal/store"
)

// Catalog indexes the canonical products and recipes for one generation
// request. Read-only after construction.
type Catalog struct {
	products map[string]string // normalized key -> canonical SKU
	recipes  map[string]string // normalized key -> canonical slug
}

// CatalogSource is the slice of the store catalog construction reads.
type CatalogSource interface {
	ListProducts(ctx context.Context) ([]store.Product, error)
	ListRecipes(ctx context.Context) ([]store.Recipe, error)
}

// BuildCatalog loads the full catalog and indexes each record under every
// lookup variant. Store failures yield an empty catalog: correction then
// degrades to a no-op rather than failing the pipeline.
func BuildCatalog(ctx context.Context, src CatalogSource) *Catalog {
	c := &Catalog{
		products: make(map[string]string),
		recipes:  make(map[string]string),
	}
	if src == nil {
		return c
	}
	if products, err := src.ListProducts(ctx); err == nil {
		for _, p := range products {
			c.addProduct(p)
		}
	}
	if recipes, err := src.ListRecipes(ctx); err == nil {
		for _, r := range recipes {
			c.addRecipe(r)
		}
	}
	return c
}

// NewCatalog builds a catalog from in-memory records, used by tests and by
// callers that already hold the rows.
func NewCatalog(products []store.Product, recipes []store.Recipe) *Catalog {
	c := &Catalog{
		products: make(map[string]string),
		recipes:  make(map[string]string),
	}
	for _, p := range products {
		c.addProduct(p)
	}
	for _, r := range recipes {
		c.addRecipe(r)
	}
	return c
}

// addProduct indexes a product by identifier, normalized name, and a
// "simple name" variant with the brand prefix stripped.
func (c *Catalog) addProduct(p store.Product) {
	c.products[strings.ToLower(p.SKU)] = p.SKU
	if key := normalizeKey(p.Name); key != "" {
		c.products[key] = p.SKU
	}
	if key := simpleName(p.Name); key != "" {
		c.products[key] = p.SKU
	}
}

// addRecipe indexes a recipe by slug, normalized title, and the long title
// keywords.
func (c *Catalog) addRecipe(r store.Recipe) {
	c.recipes[strings.ToLower(r.Slug)] = r.Slug
	if key := normalizeKey(r.Title); key != "" {
		c.recipes[key] = r.Slug
	}
	for _, kw := range titleKeywords(r.Title) {
		if _, taken := c.recipes[kw]; !taken {
			c.recipes[kw] = r.Slug
		}
	}
}

var keywordStopWords = map[string]struct{}{
	"about": {}, "blend": {}, "fresh": {}, "great": {}, "quick": {},
	"simple": {}, "their": {}, "there": {}, "these": {}, "which": {},
	"whole": {}, "recipe": {},
}

// normalizeKey lowercases and strips punctuation, collapsing whitespace.
func normalizeKey(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '_':
			return ' '
		default:
			return -1
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// simpleName strips the brand prefix and punctuation from a product name.
func simpleName(name string) string {
	key := normalizeKey(name)
	key = strings.TrimPrefix(key, "vitamix ")
	if key == normalizeKey(name) {
		return ""
	}
	return key
}

// titleKeywords returns the normalized title words longer than 4
// characters, stop words excluded.
func titleKeywords(title string) []string {
	var out []string
	for _, w := range strings.Fields(normalizeKey(title)) {
		if len(w) <= 4 {
			continue
		}
		if _, stop := keywordStopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}
