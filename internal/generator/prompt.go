package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paolomoz/pagepoof-sub000/internal/classifier"
	"github.com/paolomoz/pagepoof-sub000/internal/retriever"
	"github.com/paolomoz/pagepoof-sub000/internal/store"
)

// maxContextItems caps each retrieved collection in the prompt to bound
// prompt size.
const maxContextItems = 5

const atomsSystemPrompt = `You generate structured page content for a blender brand's website.
Respond with a single JSON object:
{"title": string, "description": string, "atoms": [...], "suggested_blocks": [string]}
Each atom is {"type": string, "priority": 1-10, "image_hint": string?, "content": object}.
Atom types: heading, paragraph, feature_set, faq_set, product_detail, recipe_detail,
comparison, cta, video, tips, nutrition_facts, quote, stats, steps, image,
accessory_set, testimonial, spec_table.
Always include at least one heading atom. No markdown fences, no commentary.`

func heroUserPrompt(query string, c classifier.Classification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\nIntent: %s\n", query, c.Type)
	if len(c.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(c.Keywords, ", "))
	}
	b.WriteString("Write the hero for this page.")
	return b.String()
}

func atomsUserPrompt(query string, c classifier.Classification, rc retriever.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", query)

	classJSON, _ := json.Marshal(c)
	fmt.Fprintf(&b, "Classification:\n%s\n\n", classJSON)

	b.WriteString("Retrieved context:\n")
	writeContextSection(&b, "products", capProducts(rc.Products))
	writeContextSection(&b, "recipes", capRecipes(rc.Recipes))
	writeContextSection(&b, "faqs", capFAQs(rc.FAQs))
	writeContextSection(&b, "videos", capVideos(rc.Videos))

	if special := specialContext(c, rc.Products); special != "" {
		fmt.Fprintf(&b, "\nSpecial context:\n%s\n", special)
	}
	b.WriteString("\nGenerate the page content as one JSON object.")
	return b.String()
}

func writeContextSection(b *strings.Builder, name string, items interface{}) {
	data, err := json.Marshal(items)
	if err != nil || string(data) == "null" {
		data = []byte("[]")
	}
	fmt.Fprintf(b, "%s: %s\n", name, data)
}

func capProducts(in []store.Product) []store.Product {
	if len(in) > maxContextItems {
		return in[:maxContextItems]
	}
	return in
}

func capRecipes(in []store.Recipe) []store.Recipe {
	if len(in) > maxContextItems {
		return in[:maxContextItems]
	}
	return in
}

func capFAQs(in []store.FAQ) []store.FAQ {
	if len(in) > maxContextItems {
		return in[:maxContextItems]
	}
	return in
}

func capVideos(in []store.Video) []store.Video {
	if len(in) > maxContextItems {
		return in[:maxContextItems]
	}
	return in
}

// specialContext builds the accessibility/noise/medical/budget guidance
// block, including the deterministically recommended product when one
// applies.
func specialContext(c classifier.Classification, products []store.Product) string {
	var lines []string
	if c.SpecialFlags.Accessibility {
		lines = append(lines, "The visitor has accessibility needs. Emphasize simple controls, large buttons and one-step programs.")
		if p := firstWithAttribute(products, "simplified_controls"); p != nil {
			lines = append(lines, fmt.Sprintf("Recommended item: %s (%s) — simplified controls.", p.Name, p.SKU))
		}
	}
	if c.SpecialFlags.Noise {
		lines = append(lines, "The visitor cares about noise. Emphasize quiet operation and sound ratings.")
		if p := lowestNoise(products); p != nil {
			lines = append(lines, fmt.Sprintf("Recommended item: %s (%s) — lowest noise rating (%.0f dB).", p.Name, p.SKU, p.NoiseRating))
		}
	}
	if c.SpecialFlags.Medical {
		lines = append(lines, "The visitor has a medical context (e.g. pureed diets). Keep guidance practical and non-clinical; suggest consulting a professional for medical advice.")
	}
	if c.Budget != nil {
		if p := withinBudget(products, *c.Budget); p != nil {
			lines = append(lines, fmt.Sprintf("The visitor's budget is $%.0f. Recommended item: %s (%s) at $%.2f — the best pick at or under budget.", *c.Budget, p.Name, p.SKU, p.Price))
		} else if p := cheapest(products); p != nil {
			lines = append(lines, fmt.Sprintf("The visitor's budget is $%.0f, below our least expensive option. Recommended item: %s (%s) at $%.2f — explain the value honestly.", *c.Budget, p.Name, p.SKU, p.Price))
		}
	}
	return strings.Join(lines, "\n")
}

func firstWithAttribute(products []store.Product, key string) *store.Product {
	for i := range products {
		if products[i].Attributes[key] == "true" {
			return &products[i]
		}
	}
	return nil
}

func lowestNoise(products []store.Product) *store.Product {
	var best *store.Product
	for i := range products {
		if products[i].NoiseRating <= 0 {
			continue
		}
		if best == nil || products[i].NoiseRating < best.NoiseRating {
			best = &products[i]
		}
	}
	return best
}

// withinBudget picks the highest-priced product at or under the budget.
func withinBudget(products []store.Product, budget float64) *store.Product {
	var best *store.Product
	for i := range products {
		p := &products[i]
		if p.Price <= 0 || p.Price > budget {
			continue
		}
		if best == nil || p.Price > best.Price {
			best = p
		}
	}
	return best
}

func cheapest(products []store.Product) *store.Product {
	var best *store.Product
	for i := range products {
		p := &products[i]
		if p.Price <= 0 {
			continue
		}
		if best == nil || p.Price < best.Price {
			best = p
		}
	}
	return best
}
