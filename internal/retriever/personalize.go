package retriever

import (
	"sort"
	"strings"

	"github.com/paolomoz/pagepoof-sub000/internal/classifier"
	"github.com/paolomoz/pagepoof-sub000/internal/store"
)

// relatedTags maps a dietary preference to tags that count as a partial
// match when re-scoring recipes.
var relatedTags = map[string][]string{
	"vegan":       {"plant-based", "dairy-free", "vegetarian"},
	"vegetarian":  {"plant-based", "meatless"},
	"gluten-free": {"grain-free", "celiac-friendly"},
	"keto":        {"low-carb", "high-fat"},
	"paleo":       {"grain-free", "whole30"},
	"dairy-free":  {"vegan", "plant-based"},
	"low-sugar":   {"diabetic-friendly", "no-added-sugar"},
}

func (r *Retriever) personalize(c *Context, policy classifier.RetrievalPolicy, profile Profile) {
	if len(profile.DietaryPreferences) > 0 && len(c.Recipes) > 0 {
		c.Recipes = rescoreRecipes(c.Recipes, profile.DietaryPreferences, policy.TopK)
	}
	if profile.PreferredSeries != "" && len(c.Products) > 0 {
		c.Products = partitionPreferredSeries(c.Products, profile.PreferredSeries)
	}
}

// rescoreRecipes awards 2 points per direct tag match and 1 per related-tag
// match, then re-selects the top-K. The sort is stable so equal scores keep
// their retrieval order.
func rescoreRecipes(recipes []store.Recipe, prefs []string, topK int) []store.Recipe {
	type scored struct {
		recipe store.Recipe
		score  int
	}
	ranked := make([]scored, len(recipes))
	for i, rec := range recipes {
		tagSet := make(map[string]struct{}, len(rec.Tags))
		for _, t := range rec.Tags {
			tagSet[strings.ToLower(t)] = struct{}{}
		}
		score := 0
		for _, pref := range prefs {
			pref = strings.ToLower(pref)
			if _, ok := tagSet[pref]; ok {
				score += 2
				continue
			}
			for _, rel := range relatedTags[pref] {
				if _, ok := tagSet[rel]; ok {
					score++
					break
				}
			}
		}
		ranked[i] = scored{recipe: rec, score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if topK <= 0 || topK > len(ranked) {
		topK = len(ranked)
	}
	out := make([]store.Recipe, 0, topK)
	for _, s := range ranked[:topK] {
		out = append(out, s.recipe)
	}
	return out
}

// partitionPreferredSeries stably moves products of the preferred series to
// the front without otherwise reordering either partition.
func partitionPreferredSeries(products []store.Product, series string) []store.Product {
	series = strings.ToLower(series)
	front := make([]store.Product, 0, len(products))
	rest := make([]store.Product, 0, len(products))
	for _, p := range products {
		if strings.ToLower(p.Series) == series {
			front = append(front, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(front, rest...)
}
