package generator

import (
	"strings"
	"testing"

	"github.com/paolomoz/pagepoof-sub000/internal/classifier"
	"github.com/paolomoz/pagepoof-sub000/internal/store"
)

func catalogProducts() []store.Product {
	return []store.Product{
		{SKU: "ascent-x5", Name: "Vitamix Ascent X5", Price: 749.95, NoiseRating: 88},
		{SKU: "propel-750", Name: "Vitamix Propel 750", Price: 629.95, NoiseRating: 84},
		{SKU: "explorian-e310", Name: "Vitamix Explorian E310", Price: 349.95, NoiseRating: 94,
			Attributes: map[string]string{"simplified_controls": "true"}},
	}
}

func TestSpecialContextNoise(t *testing.T) {
	c := classifier.Classify("quietest vitamix blender")
	if !c.SpecialFlags.Noise {
		t.Fatalf("precondition: noise flag expected")
	}
	out := specialContext(c, catalogProducts())
	if !strings.Contains(out, "propel-750") {
		t.Fatalf("expected lowest-noise recommendation, got %q", out)
	}
}

func TestSpecialContextAccessibility(t *testing.T) {
	c := classifier.Classify("blender with easy controls for arthritis")
	out := specialContext(c, catalogProducts())
	if !strings.Contains(out, "explorian-e310") {
		t.Fatalf("expected simplified-controls recommendation, got %q", out)
	}
}

func TestSpecialContextBudget(t *testing.T) {
	c := classifier.Classify("best blender under $700")
	out := specialContext(c, catalogProducts())
	// Highest price at or under 700 is the Propel 750.
	if !strings.Contains(out, "propel-750") {
		t.Fatalf("expected within-budget pick, got %q", out)
	}

	c = classifier.Classify("blender under $200")
	out = specialContext(c, catalogProducts())
	// Nothing fits: fall back to the cheapest with an honest explanation.
	if !strings.Contains(out, "explorian-e310") {
		t.Fatalf("expected cheapest fallback, got %q", out)
	}
}

func TestSpecialContextEmpty(t *testing.T) {
	c := classifier.Classify("green smoothie recipe")
	if out := specialContext(c, catalogProducts()); out != "" {
		t.Fatalf("no flags should yield no special context, got %q", out)
	}
}

func TestAtomsUserPromptCapsCollections(t *testing.T) {
	var products []store.Product
	for i := 0; i < maxContextItems+4; i++ {
		products = append(products, store.Product{SKU: "sku", Name: "Name"})
	}
	capped := capProducts(products)
	if len(capped) != maxContextItems {
		t.Fatalf("expected %d products, got %d", maxContextItems, len(capped))
	}
}
