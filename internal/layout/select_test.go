package layout

import (
	"context"
	"errors"
	"testing"

	"github.com/paolomoz/pagepoof-sub000/internal/atom"
	"github.com/paolomoz/pagepoof-sub000/internal/classifier"
)

type fakeProvider struct {
	response string
	err      error
}

func (f *fakeProvider) Complete(ctx context.Context, system, user, model string) (string, error) {
	return f.response, f.err
}

func comparisonAtom() atom.Atom {
	return atom.Atom{Type: atom.TypeComparison, Priority: 8, Content: atom.Content{Comparison: &atom.Comparison{
		Products: []atom.ComparisonProduct{{Name: "Ascent X5"}, {Name: "Explorian E310"}},
	}}}
}

func productAtoms() []atom.Atom {
	return []atom.Atom{
		atom.NewHeading("Ascent vs Explorian", 9),
		atom.NewParagraph("Two lines, two budgets.", 7),
		comparisonAtom(),
	}
}

func TestHeroIsAlwaysFirst(t *testing.T) {
	// Proposal puts the comparison first and never mentions a hero.
	resp := `{"blocks":[{"block":"comparison-cards","atoms":[2]},{"block":"text-section","atoms":[0,1]}]}`
	s := NewSelector(&fakeProvider{response: resp}, "m", 8, nil)
	blocks := s.SelectLayout(context.Background(), productAtoms(), classifier.Classify("x5 vs e310"), nil)

	if blocks[0].BlockName != "hero" {
		t.Fatalf("first block must be hero, got %s", blocks[0].BlockName)
	}
	if !containsIdx(blocks[0].AtomIndices, 0) {
		t.Fatalf("hero must claim the first heading, got %#v", blocks[0].AtomIndices)
	}
	if !containsIdx(blocks[0].AtomIndices, 1) {
		t.Fatalf("hero must claim the first paragraph, got %#v", blocks[0].AtomIndices)
	}
	// The heading must not stay claimed by the text section too.
	for _, b := range blocks[1:] {
		if containsIdx(b.AtomIndices, 0) {
			t.Fatalf("heading double-claimed by %s", b.BlockName)
		}
	}
}

func TestLeftoversFollowLibraryOrder(t *testing.T) {
	atoms := []atom.Atom{
		atom.NewHeading("Title", 9),
		{Type: atom.TypeCTA, Priority: 5, Content: atom.Content{CTA: &atom.CTA{Text: "Shop"}}},
		comparisonAtom(),
		{Type: atom.TypeFAQSet, Priority: 5, Content: atom.Content{FAQSet: &atom.FAQSet{Items: []atom.FAQ{{Question: "q", Answer: "a"}}}}},
	}
	// Empty proposal forces the rule-based path, then leftover assignment.
	s := NewSelector(&fakeProvider{err: errors.New("down")}, "m", 8, nil)
	blocks := s.SelectLayout(context.Background(), atoms, classifier.Classify("anything at all"), nil)

	var order []string
	seen := make(map[int]int)
	for _, b := range blocks {
		order = append(order, b.BlockName)
		for _, idx := range b.AtomIndices {
			seen[idx]++
		}
	}
	for idx := range atoms {
		if seen[idx] != 1 {
			t.Fatalf("atom %d claimed %d times (blocks %#v)", idx, seen[idx], blocks)
		}
	}
	// comparison-cards precedes accordion in the library, so the leftover
	// comparison lands before the leftover faq_set regardless of atom order.
	cmpPos, faqPos := -1, -1
	for i, name := range order {
		if name == "comparison-cards" {
			cmpPos = i
		}
		if name == "accordion" {
			faqPos = i
		}
	}
	if cmpPos < 0 || faqPos < 0 || cmpPos > faqPos {
		t.Fatalf("expected comparison-cards before accordion, got %#v", order)
	}
}

func TestRuleBasedLayoutPerIntent(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		atoms   []atom.Atom
		primary string
	}{
		{"product with comparison", "ascent x5 vs explorian e310", productAtoms(), "comparison-cards"},
		{"recipe", "green smoothie recipe", []atom.Atom{
			atom.NewHeading("Smoothie", 9),
			{Type: atom.TypeRecipeDetail, Priority: 7, Content: atom.Content{RecipeDetail: &atom.RecipeDetail{Slug: "green-smoothie", Title: "Green Smoothie"}}},
		}, "recipe-detail"},
		{"support", "blender not working warranty", []atom.Atom{
			atom.NewHeading("Troubleshooting", 9),
			{Type: atom.TypeFAQSet, Priority: 7, Content: atom.Content{FAQSet: &atom.FAQSet{Items: []atom.FAQ{{Question: "q", Answer: "a"}}}}},
		}, "accordion"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSelector(nil, "m", 8, nil)
			blocks := s.SelectLayout(context.Background(), tc.atoms, classifier.Classify(tc.query), nil)
			if blocks[0].BlockName != "hero" {
				t.Fatalf("hero not first: %#v", blocks)
			}
			found := false
			for _, b := range blocks {
				if b.BlockName == tc.primary {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected primary block %s, got %#v", tc.primary, blocks)
			}
		})
	}
}

func TestProposalValidation(t *testing.T) {
	// Unknown block, out-of-range index, double claim, over-cap instance.
	resp := `{"blocks":[
		{"block":"mega-carousel","atoms":[0]},
		{"block":"comparison-cards","atoms":[2,2,99]},
		{"block":"comparison-cards","atoms":[]},
		{"block":"text-section","atoms":[0,1]}
	]}`
	s := NewSelector(&fakeProvider{response: resp}, "m", 8, nil)
	blocks := s.SelectLayout(context.Background(), productAtoms(), classifier.Classify("x5 vs e310"), nil)

	counts := make(map[string]int)
	for _, b := range blocks {
		counts[b.BlockName]++
		if b.BlockName == "mega-carousel" {
			t.Fatalf("unknown block survived validation")
		}
		for _, idx := range b.AtomIndices {
			if idx < 0 || idx >= 3 {
				t.Fatalf("out-of-range index survived: %d", idx)
			}
		}
	}
	if counts["comparison-cards"] > 1 {
		t.Fatalf("comparison-cards max per page exceeded: %d", counts["comparison-cards"])
	}
}

func TestBlockCap(t *testing.T) {
	var atoms []atom.Atom
	atoms = append(atoms, atom.NewHeading("Everything", 9))
	atoms = append(atoms,
		comparisonAtom(),
		atom.Atom{Type: atom.TypeProductDetail, Priority: 5, Content: atom.Content{ProductDetail: &atom.ProductDetail{SKU: "a", Name: "A"}}},
		atom.Atom{Type: atom.TypeFeatureSet, Priority: 5, Content: atom.Content{FeatureSet: &atom.FeatureSet{Features: []atom.Feature{{Name: "f"}}}}},
		atom.Atom{Type: atom.TypeRecipeDetail, Priority: 5, Content: atom.Content{RecipeDetail: &atom.RecipeDetail{Slug: "s", Title: "S"}}},
		atom.Atom{Type: atom.TypeFAQSet, Priority: 5, Content: atom.Content{FAQSet: &atom.FAQSet{Items: []atom.FAQ{{Question: "q", Answer: "a"}}}}},
		atom.Atom{Type: atom.TypeVideo, Priority: 5, Content: atom.Content{Video: &atom.Video{Title: "v", URL: "http://v"}}},
		atom.Atom{Type: atom.TypeTips, Priority: 5, Content: atom.Content{Tips: &atom.Tips{Items: []string{"tip"}}}},
		atom.Atom{Type: atom.TypeStats, Priority: 5, Content: atom.Content{Stats: &atom.Stats{Items: []atom.Stat{{Label: "l", Value: "v"}}}}},
		atom.Atom{Type: atom.TypeQuote, Priority: 5, Content: atom.Content{Quote: &atom.Quote{Text: "q"}}},
		atom.Atom{Type: atom.TypeCTA, Priority: 5, Content: atom.Content{CTA: &atom.CTA{Text: "go"}}},
	)
	s := NewSelector(nil, "m", 8, nil)
	blocks := s.SelectLayout(context.Background(), atoms, classifier.Classify("everything about vitamix"), nil)
	if len(blocks) > 8 {
		t.Fatalf("block cap violated: %d blocks", len(blocks))
	}
	if blocks[0].BlockName != "hero" {
		t.Fatalf("hero displaced by cap: %#v", blocks)
	}
}

func containsIdx(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
