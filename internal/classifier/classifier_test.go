package classifier

import "testing"

func TestClassifyEmptyQuery(t *testing.T) {
	c := Classify("   ")
	if c.Type != TypeGeneral {
		t.Fatalf("expected general, got %s", c.Type)
	}
	if c.Confidence != 0.5 {
		t.Fatalf("expected confidence 0.5, got %f", c.Confidence)
	}
	if c.Keywords == nil || len(c.Keywords) != 0 {
		t.Fatalf("expected empty keyword slice, got %#v", c.Keywords)
	}
	if len(c.RetrievalPolicy.Collections) != 4 {
		t.Fatalf("general policy should span all collections, got %#v", c.RetrievalPolicy.Collections)
	}
}

func TestClassifyIntents(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  QueryType
	}{
		{"comparison", "Ascent X5 vs Explorian E310", TypeProduct},
		{"recipe", "how do I make a green smoothie recipe", TypeRecipe},
		{"support", "my blender won't start and smells like burning", TypeSupport},
		{"commercial", "blenders for my smoothie bar and restaurant", TypeCommercial},
		{"blog", "benefits of blending vegetables every day", TypeBlog},
		{"gibberish", "xyzzy plugh qwerty", TypeGeneral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Classify(tc.query)
			if c.Type != tc.want {
				t.Fatalf("query %q: expected %s, got %s (confidence %f)", tc.query, tc.want, c.Type, c.Confidence)
			}
		})
	}
}

func TestClassifyComparisonConfidence(t *testing.T) {
	c := Classify("Ascent X5 vs Explorian E310")
	if c.Type != TypeProduct {
		t.Fatalf("expected product, got %s", c.Type)
	}
	if c.Confidence <= 0.5 {
		t.Fatalf("expected confidence above 0.5 for an unambiguous comparison, got %f", c.Confidence)
	}
}

func TestClassifySpecialFlags(t *testing.T) {
	c := Classify("quiet blender for someone with arthritis on a pureed diet")
	if !c.SpecialFlags.Noise {
		t.Fatalf("expected noise flag")
	}
	if !c.SpecialFlags.Accessibility {
		t.Fatalf("expected accessibility flag")
	}
	if !c.SpecialFlags.Medical {
		t.Fatalf("expected medical flag")
	}
	// detector bonuses push product/support ahead of the weak signals
	if c.Type != TypeProduct && c.Type != TypeSupport {
		t.Fatalf("expected detector bonus to favor product or support, got %s", c.Type)
	}
}

func TestClassifyBudget(t *testing.T) {
	cases := []struct {
		query string
		want  float64
	}{
		{"best blender under $400", 400},
		{"blender for a budget of 350", 350},
		{"which model for $ 500", 500},
	}
	for _, tc := range cases {
		c := Classify(tc.query)
		if c.Budget == nil {
			t.Fatalf("query %q: expected budget", tc.query)
		}
		if *c.Budget != tc.want {
			t.Fatalf("query %q: expected budget %f, got %f", tc.query, tc.want, *c.Budget)
		}
	}
	if c := Classify("best blender overall"); c.Budget != nil {
		t.Fatalf("expected no budget, got %f", *c.Budget)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	const query = "quiet blender help info"
	first := Classify(query)
	for i := 0; i < 20; i++ {
		again := Classify(query)
		if again.Type != first.Type || again.Confidence != first.Confidence {
			t.Fatalf("classification not deterministic: %s/%f vs %s/%f",
				first.Type, first.Confidence, again.Type, again.Confidence)
		}
	}
}

func TestPolicyPerType(t *testing.T) {
	support := Classify("warranty repair broken")
	if support.Type != TypeSupport {
		t.Fatalf("expected support, got %s", support.Type)
	}
	if support.RetrievalPolicy.TopK != 6 {
		t.Fatalf("support policy TopK should be 6, got %d", support.RetrievalPolicy.TopK)
	}
	for _, col := range support.RetrievalPolicy.Collections {
		if col == CollectionProducts {
			t.Fatalf("support policy should not include products")
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	kws := extractKeywords("the best ascent series blender for smoothie bowl lovers")
	seen := make(map[string]bool, len(kws))
	for _, k := range kws {
		if seen[k] {
			t.Fatalf("duplicate keyword %q in %#v", k, kws)
		}
		seen[k] = true
	}
	if seen["the"] || seen["for"] {
		t.Fatalf("stop words not removed: %#v", kws)
	}
	if !seen["ascent series"] {
		t.Fatalf("expected domain bigram 'ascent series' in %#v", kws)
	}
	if !seen["smoothie bowl"] {
		t.Fatalf("expected domain bigram 'smoothie bowl' in %#v", kws)
	}
}
