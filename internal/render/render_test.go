package render

import (
	"strings"
	"testing"

	"github.com/paolomoz/pagepoof-sub000/internal/atom"
	"github.com/paolomoz/pagepoof-sub000/internal/layout"
)

func TestRenderNeverReturnsInvisibleBlocks(t *testing.T) {
	atoms := []atom.Atom{
		atom.NewHeading("Quiet Blending", 9),
		atom.NewParagraph("The Propel line runs noticeably quieter.", 7),
	}
	blocks := []layout.Block{
		{BlockName: "hero", AtomIndices: []int{0, 1}},
		{BlockName: "comparison-cards", AtomIndices: nil}, // renders an empty shell
		{BlockName: "text-section", AtomIndices: nil},
	}
	out := New(nil).Render(blocks, atoms)
	if len(out) != 1 {
		t.Fatalf("empty blocks should be suppressed, got %d blocks", len(out))
	}
	for _, rb := range out {
		stripped := strings.TrimSpace(stripPolicy().Sanitize(rb.HTML))
		if stripped == "" {
			t.Fatalf("block %s rendered with no visible content: %q", rb.Name, rb.HTML)
		}
	}
}

func TestRenderPanicIsolation(t *testing.T) {
	// A comparison atom without payload makes its renderer dereference nil.
	atoms := []atom.Atom{
		atom.NewHeading("Compare", 9),
		{Type: atom.TypeComparison, Priority: 5},
	}
	blocks := []layout.Block{
		{BlockName: "hero", AtomIndices: []int{0}},
		{BlockName: "comparison-cards", AtomIndices: []int{1}},
	}
	out := New(nil).Render(blocks, atoms)
	if len(out) != 2 {
		t.Fatalf("expected both blocks in output, got %d", len(out))
	}
	bad := out[1]
	if !bad.Error {
		t.Fatalf("expected error flag on the panicked block")
	}
	if bad.HTML == "" || !strings.Contains(bad.HTML, "block-error") {
		t.Fatalf("error block must carry placeholder markup, got %q", bad.HTML)
	}
	if out[0].Error {
		t.Fatalf("healthy block contaminated by neighbor's panic")
	}
}

func TestRenderEscapesContent(t *testing.T) {
	atoms := []atom.Atom{
		atom.NewHeading(`<script>alert("x")</script>`, 9),
	}
	out := New(nil).Render([]layout.Block{{BlockName: "hero", AtomIndices: []int{0}}}, atoms)
	if len(out) != 1 {
		t.Fatalf("expected hero output")
	}
	if strings.Contains(out[0].HTML, "<script>") {
		t.Fatalf("unescaped markup leaked: %q", out[0].HTML)
	}
}

func TestRenderProductLinks(t *testing.T) {
	atoms := []atom.Atom{
		{Type: atom.TypeComparison, Priority: 8, Content: atom.Content{Comparison: &atom.Comparison{
			Products: []atom.ComparisonProduct{
				{SKU: "ascent-x5", Name: "Ascent X5", Price: 749.95},
				{SKU: "explorian-e310", Name: "Explorian E310", Price: 349.95},
			},
		}}},
	}
	out := New(nil).Render([]layout.Block{{BlockName: "comparison-cards", AtomIndices: []int{0}}}, atoms)
	if len(out) != 1 {
		t.Fatalf("expected comparison output")
	}
	html := out[0].HTML
	if !strings.Contains(html, `href="/products/ascent-x5"`) {
		t.Fatalf("missing product link: %q", html)
	}
	if !strings.Contains(html, "$749.95") {
		t.Fatalf("missing price: %q", html)
	}
}

func TestRenderUnknownBlockFallsBackToGeneric(t *testing.T) {
	atoms := []atom.Atom{atom.NewParagraph("Hello", 5)}
	out := New(nil).Render([]layout.Block{{BlockName: "mystery-block", AtomIndices: []int{0}}}, atoms)
	if len(out) != 1 {
		t.Fatalf("expected generic output")
	}
	if !strings.Contains(out[0].HTML, `data-block="mystery-block"`) {
		t.Fatalf("generic renderer should tag the block name: %q", out[0].HTML)
	}
}

func TestRenderEmptyCTABannerGetsDefault(t *testing.T) {
	out := New(nil).Render([]layout.Block{{BlockName: "cta-banner"}}, nil)
	if len(out) != 1 {
		t.Fatalf("cta-banner should always render")
	}
	if !strings.Contains(out[0].HTML, "Explore Vitamix") {
		t.Fatalf("missing default CTA: %q", out[0].HTML)
	}
}

func TestRenderErrorPlaceholderIsVisible(t *testing.T) {
	atoms := []atom.Atom{{Type: atom.TypeComparison, Priority: 5}}
	out := New(nil).Render([]layout.Block{{BlockName: "comparison-cards", AtomIndices: []int{0}}}, atoms)
	if len(out) != 1 || !out[0].Error {
		t.Fatalf("expected one error block, got %#v", out)
	}
	stripped := strings.TrimSpace(stripPolicy().Sanitize(out[0].HTML))
	if stripped == "" {
		t.Fatalf("error placeholder has no visible text: %q", out[0].HTML)
	}
}

func TestRenderEscapesURLAttributes(t *testing.T) {
	atoms := []atom.Atom{
		{Type: atom.TypeVideo, Priority: 5, Content: atom.Content{Video: &atom.Video{
			URL:   `x" onmouseover="alert(1)`,
			Title: "Watch",
		}}},
		{Type: atom.TypeCTA, Priority: 5, Content: atom.Content{CTA: &atom.CTA{
			Text:      "Go",
			TargetURL: `y" onclick="alert(2)`,
		}}},
		{Type: atom.TypeImage, Priority: 5, Content: atom.Content{Image: &atom.Image{
			URL: `z" onerror="alert(3)`,
			Alt: "pic",
		}}},
		atom.NewHeading("Pictured", 5),
	}
	blocks := []layout.Block{
		{BlockName: "video-panel", AtomIndices: []int{0}},
		{BlockName: "cta-banner", AtomIndices: []int{1}},
		{BlockName: "hero", AtomIndices: []int{3, 2}},
	}
	out := New(nil).Render(blocks, atoms)
	if len(out) != 3 {
		t.Fatalf("expected three blocks, got %d", len(out))
	}
	for _, rb := range out {
		// A raw quote (backslash-prefixed or not) would terminate the
		// attribute; the quote must arrive entity-encoded.
		if strings.Contains(rb.HTML, `\"`) {
			t.Fatalf("backslash escaping is not HTML escaping in %s: %q", rb.Name, rb.HTML)
		}
		if strings.Contains(rb.HTML, `" onmouseover=`) || strings.Contains(rb.HTML, `" onclick=`) || strings.Contains(rb.HTML, `" onerror=`) {
			t.Fatalf("URL broke out of its attribute in %s: %q", rb.Name, rb.HTML)
		}
		if !strings.Contains(rb.HTML, "&#34;") && !strings.Contains(rb.HTML, "&quot;") {
			t.Fatalf("quote in URL was not entity-encoded in %s: %q", rb.Name, rb.HTML)
		}
	}
}

func TestRenderHeroDefaultContent(t *testing.T) {
	out := New(nil).Render([]layout.Block{{BlockName: "hero"}}, nil)
	if len(out) != 1 {
		t.Fatalf("zero-atom hero should render default content")
	}
	if !strings.Contains(out[0].HTML, "<h1>Vitamix</h1>") {
		t.Fatalf("missing default hero heading: %q", out[0].HTML)
	}
}

func TestComparisonAttributesStableOrder(t *testing.T) {
	a := atom.Atom{Type: atom.TypeComparison, Priority: 8, Content: atom.Content{Comparison: &atom.Comparison{
		Products: []atom.ComparisonProduct{
			{SKU: "a", Name: "A", Attributes: map[string]string{"warranty": "10", "container": "64", "programs": "5"}},
			{SKU: "b", Name: "B", Attributes: map[string]string{"warranty": "5", "container": "48", "programs": "0"}},
		},
	}}}
	blocks := []layout.Block{{BlockName: "comparison-cards", AtomIndices: []int{0}}}
	first := New(nil).Render(blocks, []atom.Atom{a})[0].HTML
	for i := 0; i < 10; i++ {
		if again := New(nil).Render(blocks, []atom.Atom{a})[0].HTML; again != first {
			t.Fatalf("attribute order unstable:\n%s\nvs\n%s", first, again)
		}
	}
}
