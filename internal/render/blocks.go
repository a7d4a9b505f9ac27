package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paolomoz/pagepoof-sub000/internal/atom"
	"github.com/paolomoz/pagepoof-sub000/internal/layout"
)

type renderFunc func(layout.Block, []atom.Atom) string

// renderers keys every block name the renderer knows. Names not present
// here fall through to renderGeneric. The two alias entries cover block
// names still emitted by older published pages.
var renderers = map[string]renderFunc{
	"hero":             renderHero,
	"comparison-cards": renderComparisonCards,
	"pdp-card":         renderPDPCard,
	"feature-grid":     renderFeatureGrid,
	"recipe-detail":    renderRecipeDetail,
	"accordion":        renderAccordion,
	"video-panel":      renderVideoPanel,
	"tips-list":        renderTipsList,
	"nutrition-panel":  renderNutritionPanel,
	"steps-panel":      renderStepsPanel,
	"stats-strip":      renderStatsStrip,
	"quote-band":       renderQuoteBand,
	"accessory-shelf":  renderAccessoryShelf,
	"spec-sheet":       renderSpecSheet,
	"text-section":     renderTextSection,
	"cta-banner":       renderCTABanner,
	"faq-accordion":    renderAccordion,
	"recipe-card":      renderRecipeDetail,
}

func renderHero(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-hero">`)
	wrote := false
	for _, a := range atoms {
		switch a.Type {
		case atom.TypeHeading:
			fmt.Fprintf(&sb, `<h1>%s</h1>`, esc(a.Content.Heading.Text))
			wrote = true
		case atom.TypeParagraph:
			fmt.Fprintf(&sb, `<p class="hero-subtitle">%s</p>`, esc(a.Content.Paragraph.Text))
			wrote = true
		case atom.TypeImage:
			img := a.Content.Image
			if img.URL != "" {
				fmt.Fprintf(&sb, `<img src="%s" alt="%s">`, esc(img.URL), esc(img.Alt))
				wrote = true
			}
		}
	}
	if !wrote {
		sb.WriteString(`<h1>Vitamix</h1><p class="hero-subtitle">Blend beyond expectations.</p>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderComparisonCards(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-comparison-cards">`)
	for _, a := range atoms {
		if a.Type != atom.TypeComparison {
			continue
		}
		cmp := a.Content.Comparison
		if cmp.Title != "" {
			fmt.Fprintf(&sb, `<h2>%s</h2>`, esc(cmp.Title))
		}
		sb.WriteString(`<div class="comparison-row">`)
		for _, p := range cmp.Products {
			fmt.Fprintf(&sb, `<article class="comparison-card"><h3><a href="/products/%s">%s</a></h3>`, esc(p.SKU), esc(p.Name))
			if p.Price > 0 {
				fmt.Fprintf(&sb, `<p class="price">$%.2f</p>`, p.Price)
			}
			if len(p.Attributes) > 0 {
				sb.WriteString(`<dl>`)
				for _, k := range sortedKeys(p.Attributes) {
					fmt.Fprintf(&sb, `<dt>%s</dt><dd>%s</dd>`, esc(k), esc(p.Attributes[k]))
				}
				sb.WriteString(`</dl>`)
			}
			sb.WriteString(`</article>`)
		}
		sb.WriteString(`</div>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderPDPCard(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-pdp-card">`)
	for _, a := range atoms {
		if a.Type != atom.TypeProductDetail {
			continue
		}
		pd := a.Content.ProductDetail
		fmt.Fprintf(&sb, `<article class="pdp"><h2><a href="/products/%s">%s</a></h2>`, esc(pd.SKU), esc(pd.Name))
		if pd.Price > 0 {
			fmt.Fprintf(&sb, `<p class="price">$%.2f</p>`, pd.Price)
		}
		if pd.Description != "" {
			fmt.Fprintf(&sb, `<p>%s</p>`, esc(pd.Description))
		}
		if len(pd.Highlights) > 0 {
			sb.WriteString(`<ul>`)
			for _, h := range pd.Highlights {
				fmt.Fprintf(&sb, `<li>%s</li>`, esc(h))
			}
			sb.WriteString(`</ul>`)
		}
		sb.WriteString(`</article>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderFeatureGrid(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-feature-grid">`)
	for _, a := range atoms {
		if a.Type != atom.TypeFeatureSet {
			continue
		}
		fs := a.Content.FeatureSet
		if fs.Title != "" {
			fmt.Fprintf(&sb, `<h2>%s</h2>`, esc(fs.Title))
		}
		sb.WriteString(`<div class="feature-grid">`)
		for _, f := range fs.Features {
			fmt.Fprintf(&sb, `<div class="feature"><h3>%s</h3>`, esc(f.Name))
			if f.Description != "" {
				fmt.Fprintf(&sb, `<p>%s</p>`, esc(f.Description))
			}
			sb.WriteString(`</div>`)
		}
		sb.WriteString(`</div>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderRecipeDetail(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-recipe-detail">`)
	for _, a := range atoms {
		if a.Type != atom.TypeRecipeDetail {
			continue
		}
		rd := a.Content.RecipeDetail
		fmt.Fprintf(&sb, `<article class="recipe"><h2><a href="/recipes/%s">%s</a></h2>`, esc(rd.Slug), esc(rd.Title))
		if rd.Description != "" {
			fmt.Fprintf(&sb, `<p>%s</p>`, esc(rd.Description))
		}
		if rd.PrepMinutes > 0 {
			fmt.Fprintf(&sb, `<p class="prep-time">%d minutes</p>`, rd.PrepMinutes)
		}
		if len(rd.Ingredients) > 0 {
			sb.WriteString(`<ul class="ingredients">`)
			for _, ing := range rd.Ingredients {
				fmt.Fprintf(&sb, `<li>%s</li>`, esc(ing))
			}
			sb.WriteString(`</ul>`)
		}
		sb.WriteString(`</article>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderAccordion(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-accordion">`)
	for _, a := range atoms {
		if a.Type != atom.TypeFAQSet {
			continue
		}
		for _, item := range a.Content.FAQSet.Items {
			fmt.Fprintf(&sb, `<details><summary>%s</summary><p>%s</p></details>`, esc(item.Question), esc(item.Answer))
		}
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderVideoPanel(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-video-panel">`)
	for _, a := range atoms {
		if a.Type != atom.TypeVideo {
			continue
		}
		v := a.Content.Video
		fmt.Fprintf(&sb, `<figure class="video"><a href="%s">%s</a></figure>`, esc(v.URL), esc(v.Title))
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderTipsList(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-tips-list">`)
	for _, a := range atoms {
		if a.Type != atom.TypeTips {
			continue
		}
		t := a.Content.Tips
		if t.Title != "" {
			fmt.Fprintf(&sb, `<h2>%s</h2>`, esc(t.Title))
		}
		sb.WriteString(`<ul>`)
		for _, item := range t.Items {
			fmt.Fprintf(&sb, `<li>%s</li>`, esc(item))
		}
		sb.WriteString(`</ul>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderNutritionPanel(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-nutrition-panel">`)
	for _, a := range atoms {
		if a.Type != atom.TypeNutritionFacts {
			continue
		}
		nf := a.Content.NutritionFacts
		sb.WriteString(`<table class="nutrition">`)
		if nf.ServingSize != "" {
			fmt.Fprintf(&sb, `<caption>Per %s</caption>`, esc(nf.ServingSize))
		}
		for _, row := range nf.Rows {
			fmt.Fprintf(&sb, `<tr><th>%s</th><td>%s</td></tr>`, esc(row.Label), esc(row.Amount))
		}
		sb.WriteString(`</table>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderStepsPanel(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-steps-panel">`)
	for _, a := range atoms {
		if a.Type != atom.TypeSteps {
			continue
		}
		st := a.Content.Steps
		if st.Title != "" {
			fmt.Fprintf(&sb, `<h2>%s</h2>`, esc(st.Title))
		}
		sb.WriteString(`<ol>`)
		for _, item := range st.Items {
			fmt.Fprintf(&sb, `<li>%s</li>`, esc(item))
		}
		sb.WriteString(`</ol>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderStatsStrip(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-stats-strip">`)
	for _, a := range atoms {
		if a.Type != atom.TypeStats {
			continue
		}
		for _, s := range a.Content.Stats.Items {
			fmt.Fprintf(&sb, `<div class="stat"><span class="value">%s</span><span class="label">%s</span></div>`, esc(s.Value), esc(s.Label))
		}
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderQuoteBand(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-quote-band">`)
	for _, a := range atoms {
		switch a.Type {
		case atom.TypeQuote:
			q := a.Content.Quote
			fmt.Fprintf(&sb, `<blockquote>%s`, esc(q.Text))
			if q.Attribution != "" {
				fmt.Fprintf(&sb, `<cite>%s</cite>`, esc(q.Attribution))
			}
			sb.WriteString(`</blockquote>`)
		case atom.TypeTestimonial:
			t := a.Content.Testimonial
			fmt.Fprintf(&sb, `<blockquote class="testimonial">%s`, esc(t.Text))
			if t.Author != "" {
				fmt.Fprintf(&sb, `<cite>%s</cite>`, esc(t.Author))
			}
			sb.WriteString(`</blockquote>`)
		}
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderAccessoryShelf(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-accessory-shelf">`)
	for _, a := range atoms {
		if a.Type != atom.TypeAccessorySet {
			continue
		}
		sb.WriteString(`<ul class="accessories">`)
		for _, item := range a.Content.AccessorySet.Items {
			fmt.Fprintf(&sb, `<li><a href="/products/%s">%s</a>`, esc(item.SKU), esc(item.Name))
			if item.Price > 0 {
				fmt.Fprintf(&sb, ` <span class="price">$%.2f</span>`, item.Price)
			}
			sb.WriteString(`</li>`)
		}
		sb.WriteString(`</ul>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderSpecSheet(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-spec-sheet"><table>`)
	for _, a := range atoms {
		if a.Type != atom.TypeSpecTable {
			continue
		}
		for _, row := range a.Content.SpecTable.Rows {
			fmt.Fprintf(&sb, `<tr><th>%s</th><td>%s</td></tr>`, esc(row.Label), esc(row.Value))
		}
	}
	sb.WriteString(`</table></section>`)
	return sb.String()
}

func renderTextSection(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-text-section">`)
	for _, a := range atoms {
		switch a.Type {
		case atom.TypeHeading:
			h := a.Content.Heading
			fmt.Fprintf(&sb, `<h%d>%s</h%d>`, h.Level, esc(h.Text), h.Level)
		case atom.TypeParagraph:
			fmt.Fprintf(&sb, `<p>%s</p>`, esc(a.Content.Paragraph.Text))
		}
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func renderCTABanner(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	sb.WriteString(`<section class="block block-cta-banner">`)
	wrote := false
	for _, a := range atoms {
		if a.Type != atom.TypeCTA {
			continue
		}
		c := a.Content.CTA
		href := c.TargetURL
		if href == "" {
			href = "/products"
		}
		fmt.Fprintf(&sb, `<p>%s</p><a class="cta" href="%s">%s</a>`, esc(c.Text), esc(href), esc(c.ButtonLabel))
		wrote = true
	}
	if !wrote {
		sb.WriteString(`<a class="cta" href="/products">Explore Vitamix</a>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

// renderGeneric handles unrecognized block names: one sub-element per atom,
// plus a default call to action when no atom produced output.
func renderGeneric(b layout.Block, atoms []atom.Atom) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<section class="block block-generic" data-block="%s">`, esc(b.BlockName))
	wrote := false
	for _, a := range atoms {
		if text := genericText(a); text != "" {
			fmt.Fprintf(&sb, `<div class="atom atom-%s">%s</div>`, a.Type, esc(text))
			wrote = true
		}
	}
	if !wrote {
		sb.WriteString(`<a class="cta" href="/products">Explore Vitamix</a>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func genericText(a atom.Atom) string {
	switch a.Type {
	case atom.TypeHeading:
		return a.Content.Heading.Text
	case atom.TypeParagraph:
		return a.Content.Paragraph.Text
	case atom.TypeCTA:
		return a.Content.CTA.Text
	case atom.TypeQuote:
		return a.Content.Quote.Text
	case atom.TypeTips:
		return strings.Join(a.Content.Tips.Items, "; ")
	case atom.TypeSteps:
		return strings.Join(a.Content.Steps.Items, "; ")
	case atom.TypeProductDetail:
		return a.Content.ProductDetail.Name
	case atom.TypeRecipeDetail:
		return a.Content.RecipeDetail.Title
	case atom.TypeVideo:
		return a.Content.Video.Title
	}
	return ""
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
