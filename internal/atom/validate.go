package atom

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxHeadingLen     = 200
	defaultPriority   = 5
	maxTextLen        = 4000
	minPriority       = 1
	maxPriority       = 10
	maxListItems      = 12
	maxComparisonCols = 4
)

// ValidationResult reports what survived validation. Atoms contains only
// atoms that passed hard validation; downstream stages never see an invalid
// atom. Warnings record repairs that were applied in place.
type ValidationResult struct {
	Valid    bool
	Atoms    []Atom
	Errors   []string
	Warnings []string
}

// Validate sanitizes and repairs generated atoms before anything downstream
// trusts them. Hard failures (unknown tag, missing payload, missing required
// field) drop the atom; recoverable problems are clamped or filtered and
// recorded as warnings.
func Validate(atoms []Atom) ValidationResult {
	res := ValidationResult{Valid: true}
	for i := range atoms {
		a := &atoms[i]
		if !isKnownType(a.Type) {
			res.Errors = append(res.Errors, fmt.Sprintf("atom %d: unknown type %q", i, a.Type))
			continue
		}
		if a.Content.Payload(a.Type) == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("atom %d (%s): missing content payload", i, a.Type))
			continue
		}
		if a.Priority < minPriority || a.Priority > maxPriority {
			res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (%s): priority %d reset to %d", i, a.Type, a.Priority, defaultPriority))
			a.Priority = defaultPriority
		}
		if err := validatePayload(a, i, &res); err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.Atoms = append(res.Atoms, *a)
	}
	if len(res.Errors) > 0 {
		res.Valid = false
	}
	return res
}

func isKnownType(t Type) bool {
	for _, k := range KnownTypes {
		if k == t {
			return true
		}
	}
	return false
}

func validatePayload(a *Atom, idx int, res *ValidationResult) error {
	switch a.Type {
	case TypeHeading:
		h := a.Content.Heading
		if strings.TrimSpace(h.Text) == "" {
			return fmt.Errorf("atom %d (heading): text required", idx)
		}
		if len(h.Text) > maxHeadingLen {
			h.Text = truncate(h.Text, maxHeadingLen)
			res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (heading): text truncated to %d chars", idx, maxHeadingLen))
		}
		if h.Level < 1 || h.Level > 4 {
			h.Level = 2
		}
	case TypeParagraph:
		p := a.Content.Paragraph
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("atom %d (paragraph): text required", idx)
		}
		if len(p.Text) > maxTextLen {
			p.Text = truncate(p.Text, maxTextLen)
			res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (paragraph): text truncated", idx))
		}
	case TypeFeatureSet:
		fs := a.Content.FeatureSet
		kept := fs.Features[:0]
		for _, f := range fs.Features {
			if strings.TrimSpace(f.Name) == "" {
				res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (feature_set): dropped feature without name", idx))
				continue
			}
			kept = append(kept, f)
		}
		fs.Features = kept
		if len(fs.Features) == 0 {
			return fmt.Errorf("atom %d (feature_set): no valid features", idx)
		}
	case TypeFAQSet:
		fq := a.Content.FAQSet
		kept := fq.Items[:0]
		for _, item := range fq.Items {
			if strings.TrimSpace(item.Question) == "" || strings.TrimSpace(item.Answer) == "" {
				res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (faq_set): dropped incomplete entry", idx))
				continue
			}
			kept = append(kept, item)
		}
		fq.Items = kept
		if len(fq.Items) == 0 {
			return fmt.Errorf("atom %d (faq_set): no valid entries", idx)
		}
	case TypeProductDetail:
		pd := a.Content.ProductDetail
		if strings.TrimSpace(pd.Name) == "" {
			return fmt.Errorf("atom %d (product_detail): name required", idx)
		}
		if pd.Price < 0 {
			pd.Price = 0
			res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (product_detail): negative price reset", idx))
		}
	case TypeRecipeDetail:
		rd := a.Content.RecipeDetail
		if strings.TrimSpace(rd.Title) == "" {
			return fmt.Errorf("atom %d (recipe_detail): title required", idx)
		}
		if rd.PrepMinutes < 0 {
			rd.PrepMinutes = 0
		}
	case TypeComparison:
		cmp := a.Content.Comparison
		kept := cmp.Products[:0]
		for _, p := range cmp.Products {
			if strings.TrimSpace(p.Name) == "" {
				res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (comparison): dropped product without name", idx))
				continue
			}
			kept = append(kept, p)
		}
		cmp.Products = kept
		if len(cmp.Products) < 2 {
			return fmt.Errorf("atom %d (comparison): needs at least two products", idx)
		}
		if len(cmp.Products) > maxComparisonCols {
			cmp.Products = cmp.Products[:maxComparisonCols]
			res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (comparison): capped at %d products", idx, maxComparisonCols))
		}
	case TypeCTA:
		c := a.Content.CTA
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("atom %d (cta): text required", idx)
		}
		if c.ButtonLabel == "" {
			c.ButtonLabel = "Shop now"
		}
	case TypeVideo:
		v := a.Content.Video
		if strings.TrimSpace(v.URL) == "" {
			return fmt.Errorf("atom %d (video): url required", idx)
		}
		if v.Title == "" {
			v.Title = "Watch"
		}
	case TypeTips:
		t := a.Content.Tips
		t.Items = filterBlank(t.Items)
		if len(t.Items) == 0 {
			return fmt.Errorf("atom %d (tips): no items", idx)
		}
		if len(t.Items) > maxListItems {
			t.Items = t.Items[:maxListItems]
			res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (tips): capped at %d items", idx, maxListItems))
		}
	case TypeNutritionFacts:
		nf := a.Content.NutritionFacts
		kept := nf.Rows[:0]
		for _, r := range nf.Rows {
			if strings.TrimSpace(r.Label) == "" || strings.TrimSpace(r.Amount) == "" {
				res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (nutrition_facts): dropped incomplete row", idx))
				continue
			}
			kept = append(kept, r)
		}
		nf.Rows = kept
		if len(nf.Rows) == 0 {
			return fmt.Errorf("atom %d (nutrition_facts): no rows", idx)
		}
	case TypeQuote:
		if strings.TrimSpace(a.Content.Quote.Text) == "" {
			return fmt.Errorf("atom %d (quote): text required", idx)
		}
	case TypeStats:
		st := a.Content.Stats
		kept := st.Items[:0]
		for _, s := range st.Items {
			if strings.TrimSpace(s.Label) == "" || strings.TrimSpace(s.Value) == "" {
				continue
			}
			kept = append(kept, s)
		}
		st.Items = kept
		if len(st.Items) == 0 {
			return fmt.Errorf("atom %d (stats): no items", idx)
		}
	case TypeSteps:
		sp := a.Content.Steps
		sp.Items = filterBlank(sp.Items)
		if len(sp.Items) == 0 {
			return fmt.Errorf("atom %d (steps): no items", idx)
		}
	case TypeImage:
		img := a.Content.Image
		if strings.TrimSpace(img.Hint) == "" && strings.TrimSpace(img.URL) == "" {
			return fmt.Errorf("atom %d (image): hint or url required", idx)
		}
	case TypeAccessorySet:
		as := a.Content.AccessorySet
		kept := as.Items[:0]
		for _, item := range as.Items {
			if strings.TrimSpace(item.Name) == "" {
				continue
			}
			kept = append(kept, item)
		}
		as.Items = kept
		if len(as.Items) == 0 {
			return fmt.Errorf("atom %d (accessory_set): no items", idx)
		}
	case TypeTestimonial:
		ts := a.Content.Testimonial
		if strings.TrimSpace(ts.Text) == "" {
			return fmt.Errorf("atom %d (testimonial): text required", idx)
		}
		if ts.Rating < 0 || ts.Rating > 5 {
			ts.Rating = 0
			res.Warnings = append(res.Warnings, fmt.Sprintf("atom %d (testimonial): rating out of range, cleared", idx))
		}
	case TypeSpecTable:
		tb := a.Content.SpecTable
		kept := tb.Rows[:0]
		for _, r := range tb.Rows {
			if strings.TrimSpace(r.Label) == "" {
				continue
			}
			kept = append(kept, r)
		}
		tb.Rows = kept
		if len(tb.Rows) == 0 {
			return fmt.Errorf("atom %d (spec_table): no rows", idx)
		}
	}
	return nil
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func filterBlank(items []string) []string {
	kept := items[:0]
	for _, s := range items {
		if strings.TrimSpace(s) == "" {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}
