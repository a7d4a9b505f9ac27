// Package layout assigns validated atoms to a bounded sequence of named
// blocks. The primary path asks the completion service for a proposal and
// validates it against the block library; a deterministic rule-based
// fallback covers service failures.
package layout

import "github.com/paolomoz/pagepoof-sub000/internal/atom"

// BlockDef declares a block the renderer knows how to draw: the atom types
// it accepts, a priority for tie-breaking, and how many instances one page
// may carry.
type BlockDef struct {
	Name       string
	Accepts    []atom.Type
	Priority   int
	MaxPerPage int
}

// Block is one entry of the selected layout. AtomIndices index into the
// validated atom array; an empty list requests default/fallback content.
type Block struct {
	BlockName   string `json:"block_name"`
	AtomIndices []int  `json:"atom_indices"`
	Variant     string `json:"variant,omitempty"`
}

// Library is the fixed block vocabulary. Declaration order matters: the
// greedy leftover-atom pass scans it front to back, so output order for
// unclaimed atoms follows this order.
var Library = []BlockDef{
	{Name: "hero", Accepts: []atom.Type{atom.TypeHeading, atom.TypeParagraph, atom.TypeImage}, Priority: 100, MaxPerPage: 1},
	{Name: "comparison-cards", Accepts: []atom.Type{atom.TypeComparison}, Priority: 90, MaxPerPage: 1},
	{Name: "pdp-card", Accepts: []atom.Type{atom.TypeProductDetail}, Priority: 85, MaxPerPage: 2},
	{Name: "feature-grid", Accepts: []atom.Type{atom.TypeFeatureSet}, Priority: 80, MaxPerPage: 2},
	{Name: "recipe-detail", Accepts: []atom.Type{atom.TypeRecipeDetail}, Priority: 75, MaxPerPage: 2},
	{Name: "accordion", Accepts: []atom.Type{atom.TypeFAQSet}, Priority: 70, MaxPerPage: 1},
	{Name: "video-panel", Accepts: []atom.Type{atom.TypeVideo}, Priority: 65, MaxPerPage: 2},
	{Name: "tips-list", Accepts: []atom.Type{atom.TypeTips}, Priority: 60, MaxPerPage: 2},
	{Name: "nutrition-panel", Accepts: []atom.Type{atom.TypeNutritionFacts}, Priority: 55, MaxPerPage: 1},
	{Name: "steps-panel", Accepts: []atom.Type{atom.TypeSteps}, Priority: 50, MaxPerPage: 1},
	{Name: "stats-strip", Accepts: []atom.Type{atom.TypeStats}, Priority: 45, MaxPerPage: 1},
	{Name: "quote-band", Accepts: []atom.Type{atom.TypeQuote, atom.TypeTestimonial}, Priority: 40, MaxPerPage: 2},
	{Name: "accessory-shelf", Accepts: []atom.Type{atom.TypeAccessorySet}, Priority: 35, MaxPerPage: 1},
	{Name: "spec-sheet", Accepts: []atom.Type{atom.TypeSpecTable}, Priority: 30, MaxPerPage: 1},
	{Name: "text-section", Accepts: []atom.Type{atom.TypeHeading, atom.TypeParagraph}, Priority: 25, MaxPerPage: 3},
	{Name: "cta-banner", Accepts: []atom.Type{atom.TypeCTA}, Priority: 20, MaxPerPage: 1},
}

// DefByName returns the library entry for a block name.
func DefByName(name string) (BlockDef, bool) {
	for _, def := range Library {
		if def.Name == name {
			return def, true
		}
	}
	return BlockDef{}, false
}

func (d BlockDef) accepts(t atom.Type) bool {
	for _, a := range d.Accepts {
		if a == t {
			return true
		}
	}
	return false
}
