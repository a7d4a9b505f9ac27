package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/paolomoz/pagepoof-sub000/internal/atom"
	"github.com/paolomoz/pagepoof-sub000/internal/classifier"
	"github.com/paolomoz/pagepoof-sub000/internal/generator"
)

// CompletionProvider is the slice of the provider surface layout selection
// uses for its proposal call.
type CompletionProvider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
}

type Selector struct {
	provider  CompletionProvider
	model     string
	maxBlocks int
	logger    *log.Logger
}

func NewSelector(provider CompletionProvider, model string, maxBlocks int, logger *log.Logger) *Selector {
	if maxBlocks <= 0 {
		maxBlocks = 8
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Selector{provider: provider, model: model, maxBlocks: maxBlocks, logger: logger}
}

const selectSystemPrompt = `You arrange content atoms into page blocks.
Respond with a single JSON object: {"blocks": [{"block": string, "atoms": [int], "variant": string?}]}.
Use only the listed block names and atom indices. No commentary.`

type proposal struct {
	Blocks []struct {
		Block   string `json:"block"`
		Atoms   []int  `json:"atoms"`
		Variant string `json:"variant,omitempty"`
	} `json:"blocks"`
}

// SelectLayout asks the completion service for a block sequence, validates
// it against the library, and enforces the page invariants regardless of
// what the service returned. When the service is unavailable or its output
// unusable, a deterministic rule-based layout keyed off the classification
// type takes over.
func (s *Selector) SelectLayout(ctx context.Context, atoms []atom.Atom, c classifier.Classification, suggested []string) []Block {
	blocks, ok := s.propose(ctx, atoms, suggested)
	if !ok {
		blocks = ruleBasedLayout(atoms, c)
	}
	return s.enforceInvariants(blocks, atoms)
}

func (s *Selector) propose(ctx context.Context, atoms []atom.Atom, suggested []string) ([]Block, bool) {
	if s.provider == nil || len(atoms) == 0 {
		return nil, false
	}
	text, err := s.provider.Complete(ctx, selectSystemPrompt, selectUserPrompt(atoms, suggested), s.model)
	if err != nil {
		s.logger.Printf("layout proposal failed: %v", err)
		return nil, false
	}
	var p proposal
	if _, ok := generator.ParseJSON(text, &p); !ok || len(p.Blocks) == 0 {
		return nil, false
	}

	claimed := make(map[int]bool)
	counts := make(map[string]int)
	var blocks []Block
	for _, entry := range p.Blocks {
		def, known := DefByName(entry.Block)
		if !known {
			continue
		}
		if counts[def.Name] >= def.MaxPerPage {
			continue
		}
		var indices []int
		for _, idx := range entry.Atoms {
			if idx < 0 || idx >= len(atoms) || claimed[idx] {
				continue
			}
			if !def.accepts(atoms[idx].Type) {
				continue
			}
			claimed[idx] = true
			indices = append(indices, idx)
		}
		counts[def.Name]++
		blocks = append(blocks, Block{BlockName: def.Name, AtomIndices: indices, Variant: entry.Variant})
	}
	if len(blocks) == 0 {
		return nil, false
	}
	return blocks, true
}

func selectUserPrompt(atoms []atom.Atom, suggested []string) string {
	var b strings.Builder
	b.WriteString("Blocks:\n")
	for _, def := range Library {
		types := make([]string, len(def.Accepts))
		for i, t := range def.Accepts {
			types[i] = string(t)
		}
		fmt.Fprintf(&b, "- %s (accepts: %s, max %d)\n", def.Name, strings.Join(types, ", "), def.MaxPerPage)
	}
	b.WriteString("\nAtoms:\n")
	for i, a := range atoms {
		fmt.Fprintf(&b, "- [%d] %s (priority %d)\n", i, a.Type, a.Priority)
	}
	if len(suggested) > 0 {
		data, _ := json.Marshal(suggested)
		fmt.Fprintf(&b, "\nGenerator suggestions: %s\n", data)
	}
	b.WriteString("\nArrange the atoms into blocks.")
	return b.String()
}

// enforceInvariants applies the mandatory post-hoc rules: hero first when a
// heading exists, greedy assignment of unclaimed atoms in library
// declaration order, and the total block cap.
func (s *Selector) enforceInvariants(blocks []Block, atoms []atom.Atom) []Block {
	claimed := make(map[int]bool)
	for _, b := range blocks {
		for _, idx := range b.AtomIndices {
			claimed[idx] = true
		}
	}

	if firstHeading := firstOfType(atoms, atom.TypeHeading); firstHeading >= 0 {
		blocks = ensureHeroFirst(blocks, atoms, firstHeading, claimed)
	}

	blocks = assignLeftovers(blocks, atoms, claimed)

	if len(blocks) > s.maxBlocks {
		blocks = blocks[:s.maxBlocks]
	}
	return blocks
}

// ensureHeroFirst moves (or creates) the hero block at position zero and
// makes it claim the first heading and first paragraph atoms.
func ensureHeroFirst(blocks []Block, atoms []atom.Atom, firstHeading int, claimed map[int]bool) []Block {
	heroIdx := -1
	for i, b := range blocks {
		if b.BlockName == "hero" {
			heroIdx = i
			break
		}
	}
	var hero Block
	if heroIdx >= 0 {
		hero = blocks[heroIdx]
		blocks = append(blocks[:heroIdx], blocks[heroIdx+1:]...)
	} else {
		hero = Block{BlockName: "hero"}
	}

	if !contains(hero.AtomIndices, firstHeading) {
		// Steal the heading from whichever block claimed it.
		for i := range blocks {
			blocks[i].AtomIndices = remove(blocks[i].AtomIndices, firstHeading)
		}
		hero.AtomIndices = append([]int{firstHeading}, hero.AtomIndices...)
		claimed[firstHeading] = true
	}
	if firstParagraph := firstOfType(atoms, atom.TypeParagraph); firstParagraph >= 0 && !contains(hero.AtomIndices, firstParagraph) {
		for i := range blocks {
			blocks[i].AtomIndices = remove(blocks[i].AtomIndices, firstParagraph)
		}
		hero.AtomIndices = append(hero.AtomIndices, firstParagraph)
		claimed[firstParagraph] = true
	}
	return append([]Block{hero}, blocks...)
}

// assignLeftovers attaches each unclaimed atom to the first library block
// definition that accepts its type, creating a new block instance when the
// layout has none yet. The resulting order for unclaimed atoms follows
// library declaration order, not atom order.
func assignLeftovers(blocks []Block, atoms []atom.Atom, claimed map[int]bool) []Block {
	counts := make(map[string]int)
	for _, b := range blocks {
		counts[b.BlockName]++
	}
	for idx, a := range atoms {
		if claimed[idx] {
			continue
		}
		for _, def := range Library {
			if def.Name == "hero" || !def.accepts(a.Type) {
				continue
			}
			attached := false
			for i := range blocks {
				if blocks[i].BlockName == def.Name {
					blocks[i].AtomIndices = append(blocks[i].AtomIndices, idx)
					attached = true
					break
				}
			}
			if !attached {
				if counts[def.Name] >= def.MaxPerPage {
					continue
				}
				blocks = append(blocks, Block{BlockName: def.Name, AtomIndices: []int{idx}})
				counts[def.Name]++
			}
			claimed[idx] = true
			break
		}
	}
	return blocks
}

// ruleBasedLayout is the deterministic secondary path keyed purely off the
// classification type: hero first, one primary block per intent, a CTA
// banner last when a CTA atom exists.
func ruleBasedLayout(atoms []atom.Atom, c classifier.Classification) []Block {
	blocks := []Block{{BlockName: "hero"}}

	var primary string
	switch c.Type {
	case classifier.TypeProduct:
		primary = "comparison-cards"
		if firstOfType(atoms, atom.TypeComparison) < 0 {
			primary = "pdp-card"
		}
	case classifier.TypeRecipe:
		primary = "recipe-detail"
	case classifier.TypeSupport:
		primary = "accordion"
	case classifier.TypeCommercial:
		primary = "pdp-card"
	default:
		primary = "text-section"
	}
	if def, ok := DefByName(primary); ok {
		var indices []int
		for idx, a := range atoms {
			if def.accepts(a.Type) {
				indices = append(indices, idx)
			}
		}
		blocks = append(blocks, Block{BlockName: primary, AtomIndices: indices})
	}

	if ctaIdx := firstOfType(atoms, atom.TypeCTA); ctaIdx >= 0 {
		blocks = append(blocks, Block{BlockName: "cta-banner", AtomIndices: []int{ctaIdx}})
	}
	return blocks
}

func firstOfType(atoms []atom.Atom, t atom.Type) int {
	for i, a := range atoms {
		if a.Type == t {
			return i
		}
	}
	return -1
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func remove(list []int, v int) []int {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
