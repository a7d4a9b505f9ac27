// Package generator produces the page's content from the completion
// service: a fast hero summary and a structured atom list. Both calls
// degrade to fixed payloads rather than propagating parse failures — the
// page must always have content.
package generator

import (
	"context"
	"log"

	"github.com/paolomoz/pagepoof-sub000/internal/atom"
	"github.com/paolomoz/pagepoof-sub000/internal/classifier"
	"github.com/paolomoz/pagepoof-sub000/internal/retriever"
)

// CompletionProvider is the slice of the provider surface generation uses.
type CompletionProvider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
}

// Routing names the models used for the two generation calls.
type Routing struct {
	Hero  string
	Atoms string
}

// Hero is the above-the-fold summary rendered before retrieval completes.
type Hero struct {
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	ImageHint string `json:"image_hint,omitempty"`
}

// AtomsResult is the structured content produced by the main generation
// call. SuggestedBlocks is advisory input to layout selection.
type AtomsResult struct {
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	Atoms           []atom.Atom `json:"atoms"`
	SuggestedBlocks []string    `json:"suggested_blocks,omitempty"`
	ParseTier       ParseTier   `json:"-"`
}

type Generator struct {
	provider CompletionProvider
	routing  Routing
	logger   *log.Logger
}

func New(provider CompletionProvider, routing Routing, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{provider: provider, routing: routing, logger: logger}
}

// FallbackHero is the fixed triple returned when the hero call fails or
// parses badly.
func FallbackHero() Hero {
	return Hero{
		Title:     "Discover Vitamix",
		Subtitle:  "Professional-grade blending for every kitchen",
		ImageHint: "vitamix blender with fresh fruit on a kitchen counter",
	}
}

// FallbackAtoms is the terminal payload of the four-tier parse chain: an
// apology heading plus paragraph, guaranteed renderable.
func FallbackAtoms() AtomsResult {
	return AtomsResult{
		Title: "Vitamix Information",
		Atoms: []atom.Atom{
			atom.NewHeading("Vitamix Information", 10),
			atom.NewParagraph("We couldn't build a tailored page for that question just now. Browse our products and recipes, or try rephrasing your search.", 8),
		},
		ParseTier: ParseFallback,
	}
}

const heroSystemPrompt = `You write page heroes for a blender brand's website.
Respond with a single JSON object: {"title": string, "subtitle": string, "image_hint": string}.
Titles are at most 8 words, subtitles at most 20. No markdown, no commentary.`

// GenerateHero makes the low-latency hero call. Any failure, including
// unparseable output, resolves to the fixed fallback triple.
func (g *Generator) GenerateHero(ctx context.Context, query string, c classifier.Classification) Hero {
	if g.provider == nil || query == "" {
		return FallbackHero()
	}
	text, err := g.provider.Complete(ctx, heroSystemPrompt, heroUserPrompt(query, c), g.routing.Hero)
	if err != nil {
		g.logger.Printf("hero generation failed: %v", err)
		return FallbackHero()
	}
	var h Hero
	if _, ok := ParseJSON(text, &h); !ok || h.Title == "" {
		return FallbackHero()
	}
	if h.Subtitle == "" {
		h.Subtitle = FallbackHero().Subtitle
	}
	return h
}

// GenerateAtoms makes the structured content call. The response must be a
// single JSON object; the four-tier parse chain guarantees a non-empty atom
// list with at least one heading even for garbage completions.
func (g *Generator) GenerateAtoms(ctx context.Context, query string, c classifier.Classification, rc retriever.Context) AtomsResult {
	if g.provider == nil {
		return FallbackAtoms()
	}
	text, err := g.provider.Complete(ctx, atomsSystemPrompt, atomsUserPrompt(query, c, rc), g.routing.Atoms)
	if err != nil {
		g.logger.Printf("atom generation failed: %v", err)
		return FallbackAtoms()
	}
	var res AtomsResult
	tier, ok := ParseJSON(text, &res)
	if !ok || len(res.Atoms) == 0 {
		return FallbackAtoms()
	}
	res.ParseTier = tier
	if !hasHeading(res.Atoms) {
		title := res.Title
		if title == "" {
			title = FallbackAtoms().Title
		}
		res.Atoms = append([]atom.Atom{atom.NewHeading(title, 10)}, res.Atoms...)
	}
	return res
}

func hasHeading(atoms []atom.Atom) bool {
	for _, a := range atoms {
		if a.Type == atom.TypeHeading {
			return true
		}
	}
	return false
}
