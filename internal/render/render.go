// Package render converts (block, atoms) pairs into HTML fragments. Every
// block renders in isolation: a panic inside one renderer yields an error
// placeholder instead of aborting the page, and a block whose output
// carries no visible content is dropped entirely.
package render

import (
	"fmt"
	"html"
	"log"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/paolomoz/pagepoof-sub000/internal/atom"
	"github.com/paolomoz/pagepoof-sub000/internal/layout"
)

// RenderedBlock is always safe to concatenate into the page: even with
// Error set, HTML holds valid placeholder markup.
type RenderedBlock struct {
	Name         string      `json:"name"`
	HTML         string      `json:"html"`
	Atoms        []atom.Atom `json:"atoms"`
	Error        bool        `json:"error,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

// stripPolicy returns a singleton policy that removes every HTML element,
// leaving only text content. Used to decide whether a rendered block has
// anything visible in it.
func stripPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

type Renderer struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.Default()
	}
	return &Renderer{logger: logger}
}

// Render never fails. Blocks that panic produce error placeholders; blocks
// that render to nothing visible are suppressed.
func (r *Renderer) Render(blocks []layout.Block, atoms []atom.Atom) []RenderedBlock {
	var out []RenderedBlock
	for _, b := range blocks {
		selected := selectAtoms(b, atoms)
		rb := r.renderOne(b, selected)
		if !rb.Error && strings.TrimSpace(stripPolicy().Sanitize(rb.HTML)) == "" {
			continue
		}
		out = append(out, rb)
	}
	return out
}

func (r *Renderer) renderOne(b layout.Block, selected []atom.Atom) (rb RenderedBlock) {
	rb = RenderedBlock{Name: b.BlockName, Atoms: selected}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Printf("render %s panicked: %v", b.BlockName, rec)
			rb.Error = true
			rb.ErrorMessage = fmt.Sprint(rec)
			rb.HTML = errorPlaceholder(b.BlockName)
		}
	}()
	fn, ok := renderers[b.BlockName]
	if !ok {
		fn = renderGeneric
	}
	rb.HTML = fn(b, selected)
	return rb
}

func selectAtoms(b layout.Block, atoms []atom.Atom) []atom.Atom {
	selected := make([]atom.Atom, 0, len(b.AtomIndices))
	for _, idx := range b.AtomIndices {
		if idx >= 0 && idx < len(atoms) {
			selected = append(selected, atoms[idx])
		}
	}
	return selected
}

// errorPlaceholder must carry visible text: a rendered block with empty
// stripped HTML is never emitted, error or not.
func errorPlaceholder(name string) string {
	return fmt.Sprintf(`<section class="block block-error" data-block="%s"><p>This section couldn't be displayed.</p></section>`, esc(name))
}

func esc(s string) string {
	return html.EscapeString(s)
}
