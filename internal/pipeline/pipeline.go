// Package pipeline orchestrates one query's journey from classification to
// a fully rendered, streamed page. Stages never abort the run on content
// failures; each one degrades (fallback payloads, empty retrieval, error
// placeholders) and the stream always reaches a terminal event.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/paolomoz/pagepoof-sub000/config"
	"github.com/paolomoz/pagepoof-sub000/internal/atom"
	"github.com/paolomoz/pagepoof-sub000/internal/classifier"
	"github.com/paolomoz/pagepoof-sub000/internal/generator"
	"github.com/paolomoz/pagepoof-sub000/internal/layout"
	"github.com/paolomoz/pagepoof-sub000/internal/render"
	"github.com/paolomoz/pagepoof-sub000/internal/retriever"
	"github.com/paolomoz/pagepoof-sub000/internal/stream"
	"github.com/paolomoz/pagepoof-sub000/internal/urlmap"
)

// Emitter receives the ordered events of one session. *session.Session
// satisfies it; tests substitute a recorder.
type Emitter interface {
	Emit(name stream.EventName, data interface{}) stream.Event
	NextBlockIndex() int
}

// ImageProvider renders images for hints surfaced by generated content.
type ImageProvider interface {
	GenerateImage(ctx context.Context, hint, size, model string) (string, error)
}

// Request is one generation run's input.
type Request struct {
	Query   string
	Profile *retriever.Profile
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	retriever *retriever.Retriever
	generator *generator.Generator
	selector  *layout.Selector
	renderer  *render.Renderer
	catalog   urlmap.CatalogSource
	images    ImageProvider
	cfg       config.PipelineConfig
	imgModel  string
	logger    *log.Logger
}

func New(
	rt *retriever.Retriever,
	gen *generator.Generator,
	sel *layout.Selector,
	rnd *render.Renderer,
	catalog urlmap.CatalogSource,
	images ImageProvider,
	cfg config.PipelineConfig,
	imgModel string,
	logger *log.Logger,
) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		retriever: rt,
		generator: gen,
		selector:  sel,
		renderer:  rnd,
		catalog:   catalog,
		images:    images,
		cfg:       cfg,
		imgModel:  imgModel,
		logger:    logger,
	}
}

// Run executes the full pipeline for one request, emitting events as each
// stage lands. It always terminates the stream: complete on success,
// error if the run itself panics or the context dies mid-flight.
func (o *Orchestrator) Run(ctx context.Context, em Emitter, req Request) {
	activeSessions.Inc()
	defer activeSessions.Dec()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("[PIPELINE] run panicked: %v", r)
			em.Emit(stream.EventError, stream.ErrorPayload{Message: fmt.Sprintf("generation failed: %v", r)})
		}
	}()

	started := time.Now()

	// Classification is synchronous and cannot fail.
	em.Emit(stream.EventProgress, stream.ProgressPayload{Stage: "classification"})
	cls := o.stageClassify(req.Query)
	em.Emit(stream.EventClassification, cls)

	if err := ctx.Err(); err != nil {
		em.Emit(stream.EventError, stream.ErrorPayload{Stage: "classification", Message: err.Error()})
		return
	}

	// Hero and retrieval are independent; run them together so the hero
	// reaches the client before the heavy content call starts.
	em.Emit(stream.EventProgress, stream.ProgressPayload{Stage: "retrieval"})
	heroCh := make(chan generator.Hero, 1)
	go func() {
		heroCh <- o.stageHero(ctx, req.Query, cls)
	}()
	rc := o.stageRetrieve(ctx, req.Query, cls, req.Profile)
	hero := <-heroCh

	em.Emit(stream.EventHero, hero)
	em.Emit(stream.EventRetrieval, retrievalSummary(rc))

	if err := ctx.Err(); err != nil {
		em.Emit(stream.EventError, stream.ErrorPayload{Stage: "retrieval", Message: err.Error()})
		return
	}

	// Content generation. Internally falls back to the apology payload,
	// so the result always carries at least a heading and a paragraph.
	em.Emit(stream.EventProgress, stream.ProgressPayload{Stage: "generation"})
	result := o.stageGenerate(ctx, req.Query, cls, rc)
	parseTiers.WithLabelValues(result.ParseTier.String()).Inc()

	validated := atom.Validate(result.Atoms)
	for _, warn := range validated.Warnings {
		o.logger.Printf("[PIPELINE] atom warning: %s", warn)
	}
	em.Emit(stream.EventGeneration, generationSummary{
		Title:       result.Title,
		Description: result.Description,
		AtomCount:   len(validated.Atoms),
		Dropped:     len(result.Atoms) - len(validated.Atoms),
	})

	if err := ctx.Err(); err != nil {
		em.Emit(stream.EventError, stream.ErrorPayload{Stage: "generation", Message: err.Error()})
		return
	}

	em.Emit(stream.EventProgress, stream.ProgressPayload{Stage: "layout"})
	blocks := o.stageLayout(ctx, validated.Atoms, cls, result.SuggestedBlocks)
	em.Emit(stream.EventLayout, layoutSummary(blocks))

	em.Emit(stream.EventProgress, stream.ProgressPayload{Stage: "rendering"})
	rendered := o.stageRender(blocks, validated.Atoms)

	// Link correction runs over the whole page once; a failed catalog
	// build degrades to a no-op.
	catalog := urlmap.BuildCatalog(ctx, o.catalog)
	for i := range rendered {
		rendered[i].HTML = catalog.CorrectURLs(rendered[i].HTML)
	}

	var failed []string
	for _, rb := range rendered {
		if err := ctx.Err(); err != nil {
			em.Emit(stream.EventError, stream.ErrorPayload{Stage: "stream", Message: err.Error()})
			return
		}
		idx := em.NextBlockIndex()
		em.Emit(stream.EventBlock, stream.BlockPayload{
			Name:       rb.Name,
			BlockIndex: idx,
			HTML:       rb.HTML,
			Error:      rb.Error,
		})
		if rb.Error {
			failed = append(failed, rb.Name)
			renderErrors.Inc()
		}
		if o.cfg.BlockPacingDelay > 0 {
			select {
			case <-time.After(o.cfg.BlockPacingDelay):
			case <-ctx.Done():
			}
		}
	}
	if len(failed) > 0 {
		em.Emit(stream.EventBlockErrors, map[string]interface{}{"blocks": failed})
	}

	em.Emit(stream.EventProgress, stream.ProgressPayload{Stage: "images"})
	o.stageImages(ctx, em, hero, validated.Atoms, blocks)

	em.Emit(stream.EventComplete, completeSummary{
		Title:      result.Title,
		BlockCount: len(rendered),
		ElapsedMS:  time.Since(started).Milliseconds(),
	})
}

func (o *Orchestrator) stageClassify(query string) classifier.Classification {
	defer o.observe("classification", time.Now())
	return classifier.Classify(query)
}

func (o *Orchestrator) stageHero(ctx context.Context, query string, cls classifier.Classification) generator.Hero {
	defer o.observe("hero", time.Now())
	ctx, cancel := o.stageContext(ctx)
	defer cancel()
	return o.generator.GenerateHero(ctx, query, cls)
}

func (o *Orchestrator) stageRetrieve(ctx context.Context, query string, cls classifier.Classification, profile *retriever.Profile) retriever.Context {
	defer o.observe("retrieval", time.Now())
	ctx, cancel := o.stageContext(ctx)
	defer cancel()
	return o.retriever.Retrieve(ctx, query, cls, profile)
}

func (o *Orchestrator) stageGenerate(ctx context.Context, query string, cls classifier.Classification, rc retriever.Context) generator.AtomsResult {
	defer o.observe("generation", time.Now())
	ctx, cancel := o.stageContext(ctx)
	defer cancel()
	return o.generator.GenerateAtoms(ctx, query, cls, rc)
}

func (o *Orchestrator) stageLayout(ctx context.Context, atoms []atom.Atom, cls classifier.Classification, suggested []string) []layout.Block {
	defer o.observe("layout", time.Now())
	ctx, cancel := o.stageContext(ctx)
	defer cancel()
	return o.selector.SelectLayout(ctx, atoms, cls, suggested)
}

func (o *Orchestrator) stageRender(blocks []layout.Block, atoms []atom.Atom) []render.RenderedBlock {
	defer o.observe("render", time.Now())
	return o.renderer.Render(blocks, atoms)
}

// stageImages generates images for the hero hint and every atom image
// hint, batched so at most ImageBatchSize calls run at once. IDs are
// derived from position, so a resumed stream re-announces the same ids.
func (o *Orchestrator) stageImages(ctx context.Context, em Emitter, hero generator.Hero, atoms []atom.Atom, blocks []layout.Block) {
	if o.images == nil {
		return
	}
	defer o.observe("images", time.Now())

	type job struct {
		id   string
		hint string
	}
	var jobs []job
	if hero.ImageHint != "" {
		jobs = append(jobs, job{id: "img-hero", hint: hero.ImageHint})
	}
	for bi, b := range blocks {
		for _, ai := range b.AtomIndices {
			if ai < 0 || ai >= len(atoms) {
				continue
			}
			if hint := atoms[ai].ImageHint; hint != "" {
				jobs = append(jobs, job{id: fmt.Sprintf("img-%d-%d", bi, ai), hint: hint})
			}
		}
	}

	batch := o.cfg.ImageBatchSize
	if batch <= 0 {
		batch = 2
	}
	for start := 0; start < len(jobs); start += batch {
		end := start + batch
		if end > len(jobs) {
			end = len(jobs)
		}
		results := make([]stream.ImagePayload, end-start)
		done := make(chan int, end-start)
		for i, j := range jobs[start:end] {
			go func(i int, j job) {
				defer func() { done <- i }()
				url, err := o.images.GenerateImage(ctx, j.hint, "1024x1024", o.imgModel)
				if err != nil {
					o.logger.Printf("[PIPELINE] image generation failed for %s: %v", j.id, err)
					return
				}
				results[i] = stream.ImagePayload{ID: j.id, URL: url, Hint: j.hint}
			}(i, j)
		}
		for range jobs[start:end] {
			<-done
		}
		for _, p := range results {
			if p.URL != "" {
				em.Emit(stream.EventImageReady, p)
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (o *Orchestrator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.cfg.StageTimeout)
}

func (o *Orchestrator) observe(stage string, started time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

type generationSummary struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AtomCount   int    `json:"atom_count"`
	Dropped     int    `json:"dropped,omitempty"`
}

type completeSummary struct {
	Title      string `json:"title"`
	BlockCount int    `json:"block_count"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

func retrievalSummary(rc retriever.Context) map[string]int {
	return map[string]int{
		"products": len(rc.Products),
		"recipes":  len(rc.Recipes),
		"faqs":     len(rc.FAQs),
		"videos":   len(rc.Videos),
	}
}

func layoutSummary(blocks []layout.Block) map[string]interface{} {
	names := make([]string, len(blocks))
	for i, b := range blocks {
		names[i] = b.BlockName
	}
	return map[string]interface{}{"blocks": names, "order": strings.Join(names, ",")}
}
