package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/paolomoz/pagepoof-sub000/config"
	"github.com/paolomoz/pagepoof-sub000/internal/generator"
	"github.com/paolomoz/pagepoof-sub000/internal/layout"
	"github.com/paolomoz/pagepoof-sub000/internal/render"
	"github.com/paolomoz/pagepoof-sub000/internal/retriever"
	"github.com/paolomoz/pagepoof-sub000/internal/store"
	"github.com/paolomoz/pagepoof-sub000/internal/stream"
)

// recorder captures emitted events in order, standing in for a session.
type recorder struct {
	events   []stream.Event
	blockIdx int
}

func (r *recorder) Emit(name stream.EventName, data interface{}) stream.Event {
	evt := stream.Event{Name: name, Index: len(r.events), Data: data}
	r.events = append(r.events, evt)
	return evt
}

func (r *recorder) NextBlockIndex() int {
	idx := r.blockIdx
	r.blockIdx++
	return idx
}

func (r *recorder) names() []stream.EventName {
	out := make([]stream.EventName, len(r.events))
	for i, e := range r.events {
		out[i] = e.Name
	}
	return out
}

func (r *recorder) count(name stream.EventName) int {
	n := 0
	for _, e := range r.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// emptyCatalog satisfies retriever.Catalog and urlmap.CatalogSource with
// empty results.
type emptyCatalog struct{}

func (emptyCatalog) SearchProductsKeyword(ctx context.Context, terms []string, limit int) ([]store.Product, error) {
	return nil, nil
}
func (emptyCatalog) SearchRecipesKeyword(ctx context.Context, terms []string, limit int) ([]store.Recipe, error) {
	return nil, nil
}
func (emptyCatalog) SearchFAQsKeyword(ctx context.Context, terms []string, limit int) ([]store.FAQ, error) {
	return nil, nil
}
func (emptyCatalog) SearchVideosKeyword(ctx context.Context, terms []string, limit int) ([]store.Video, error) {
	return nil, nil
}
func (emptyCatalog) GetProductsBySKUs(ctx context.Context, skus []string) ([]store.Product, error) {
	return nil, nil
}
func (emptyCatalog) GetRecipesBySlugs(ctx context.Context, slugs []string) ([]store.Recipe, error) {
	return nil, nil
}
func (emptyCatalog) GetFAQsByIDs(ctx context.Context, ids []string) ([]store.FAQ, error) {
	return nil, nil
}
func (emptyCatalog) GetVideosByIDs(ctx context.Context, ids []string) ([]store.Video, error) {
	return nil, nil
}
func (emptyCatalog) SearchEmbeddings(ctx context.Context, collection string, vector []float32, topK int) ([]store.EmbeddingHit, error) {
	return nil, nil
}
func (emptyCatalog) ListProducts(ctx context.Context) ([]store.Product, error) { return nil, nil }
func (emptyCatalog) ListRecipes(ctx context.Context) ([]store.Recipe, error)  { return nil, nil }

type scriptedProvider struct {
	response string
	err      error
}

func (s *scriptedProvider) Complete(ctx context.Context, system, user, model string) (string, error) {
	return s.response, s.err
}

type fakeImages struct {
	calls int
	err   error
}

func (f *fakeImages) GenerateImage(ctx context.Context, hint, size, model string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "https://img.example.com/" + size, nil
}

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MaxBlocks:      8,
		ImageBatchSize: 2,
	}
}

func newOrchestrator(provider generator.CompletionProvider, images ImageProvider) *Orchestrator {
	cat := emptyCatalog{}
	return New(
		retriever.New(cat, nil, "", 5, nil),
		generator.New(provider, generator.Routing{Hero: "h", Atoms: "a"}, nil),
		layout.NewSelector(nil, "l", 8, nil),
		render.New(nil),
		cat,
		images,
		testConfig(),
		"img-model",
		nil,
	)
}

func TestRunEmptyQueryReachesComplete(t *testing.T) {
	rec := &recorder{}
	o := newOrchestrator(&scriptedProvider{err: errors.New("provider down")}, nil)
	o.Run(context.Background(), rec, Request{Query: ""})

	names := rec.names()
	if names[0] != stream.EventProgress {
		t.Fatalf("stream must open with progress, got %s", names[0])
	}
	if last := names[len(names)-1]; last != stream.EventComplete {
		t.Fatalf("stream must end with complete, got %s (all: %v)", last, names)
	}
	for _, required := range []stream.EventName{
		stream.EventClassification, stream.EventHero, stream.EventRetrieval,
		stream.EventGeneration, stream.EventLayout, stream.EventBlock,
	} {
		if rec.count(required) == 0 {
			t.Fatalf("missing %s event (all: %v)", required, names)
		}
	}
	if rec.count(stream.EventError) != 0 {
		t.Fatalf("degraded run must not error: %v", names)
	}
}

func TestRunEmitsProgressBeforeEveryStage(t *testing.T) {
	rec := &recorder{}
	o := newOrchestrator(&scriptedProvider{err: errors.New("provider down")}, &fakeImages{})
	o.Run(context.Background(), rec, Request{Query: "quiet blender"})

	var stages []string
	for _, e := range rec.events {
		if e.Name != stream.EventProgress {
			continue
		}
		p, ok := e.Data.(stream.ProgressPayload)
		if !ok {
			t.Fatalf("progress payload wrong type: %#v", e.Data)
		}
		stages = append(stages, p.Stage)
	}
	want := []string{"classification", "retrieval", "generation", "layout", "rendering", "images"}
	if len(stages) != len(want) {
		t.Fatalf("expected progress for %v, got %v", want, stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("progress order wrong at %d: want %s, got %s (all: %v)", i, want[i], stages[i], stages)
		}
	}
}

func TestRunBlocksCarryRenderableHTML(t *testing.T) {
	rec := &recorder{}
	o := newOrchestrator(&scriptedProvider{response: "garbage, not json"}, nil)
	o.Run(context.Background(), rec, Request{Query: "something impossible"})

	blockSeen := false
	lastIdx := -1
	for _, e := range rec.events {
		if e.Name != stream.EventBlock {
			continue
		}
		blockSeen = true
		p, ok := e.Data.(stream.BlockPayload)
		if !ok {
			t.Fatalf("block payload wrong type: %#v", e.Data)
		}
		if strings.TrimSpace(p.HTML) == "" {
			t.Fatalf("block %s has empty html", p.Name)
		}
		if p.BlockIndex != lastIdx+1 {
			t.Fatalf("block indices not contiguous: %d after %d", p.BlockIndex, lastIdx)
		}
		lastIdx = p.BlockIndex
	}
	if !blockSeen {
		t.Fatalf("no block events emitted: %v", rec.names())
	}
}

func TestRunEmitsImagesWithStableIDs(t *testing.T) {
	// Atoms carry an image hint; hero falls back (provider returns atoms
	// JSON for both calls, hero parse still finds a title-less object and
	// falls back to the fixed hero which has a hint).
	resp := `{"title":"Quiet Blending","atoms":[
		{"type":"heading","priority":9,"content":{"text":"Quiet Blending","level":1}},
		{"type":"paragraph","priority":7,"image_hint":"blender on a counter","content":{"text":"The Propel line runs quieter."}}
	]}`
	imgs := &fakeImages{}
	rec := &recorder{}
	o := newOrchestrator(&scriptedProvider{response: resp}, imgs)
	o.Run(context.Background(), rec, Request{Query: "quiet blender"})

	var ids []string
	for _, e := range rec.events {
		if e.Name != stream.EventImageReady {
			continue
		}
		p := e.Data.(stream.ImagePayload)
		if p.URL == "" || p.ID == "" {
			t.Fatalf("image payload incomplete: %#v", p)
		}
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		t.Fatalf("expected image events: %v", rec.names())
	}
	// A second run over the same input must mint the same ids.
	rec2 := &recorder{}
	o2 := newOrchestrator(&scriptedProvider{response: resp}, &fakeImages{})
	o2.Run(context.Background(), rec2, Request{Query: "quiet blender"})
	var ids2 []string
	for _, e := range rec2.events {
		if e.Name == stream.EventImageReady {
			ids2 = append(ids2, e.Data.(stream.ImagePayload).ID)
		}
	}
	if len(ids) != len(ids2) {
		t.Fatalf("image id sets differ across runs: %v vs %v", ids, ids2)
	}
	for i := range ids {
		if ids[i] != ids2[i] {
			t.Fatalf("image ids unstable: %v vs %v", ids, ids2)
		}
	}
}

func TestRunImageFailureSkipsEvent(t *testing.T) {
	rec := &recorder{}
	o := newOrchestrator(&scriptedProvider{err: errors.New("down")}, &fakeImages{err: errors.New("no image")})
	o.Run(context.Background(), rec, Request{Query: "anything"})
	if rec.count(stream.EventImageReady) != 0 {
		t.Fatalf("failed image generation must not emit image-ready")
	}
	if rec.names()[len(rec.events)-1] != stream.EventComplete {
		t.Fatalf("image failures must not block completion: %v", rec.names())
	}
}

func TestRunCancelledContextEmitsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}
	o := newOrchestrator(&scriptedProvider{err: errors.New("down")}, nil)
	o.Run(ctx, rec, Request{Query: "anything"})

	last := rec.events[len(rec.events)-1]
	if last.Name != stream.EventError {
		t.Fatalf("cancelled run must end with error, got %s", last.Name)
	}
	if rec.count(stream.EventComplete) != 0 {
		t.Fatalf("cancelled run must not complete")
	}
}
