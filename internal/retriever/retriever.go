// Package retriever implements hybrid context retrieval: semantic vector
// search first, with a full fallback to keyword search fanned out across
// the four content collections. Retrieval never fails the pipeline; a
// collection that errors resolves to an empty list.
package retriever

import (
	"context"
	"log"
	"sync"

	"github.com/paolomoz/pagepoof-sub000/internal/classifier"
	"github.com/paolomoz/pagepoof-sub000/internal/store"
)

// Catalog is the slice of the relational store retrieval depends on.
type Catalog interface {
	SearchProductsKeyword(ctx context.Context, terms []string, limit int) ([]store.Product, error)
	SearchRecipesKeyword(ctx context.Context, terms []string, limit int) ([]store.Recipe, error)
	SearchFAQsKeyword(ctx context.Context, terms []string, limit int) ([]store.FAQ, error)
	SearchVideosKeyword(ctx context.Context, terms []string, limit int) ([]store.Video, error)
	GetProductsBySKUs(ctx context.Context, skus []string) ([]store.Product, error)
	GetRecipesBySlugs(ctx context.Context, slugs []string) ([]store.Recipe, error)
	GetFAQsByIDs(ctx context.Context, ids []string) ([]store.FAQ, error)
	GetVideosByIDs(ctx context.Context, ids []string) ([]store.Video, error)
	SearchEmbeddings(ctx context.Context, collection string, vector []float32, topK int) ([]store.EmbeddingHit, error)
}

// Embedder computes query embeddings for the semantic path.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string, model string) ([][]float32, error)
}

// Context holds the retrieved collections. A failed collection is an empty
// list, never a partially populated one.
type Context struct {
	Products []store.Product `json:"products"`
	Recipes  []store.Recipe  `json:"recipes"`
	FAQs     []store.FAQ     `json:"faqs"`
	Videos   []store.Video   `json:"videos"`
}

// Empty reports whether no collection produced anything.
func (c Context) Empty() bool {
	return len(c.Products) == 0 && len(c.Recipes) == 0 && len(c.FAQs) == 0 && len(c.Videos) == 0
}

// Profile carries the personalization signals retrieval honors.
type Profile struct {
	DietaryPreferences []string `json:"dietary_preferences,omitempty"`
	PreferredSeries    string   `json:"preferred_series,omitempty"`
}

// Retriever fetches candidate records for the generator.
type Retriever struct {
	catalog        Catalog
	embedder       Embedder
	embeddingModel string
	maxTerms       int
	logger         *log.Logger
}

func New(catalog Catalog, embedder Embedder, embeddingModel string, maxTerms int, logger *log.Logger) *Retriever {
	if maxTerms <= 0 {
		maxTerms = 5
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Retriever{
		catalog:        catalog,
		embedder:       embedder,
		embeddingModel: embeddingModel,
		maxTerms:       maxTerms,
		logger:         logger,
	}
}

// Retrieve tries semantic search and falls back entirely to keyword search
// when the semantic path errors or comes back empty. Only collections named
// by the classification's retrieval policy are queried.
func (r *Retriever) Retrieve(ctx context.Context, query string, c classifier.Classification, profile *Profile) Context {
	policy := c.RetrievalPolicy

	result := r.semantic(ctx, query, policy)
	if result.Empty() {
		result = r.keyword(ctx, c.Keywords, policy)
	}
	if profile != nil {
		r.personalize(&result, policy, *profile)
	}
	return result
}

func (r *Retriever) semantic(ctx context.Context, query string, policy classifier.RetrievalPolicy) Context {
	var out Context
	if r.embedder == nil || query == "" {
		return out
	}
	vecs, err := r.embedder.CreateEmbedding(ctx, []string{query}, r.embeddingModel)
	if err != nil || len(vecs) == 0 {
		if err != nil {
			r.logger.Printf("semantic retrieval: embedding failed: %v", err)
		}
		return out
	}
	vec := vecs[0]

	for _, col := range policy.Collections {
		ids := r.searchIDs(ctx, string(col), vec, policy)
		if len(ids) == 0 {
			continue
		}
		switch col {
		case classifier.CollectionProducts:
			if products, err := r.catalog.GetProductsBySKUs(ctx, ids); err == nil {
				out.Products = products
			} else {
				r.logger.Printf("semantic retrieval: hydrate products failed: %v", err)
			}
		case classifier.CollectionRecipes:
			if recipes, err := r.catalog.GetRecipesBySlugs(ctx, ids); err == nil {
				out.Recipes = recipes
			} else {
				r.logger.Printf("semantic retrieval: hydrate recipes failed: %v", err)
			}
		case classifier.CollectionFAQs:
			if faqs, err := r.catalog.GetFAQsByIDs(ctx, ids); err == nil {
				out.FAQs = faqs
			} else {
				r.logger.Printf("semantic retrieval: hydrate faqs failed: %v", err)
			}
		case classifier.CollectionVideos:
			if videos, err := r.catalog.GetVideosByIDs(ctx, ids); err == nil {
				out.Videos = videos
			} else {
				r.logger.Printf("semantic retrieval: hydrate videos failed: %v", err)
			}
		}
	}
	return out
}

func (r *Retriever) searchIDs(ctx context.Context, collection string, vec []float32, policy classifier.RetrievalPolicy) []string {
	hits, err := r.catalog.SearchEmbeddings(ctx, collection, vec, policy.TopK)
	if err != nil {
		r.logger.Printf("semantic retrieval: %s search failed: %v", collection, err)
		return nil
	}
	var ids []string
	for _, h := range hits {
		if h.Score() < policy.MinScore {
			continue
		}
		ids = append(ids, h.RefID)
	}
	return ids
}

// keyword runs the fallback search concurrently, one goroutine per policy
// collection. One collection's outage must never block or fail the others.
func (r *Retriever) keyword(ctx context.Context, keywords []string, policy classifier.RetrievalPolicy) Context {
	terms := keywords
	if len(terms) > r.maxTerms {
		terms = terms[:r.maxTerms]
	}
	var (
		out Context
		wg  sync.WaitGroup
	)
	for _, col := range policy.Collections {
		col := col
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch col {
			case classifier.CollectionProducts:
				if products, err := r.catalog.SearchProductsKeyword(ctx, terms, policy.TopK); err == nil {
					out.Products = products
				} else {
					r.logger.Printf("keyword retrieval: products failed: %v", err)
				}
			case classifier.CollectionRecipes:
				if recipes, err := r.catalog.SearchRecipesKeyword(ctx, terms, policy.TopK); err == nil {
					out.Recipes = recipes
				} else {
					r.logger.Printf("keyword retrieval: recipes failed: %v", err)
				}
			case classifier.CollectionFAQs:
				if faqs, err := r.catalog.SearchFAQsKeyword(ctx, terms, policy.TopK); err == nil {
					out.FAQs = faqs
				} else {
					r.logger.Printf("keyword retrieval: faqs failed: %v", err)
				}
			case classifier.CollectionVideos:
				if videos, err := r.catalog.SearchVideosKeyword(ctx, terms, policy.TopK); err == nil {
					out.Videos = videos
				} else {
					r.logger.Printf("keyword retrieval: videos failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()
	return out
}
