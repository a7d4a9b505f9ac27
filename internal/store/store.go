// Package store provides the relational catalog behind retrieval and URL
// correction: products, recipes, FAQs and videos in Postgres, with pgvector
// embedding columns powering semantic search.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

type Store struct {
	DB *sql.DB
}

// DefaultEmbeddingDimensions indicates the expected length of semantic
// vectors stored in pgvector columns.
const DefaultEmbeddingDimensions = 1536

// NewWithDSN opens a Postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// Product is a catalog product row with only the fields the generator and
// URL mapper need.
type Product struct {
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Series      string            `json:"series,omitempty"`
	Price       float64           `json:"price,omitempty"`
	Description string            `json:"description,omitempty"`
	NoiseRating float64           `json:"noise_rating,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

type Recipe struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PrepMinutes int      `json:"prep_minutes,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

type FAQ struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
}

type Video struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Topic           string `json:"topic,omitempty"`
}

const productColumns = `sku, name, series, price, description, noise_rating, attributes`

func scanProduct(sc interface{ Scan(...interface{}) error }) (Product, error) {
	var (
		p         Product
		series    sql.NullString
		desc      sql.NullString
		attrBytes []byte
	)
	if err := sc.Scan(&p.SKU, &p.Name, &series, &p.Price, &desc, &p.NoiseRating, &attrBytes); err != nil {
		return Product{}, err
	}
	p.Series = series.String
	p.Description = desc.String
	if len(attrBytes) > 0 {
		_ = json.Unmarshal(attrBytes, &p.Attributes)
	}
	return p, nil
}

// SearchProductsKeyword matches terms against name, series and description
// with ILIKE. Terms are OR-combined so any hit qualifies.
func (s *Store) SearchProductsKeyword(ctx context.Context, terms []string, limit int) ([]Product, error) {
	where, args := likeClause([]string{"name", "series", "description"}, terms)
	if where == "" {
		return nil, nil
	}
	args = append(args, limit)
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
SELECT %s FROM products WHERE %s ORDER BY price DESC LIMIT $%d
`, productColumns, where, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProductsBySKUs hydrates vector hits back to full product rows,
// preserving the caller's order.
func (s *Store) GetProductsBySKUs(ctx context.Context, skus []string) ([]Product, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
SELECT %s FROM products WHERE sku = ANY($1)
`, productColumns), pq.Array(skus))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bySKU := make(map[string]Product, len(skus))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		bySKU[p.SKU] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(skus))
	for _, sku := range skus {
		if p, ok := bySKU[sku]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListProducts returns the whole product catalog, used to build the per-
// request URL catalog.
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM products ORDER BY sku`, productColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const recipeColumns = `slug, title, description, tags, prep_minutes, ingredients`

func scanRecipe(sc interface{ Scan(...interface{}) error }) (Recipe, error) {
	var (
		r    Recipe
		desc sql.NullString
	)
	if err := sc.Scan(&r.Slug, &r.Title, &desc, pq.Array(&r.Tags), &r.PrepMinutes, pq.Array(&r.Ingredients)); err != nil {
		return Recipe{}, err
	}
	r.Description = desc.String
	return r, nil
}

func (s *Store) SearchRecipesKeyword(ctx context.Context, terms []string, limit int) ([]Recipe, error) {
	where, args := likeClause([]string{"title", "description"}, terms)
	if where == "" {
		return nil, nil
	}
	args = append(args, limit)
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
SELECT %s FROM recipes WHERE %s ORDER BY title LIMIT $%d
`, recipeColumns, where, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRecipesBySlugs(ctx context.Context, slugs []string) ([]Recipe, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
SELECT %s FROM recipes WHERE slug = ANY($1)
`, recipeColumns), pq.Array(slugs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bySlug := make(map[string]Recipe, len(slugs))
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		bySlug[r.Slug] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Recipe, 0, len(slugs))
	for _, slug := range slugs {
		if r, ok := bySlug[slug]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListRecipes(ctx context.Context) ([]Recipe, error) {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM recipes ORDER BY slug`, recipeColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SearchFAQsKeyword(ctx context.Context, terms []string, limit int) ([]FAQ, error) {
	where, args := likeClause([]string{"question", "answer"}, terms)
	if where == "" {
		return nil, nil
	}
	args = append(args, limit)
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
SELECT id, question, answer, category FROM faqs WHERE %s ORDER BY id LIMIT $%d
`, where, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FAQ
	for rows.Next() {
		var (
			f   FAQ
			cat sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &cat); err != nil {
			return nil, err
		}
		f.Category = cat.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) GetFAQsByIDs(ctx context.Context, ids []string) ([]FAQ, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, question, answer, category FROM faqs WHERE id = ANY($1)
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[string]FAQ, len(ids))
	for rows.Next() {
		var (
			f   FAQ
			cat sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.Question, &f.Answer, &cat); err != nil {
			return nil, err
		}
		f.Category = cat.String
		byID[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]FAQ, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) SearchVideosKeyword(ctx context.Context, terms []string, limit int) ([]Video, error) {
	where, args := likeClause([]string{"title", "topic"}, terms)
	if where == "" {
		return nil, nil
	}
	args = append(args, limit)
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
SELECT id, title, url, duration_seconds, topic FROM videos WHERE %s ORDER BY id LIMIT $%d
`, where, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Video
	for rows.Next() {
		var (
			v     Video
			topic sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.Title, &v.URL, &v.DurationSeconds, &topic); err != nil {
			return nil, err
		}
		v.Topic = topic.String
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) GetVideosByIDs(ctx context.Context, ids []string) ([]Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, title, url, duration_seconds, topic FROM videos WHERE id = ANY($1)
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[string]Video, len(ids))
	for rows.Next() {
		var (
			v     Video
			topic sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.Title, &v.URL, &v.DurationSeconds, &topic); err != nil {
			return nil, err
		}
		v.Topic = topic.String
		byID[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// likeClause builds an OR-combined ILIKE filter over the given columns for
// up to the supplied terms. Returns empty when no usable terms remain.
func likeClause(columns, terms []string) (string, []interface{}) {
	var (
		parts []string
		args  []interface{}
	)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		args = append(args, "%"+term+"%")
		idx := len(args)
		cols := make([]string, 0, len(columns))
		for _, col := range columns {
			cols = append(cols, fmt.Sprintf("%s ILIKE $%d", col, idx))
		}
		parts = append(parts, "("+strings.Join(cols, " OR ")+")")
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, " OR "), args
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
