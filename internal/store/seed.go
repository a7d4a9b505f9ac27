package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// Upserts used by the seed command to load a catalog fixture.

func (s *Store) UpsertProduct(ctx context.Context, p Product) error {
	if p.SKU == "" || p.Name == "" {
		return fmt.Errorf("product sku and name required")
	}
	attrBytes, err := json.Marshal(p.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO products (sku, name, series, price, description, noise_rating, attributes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (sku) DO UPDATE SET
  name = EXCLUDED.name,
  series = EXCLUDED.series,
  price = EXCLUDED.price,
  description = EXCLUDED.description,
  noise_rating = EXCLUDED.noise_rating,
  attributes = EXCLUDED.attributes;
`, p.SKU, p.Name, p.Series, p.Price, p.Description, p.NoiseRating, attrBytes)
	return err
}

func (s *Store) UpsertRecipe(ctx context.Context, r Recipe) error {
	if r.Slug == "" || r.Title == "" {
		return fmt.Errorf("recipe slug and title required")
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO recipes (slug, title, description, tags, prep_minutes, ingredients, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
ON CONFLICT (slug) DO UPDATE SET
  title = EXCLUDED.title,
  description = EXCLUDED.description,
  tags = EXCLUDED.tags,
  prep_minutes = EXCLUDED.prep_minutes,
  ingredients = EXCLUDED.ingredients;
`, r.Slug, r.Title, r.Description, pq.Array(r.Tags), r.PrepMinutes, pq.Array(r.Ingredients))
	return err
}

func (s *Store) UpsertFAQ(ctx context.Context, f FAQ) error {
	if f.ID == "" || f.Question == "" {
		return fmt.Errorf("faq id and question required")
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO faqs (id, question, answer, category)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET
  question = EXCLUDED.question,
  answer = EXCLUDED.answer,
  category = EXCLUDED.category;
`, f.ID, f.Question, f.Answer, f.Category)
	return err
}

func (s *Store) UpsertVideo(ctx context.Context, v Video) error {
	if v.ID == "" || v.URL == "" {
		return fmt.Errorf("video id and url required")
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO videos (id, title, url, duration_seconds, topic)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  url = EXCLUDED.url,
  duration_seconds = EXCLUDED.duration_seconds,
  topic = EXCLUDED.topic;
`, v.ID, v.Title, v.URL, v.DurationSeconds, v.Topic)
	return err
}
