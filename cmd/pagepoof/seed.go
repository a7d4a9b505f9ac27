package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/paolomoz/pagepoof-sub000/config"
	"github.com/paolomoz/pagepoof-sub000/internal/store"
	"github.com/paolomoz/pagepoof-sub000/provider"
)

// catalogFixture mirrors the JSON shape of fixtures/catalog.json.
type catalogFixture struct {
	Products []store.Product `json:"products"`
	Recipes  []store.Recipe  `json:"recipes"`
	FAQs     []store.FAQ     `json:"faqs"`
	Videos   []store.Video   `json:"videos"`
}

// runSeed upserts the fixture catalog and, optionally, one embedding per
// record so semantic retrieval works out of the box.
func runSeed(cfgPath, fixturePath string, withEmbeddings bool) error {
	cfg := config.LoadConfig(cfgPath)
	logger := log.New(os.Stderr, "[SEED] ", log.LstdFlags)

	data, err := os.ReadFile(fixturePath)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	var fix catalogFixture
	if err := json.Unmarshal(data, &fix); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}

	ctx := context.Background()
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	var embed func(collection, refID, text string)
	if withEmbeddings {
		llm, err := provider.NewProvider(cfg.LLM)
		if err != nil {
			return err
		}
		model := cfg.LLM.Routing.Embedding
		embed = func(collection, refID, text string) {
			vecs, err := llm.CreateEmbedding(ctx, []string{text}, model)
			if err != nil || len(vecs) == 0 {
				logger.Printf("embedding failed for %s/%s: %v", collection, refID, err)
				return
			}
			if err := st.UpsertEmbedding(ctx, collection, refID, vecs[0]); err != nil {
				logger.Printf("store embedding for %s/%s: %v", collection, refID, err)
			}
		}
	} else {
		embed = func(string, string, string) {}
	}

	for _, p := range fix.Products {
		if err := st.UpsertProduct(ctx, p); err != nil {
			return fmt.Errorf("product %s: %w", p.SKU, err)
		}
		embed("products", p.SKU, p.Name+". "+p.Description)
	}
	for _, r := range fix.Recipes {
		if err := st.UpsertRecipe(ctx, r); err != nil {
			return fmt.Errorf("recipe %s: %w", r.Slug, err)
		}
		embed("recipes", r.Slug, r.Title+". "+r.Description+" "+strings.Join(r.Tags, " "))
	}
	for _, f := range fix.FAQs {
		if err := st.UpsertFAQ(ctx, f); err != nil {
			return fmt.Errorf("faq %s: %w", f.ID, err)
		}
		embed("faqs", f.ID, f.Question+" "+f.Answer)
	}
	for _, v := range fix.Videos {
		if err := st.UpsertVideo(ctx, v); err != nil {
			return fmt.Errorf("video %s: %w", v.ID, err)
		}
		embed("videos", v.ID, v.Title+" "+v.Topic)
	}

	logger.Printf("seeded %d products, %d recipes, %d faqs, %d videos",
		len(fix.Products), len(fix.Recipes), len(fix.FAQs), len(fix.Videos))
	return nil
}
