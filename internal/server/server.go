package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paolomoz/pagepoof-sub000/config"
	"github.com/paolomoz/pagepoof-sub000/internal/generator"
	"github.com/paolomoz/pagepoof-sub000/internal/layout"
	"github.com/paolomoz/pagepoof-sub000/internal/pipeline"
	"github.com/paolomoz/pagepoof-sub000/internal/render"
	"github.com/paolomoz/pagepoof-sub000/internal/retriever"
	"github.com/paolomoz/pagepoof-sub000/internal/session"
	"github.com/paolomoz/pagepoof-sub000/internal/store"
	"github.com/paolomoz/pagepoof-sub000/provider"
)

// Run boots the API: config, migrations, Postgres, Redis checkpoints, the
// pipeline, and the echo routes.
func Run(cfgPath string) error {
	cfg := config.LoadConfig(cfgPath)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	origins := cfg.Server.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Last-Event-ID"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		baseLogger.Printf("migrations: %v", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}

	checkpoints := session.NewRedisCheckpointer(
		cfg.Storage.Redis.Addr(),
		cfg.Storage.Redis.Password,
		cfg.Storage.Redis.DB,
		cfg.Pipeline.SessionTTL,
	)
	sessions := session.NewManager(checkpoints, cfg.Pipeline.EventBufferSize, cfg.Pipeline.OrphanGrace,
		log.New(log.Writer(), "[SESSION] ", log.LstdFlags))

	pipeLogger := log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	orch := pipeline.New(
		retriever.New(st, llm, cfg.LLM.Routing.Embedding, cfg.Retrieval.MaxKeywordTerms, pipeLogger),
		generator.New(llm, generator.Routing{Hero: cfg.LLM.Routing.Hero, Atoms: cfg.LLM.Routing.Atoms}, pipeLogger),
		layout.NewSelector(llm, cfg.LLM.Routing.Layout, cfg.Pipeline.MaxBlocks, pipeLogger),
		render.New(pipeLogger),
		st,
		llm,
		cfg.Pipeline,
		cfg.LLM.Routing.Image,
		pipeLogger,
	)

	gh := &GenerateHandler{Sessions: sessions, Pipeline: orch, Client: cfg.Client, Logger: baseLogger}
	gh.Register(e.Group("/api"))

	return e.Start(cfg.Server.Address)
}
