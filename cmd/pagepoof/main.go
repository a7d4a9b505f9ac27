package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paolomoz/pagepoof-sub000/config"
	srv "github.com/paolomoz/pagepoof-sub000/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "pagepoof"}

	var cfgPath string
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return srv.Run(cfgPath)
		},
	}

	var migDir string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			dsn, err := cfg.Storage.Postgres.DSN()
			if err != nil {
				return err
			}
			return srv.Migrate(migDir, dsn, direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	var fixturePath string
	var withEmbeddings bool
	var seed = &cobra.Command{
		Use:   "seed",
		Short: "Load catalog fixtures into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cfgPath, fixturePath, withEmbeddings)
		},
	}
	seed.Flags().StringVar(&fixturePath, "fixture", "fixtures/catalog.json", "catalog fixture file")
	seed.Flags().BoolVar(&withEmbeddings, "embeddings", true, "compute and store embeddings for seeded records")

	root.AddCommand(serve, migrate, seed)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
