// Command server runs the gallerist API: upload capabilities, posts,
// collections and profiles over PostgreSQL and an S3-compatible store.
//
// Configuration comes from defaults, an optional JSON file (-c) and flags;
// see internal/server/config.
package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/gallerist/internal/server"
	"github.com/dmitrijs2005/gallerist/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("gallerist: init: %v", err)
	}
	if err := app.Run(ctx); err != nil {
		log.Fatalf("gallerist: %v", err)
	}
}
