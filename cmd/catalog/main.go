// Package main runs the affiliate catalog service.
//
// The binary serves the public storefront at /, the admin editor under
// /admin, a JSON API under /v1 and /api/scrape, and Prometheus metrics at
// /metrics. Configuration comes from an optional YAML file (-config) overlaid
// with CATALOG_* environment variables; PORT is honored for Cloud Run.
//
// Run locally: go run ./cmd/catalog -config config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JakeFAU/affiliate-catalog/internal/config"
	"github.com/JakeFAU/affiliate-catalog/internal/server"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.Build(ctx, cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
