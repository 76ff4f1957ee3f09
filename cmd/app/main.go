package main

import (
	"flag"
	"log"
	"os"

	"PriceTrend/internal/di"
	"PriceTrend/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s feed=%s clickhouse=%s.%s", cfg.Environment, cfg.Feed.Mode, cfg.ClickHouse.Database, cfg.ClickHouse.Table)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
