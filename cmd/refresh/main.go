// Command refresh drops cached upstream data, recomputes every view once and exits.
// Intended for cron.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"CycleScope/internal/di"
	"CycleScope/internal/usecase"
	"CycleScope/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	tagList := flag.String("tags", "", "comma-separated cache tags to refresh (default: all)")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	var tags []string
	if *tagList != "" {
		for _, t := range strings.Split(*tagList, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	if err := usecase.ValidateTags(tags); err != nil {
		log.Fatalf("invalid tags: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	report, err := app.Refresh(ctx, tags)
	cancel()
	if cerr := app.Close(); cerr != nil {
		log.Printf("close: %v", cerr)
	}
	if err != nil {
		log.Printf("refresh failed: %v", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	log.Printf("refresh report:\n%s", out)
	if len(report.Errors) > 0 {
		os.Exit(2)
	}
}
