// Command app serves the cycle dashboard and screeners over HTTP and,
// when Kafka is enabled, consumes refresh requests.
package main

import (
	"flag"
	"log"
	"os"

	"CycleScope/internal/di"
	"CycleScope/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	port := flag.Int("port", 0, "override server.port")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	log.Printf("cyclescope env=%s port=%d redis=%t kafka=%t metrics=%t",
		cfg.Environment, cfg.Server.Port, cfg.Cache.Redis.Enabled, cfg.Kafka.Enabled, cfg.Metrics.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("wire app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app stopped: %v", err)
		os.Exit(1)
	}
}
