package main

import (
	"Go2FlowText/internal/api"
	"Go2FlowText/internal/config"
	"Go2FlowText/internal/query"
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The counts endpoint is backed by the first enabled ClickHouse writer, if any.
	var querier query.Querier
	for _, writerDef := range cfg.Writers {
		if writerDef.Enabled && writerDef.Type == "clickhouse" {
			querier, err = query.NewClickHouseQuerier(writerDef.ClickHouse)
			if err != nil {
				log.Fatalf("Failed to create querier: %v", err)
			}
			break
		}
	}
	if querier == nil {
		log.Println("No enabled ClickHouse writer found in config, dataset counts are disabled.")
	}

	handler := api.NewHandler(cfg.API.DatasetDir, querier)

	// Start HTTP server
	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: handler.Router(),
	}

	go func() {
		log.Printf("API server starting on %s, serving '%s'", server.Addr, cfg.API.DatasetDir)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("API server exited.")
}
