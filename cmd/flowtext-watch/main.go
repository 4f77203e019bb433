package main

import (
	"Go2FlowText/internal/config"
	"Go2FlowText/internal/events"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	natsURL := flag.String("nats", "", "NATS server URL, overrides the config file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *natsURL != "" {
		cfg.Events.NATSURL = *natsURL
	}
	log.Println("Starting flowtext-watch...")

	sub, err := events.NewSubscriber(cfg.Events)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(ev events.ClassEvent) {
		log.Printf("[%s] class %q (label %d): %d packets, %d flows, split %d/%d/%d",
			ev.Dataset, ev.Class, ev.Label, ev.Packets, ev.Flows, ev.Train, ev.Val, ev.Test)
	}
	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	// Wait for a shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
