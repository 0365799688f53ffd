package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"RelayScope/internal/api"
	"RelayScope/internal/config"
	"RelayScope/internal/control"
	"RelayScope/internal/directory"
	"RelayScope/internal/entry"
	"RelayScope/internal/events"
	"RelayScope/internal/geoip"
	"RelayScope/internal/model"
	"RelayScope/internal/netstat"
	"RelayScope/internal/poller"
	"RelayScope/internal/portusage"
	"RelayScope/internal/usage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	log.Println("Starting rs-monitor...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	order, err := cfg.SortOrder()
	if err != nil {
		log.Fatalf("Invalid sort order: %v", err)
	}

	updateInterval, err := cfg.UpdateInterval()
	if err != nil {
		log.Fatalf("Invalid update interval: %v", err)
	}

	resolverInterval, err := cfg.ResolverInterval()
	if err != nil {
		log.Fatalf("Invalid resolver interval: %v", err)
	}

	// Consensus cache; an absent file means every relay lookup degrades to
	// unknown, which classification tolerates.
	dir := directory.NewCache()
	if cfg.Directory.CachePath != "" {
		dir, err = directory.Load(cfg.Directory.CachePath)
		if err != nil {
			log.Fatalf("Failed to load consensus cache: %v", err)
		}
		log.Printf("Consensus cache loaded from %s.", cfg.Directory.CachePath)
	}

	var locales model.GeoIP
	if cfg.GeoIP.Database != "" {
		lookup, err := geoip.Open(cfg.GeoIP.Database)
		if err != nil {
			log.Fatalf("Failed to open geoip database: %v", err)
		}
		defer lookup.Close()
		locales = lookup
		log.Printf("GeoIP database loaded from %s.", cfg.GeoIP.Database)
	} else {
		log.Println("No geoip database configured, locales will be unavailable.")
	}

	resolver := netstat.NewResolver(cfg.Resolver.PID, cfg.Resolver.ProcRoot, resolverInterval)
	resolver.Start()
	defer resolver.Stop()

	controller, err := control.NewStaticController(cfg.Relay, resolver.IsAlive)
	if err != nil {
		log.Fatalf("Failed to build controller: %v", err)
	}

	tracker := usage.NewTracker()
	if cfg.Monitor.Preseed != "" {
		if strings.Contains(cfg.Monitor.Preseed, "CountrySummary=") {
			tracker.SeedFromClientsSeen(cfg.Monitor.Preseed)
		} else {
			tracker.Seed(cfg.Monitor.Preseed)
		}
		log.Println("Usage tracker pre-seeded from configured client report.")
	}

	opts := poller.Options{Interval: updateInterval}

	if cfg.Monitor.ResolveApps {
		opts.PortUsage = portusage.NewResolver(cfg.Resolver.ProcRoot)
		log.Println("Application resolution enabled.")
	}

	if cfg.Events.Enabled {
		publisher, err := events.NewPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			log.Fatalf("Failed to connect event publisher: %v", err)
		}
		defer publisher.Close()
		opts.OnPublish = publisher.Publish
	}

	sources := entry.Sources{
		Controller:       controller,
		Directory:        dir,
		GeoIP:            locales,
		ShowRawAddresses: cfg.Monitor.ShowRawAddresses,
	}

	p := poller.New(resolver, sources, tracker, order, opts)
	p.Start()
	defer p.Stop()

	listenAddr := cfg.API.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8650"
	}
	server := &http.Server{
		Addr:    listenAddr,
		Handler: api.NewRouter(&api.Handler{Poller: p, Tracker: tracker}),
	}

	go func() {
		log.Printf("Status API starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	log.Println("Shutdown signal received, stopping...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("API server forced to shutdown: %v", err)
	}

	log.Println("Shutdown complete.")
}
