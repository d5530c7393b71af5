package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"avitowatch/config"
	"avitowatch/httputil"
	"avitowatch/logging"
	"avitowatch/proxyguard"
	"avitowatch/scheduler"
	"avitowatch/scraper"
	"avitowatch/services"
	"avitowatch/storage"
	"avitowatch/workers"
)

var (
	checkNow = flag.Bool("check", false, "Run one evaluation pass and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("watcher.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting avitowatch...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Watching %s (%s), default region %s", cfg.Site.Name, cfg.Site.BaseURL, cfg.Site.DefaultRegion)

	clients := httputil.NewClients(&cfg.Proxy)
	if cfg.Proxy.URL != "" {
		log.Printf("Proxy: %s", cfg.Proxy.URL)
	}

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Println("Connected to Postgres")

	opStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer opStore.Close()
	log.Printf("Operational database: %s", cfg.DBPath)

	var notifier services.Notifier
	if cfg.Telegram.Token != "" {
		notifier = services.NewTelegramNotifier(cfg.Telegram.Token, clients.API)
		log.Println("Telegram notifier enabled")
	} else {
		notifier = services.LogNotifier{}
		log.Println("No bot token, notifications go to the log only")
	}

	renderer := scraper.NewBrowserRenderer(&cfg.Renderer, cfg.Site, cfg.Proxy.URL)
	defer renderer.Stop()

	gate := services.NewDedupGate(pgStore)
	orchestrator := scraper.NewOrchestrator(cfg, renderer, gate, notifier, pgStore, opStore)

	if *checkNow {
		log.Println("Running one pass...")
		if err := orchestrator.RunAll(ctx); err != nil {
			log.Fatalf("Pass failed: %v", err)
		}
		log.Println("Pass complete!")
		return
	}

	guard := proxyguard.New(clients.Scraping, cfg.Proxy.URL)
	sched := scheduler.New(cfg, orchestrator, opStore, guard)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	if cfg.Artifacts.Bucket != "" {
		uploader, err := storage.NewArtifactUploader(ctx, cfg.Artifacts)
		if err != nil {
			log.Printf("Warning: artifact uploader disabled: %v", err)
		} else {
			artifactWorker := workers.NewArtifactWorker(cfg.Renderer.ArtifactDir, uploader)
			go artifactWorker.Run(ctx, 10*time.Minute)
			sched.SetWorkers(artifactWorker)
			log.Println("Artifact worker started")
		}
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}
