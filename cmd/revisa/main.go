package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/mfreire/revisa/internal/config"
	"github.com/mfreire/revisa/internal/leitner"
	"github.com/mfreire/revisa/internal/storage"
	cardsync "github.com/mfreire/revisa/internal/sync"
	"github.com/mfreire/revisa/internal/web"
)

func main() {
	defaults := config.Default()

	flags := pflag.NewFlagSet("revisa", pflag.ExitOnError)
	configPath := flags.String("config", "revisa.yaml", "Path to the YAML config file")
	flags.String("db", defaults.DB, "Path to the SQLite database file")
	flags.String("listen", defaults.Listen, "HTTP listen address")
	flags.String("repos_dir", defaults.ReposDir, "Directory for git source checkouts")
	addSource := flags.String("add-source", "", "Register a card source (directory or git URL) and exit")
	syncOnly := flags.Bool("sync", false, "Sync all sources and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DB)

	if *addSource != "" {
		sourceType := "local"
		if cardsync.IsGitURL(*addSource) {
			sourceType = "git"
		}
		id, err := db.InsertSource(*addSource, sourceType)
		if err != nil {
			log.Fatalf("Failed to add source: %v", err)
		}
		slog.Info("source added", "id", id, "type", sourceType, "path", *addSource)
		return
	}

	if *syncOnly {
		if err := cardsync.RunAll(db, cfg.ReposDir, time.Now()); err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		return
	}

	sched, err := leitner.NewScheduler(cfg.Scheduler.Leitner())
	if err != nil {
		log.Fatalf("Failed to build scheduler: %v", err)
	}

	srv := web.NewServer(db, sched, cfg.ReposDir)
	slog.Info("listening", "addr", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, srv); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
