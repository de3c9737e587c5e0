package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/drive-search/pipeline/internal/api"
	"github.com/drive-search/pipeline/internal/blobstore"
	"github.com/drive-search/pipeline/internal/bus"
	"github.com/drive-search/pipeline/internal/chunker"
	"github.com/drive-search/pipeline/internal/config"
	"github.com/drive-search/pipeline/internal/dedup"
	"github.com/drive-search/pipeline/internal/feeder"
	"github.com/drive-search/pipeline/internal/runner"
	"github.com/drive-search/pipeline/internal/source"
	"github.com/drive-search/pipeline/internal/stage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize infrastructure.
	msgBus := bus.NewInMemory(cfg.BusBuffer)
	defer msgBus.Close()

	store, err := blobstore.NewLocal(cfg.StorageRoot)
	if err != nil {
		log.Error("storage initialization failed", "error", err)
		os.Exit(1)
	}

	var index dedup.Index
	if cfg.DedupIndexPath != "" {
		fileIndex, err := dedup.NewFile(cfg.DedupIndexPath)
		if err != nil {
			log.Error("dedup index initialization failed", "error", err)
			os.Exit(1)
		}
		index = fileIndex
	} else {
		index = dedup.NewMemory()
	}

	src, err := source.NewDir(cfg.SourceRoot, cfg.SourcePageSize, log)
	if err != nil {
		log.Error("source initialization failed", "error", err)
		os.Exit(1)
	}

	textChunker, err := chunker.New(cfg.ChunkWindowSize, cfg.ChunkOverlap)
	if err != nil {
		log.Error("invalid chunker settings", "error", err)
		os.Exit(1)
	}

	// Initialize stages and runners.
	parseStage := stage.NewParse(src, store, index, cfg.FilesTopic, cfg.ParsedTopic, log)
	chunkStage := stage.NewChunk(store, textChunker, cfg.ParsedTopic, cfg.ChunksTopic, log)

	parseRunner := runner.New(parseStage, msgBus, runner.Config{
		PollTimeout: cfg.PollTimeout,
		IdleTimeout: cfg.ParseIdleTimeout,
		MaxRecords:  cfg.MaxRecords,
	}, log)
	chunkRunner := runner.New(chunkStage, msgBus, runner.Config{
		PollTimeout: cfg.PollTimeout,
		IdleTimeout: cfg.ChunkIdleTimeout,
		MaxRecords:  cfg.MaxRecords,
	}, log)

	var wg sync.WaitGroup
	for _, rn := range []*runner.Runner{parseRunner, chunkRunner} {
		wg.Add(1)
		go func(rn *runner.Runner) {
			defer wg.Done()
			if err := rn.Run(ctx); err != nil {
				log.Error("runner failed", "error", err)
			}
		}(rn)
	}

	// Feed the pipeline.
	feed := feeder.New(src, msgBus, cfg.FilesTopic, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := feed.Run(ctx); err != nil {
			log.Error("feeder failed", "error", err)
			return
		}
		if cfg.WatchSource {
			if err := feed.RunWatch(ctx, src); err != nil {
				log.Error("source watch failed", "error", err)
			}
		}
	}()

	// Initialize HTTP server.
	srv := api.NewServer([]*runner.Runner{parseRunner, chunkRunner}, index, cfg.APIKey, log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()
		wg.Wait()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting pipeline", "port", cfg.Port, "source", cfg.SourceRoot)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
