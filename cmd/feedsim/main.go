package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"campaign_feed/internal/api"
	"campaign_feed/internal/config"
	"campaign_feed/internal/feed"
	"campaign_feed/internal/game"
	"campaign_feed/internal/generation"
	"campaign_feed/internal/messaging/inproc"
	"campaign_feed/internal/queue"
	sqlitestore "campaign_feed/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: ~/.campaign_feed/config.toml)")
	addrFlag := flag.String("addr", "", "http listen address override")
	dbPathFlag := flag.String("db", "", "sqlite database path override")
	providerFlag := flag.String("provider", "", "generation provider override (openrouter, gemini, mock)")
	fresh := flag.Bool("fresh", false, "ignore the saved snapshot and start a new campaign")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if p := strings.TrimSpace(*providerFlag); p != "" {
		cfg.Generation.Provider = strings.ToLower(p)
	}

	addr := firstNonEmpty(*addrFlag, cfg.Server.Addr, ":8092")
	dbPath := filepath.Clean(firstNonEmpty(*dbPathFlag, cfg.Server.DBPath, "data/campaign_feed.db"))

	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		log.Fatalf("open sqlite store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate sqlite: %v", err)
	}

	gen, err := generation.New(ctx, cfg.Generation, log.Default())
	if err != nil {
		log.Fatalf("create generator: %v", err)
	}

	state := feed.New(feed.Config{
		PostHistory: cfg.Simulation.PostHistory,
		NewsHistory: cfg.Simulation.NewsHistory,
	})
	q := queue.New(gen, state, sqlitestore.NewJournal(store, log.Default()), queue.Config{
		MaxConcurrent: cfg.Generation.MaxConcurrent,
		CallTimeout:   durationMS(cfg.Generation.CallTimeoutMS, 30*time.Second),
		MaxRetries:    cfg.Generation.MaxRetries,
	}, log.Default())
	bus := inproc.New(256)
	engine := game.New(state, q, bus, game.ConfigFrom(cfg.Simulation), log.Default())

	if err := startSession(ctx, engine, store, cfg, *fresh); err != nil {
		log.Fatalf("start session: %v", err)
	}

	driver := game.NewDriver(engine, durationMS(cfg.Simulation.TickMS, time.Second), log.Default())
	driver.Start(ctx)

	saverDone := make(chan struct{})
	go func() {
		defer close(saverDone)
		saveLoop(ctx, store, state, durationMS(cfg.Server.SnapshotIntervalMS, 15*time.Second))
	}()

	server := &http.Server{
		Addr:              addr,
		Handler:           api.New(cfg, engine, driver, store, bus, log.Default()).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf(
		"campaign_feed started addr=%s db=%s provider=%s model=%s tick=%dms",
		addr,
		dbPath,
		cfg.Generation.Provider,
		cfg.Generation.Model,
		cfg.Simulation.TickMS,
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server failed: %v", err)
	}

	cancel()
	driver.Wait()
	<-saverDone
	q.Close()
	engine.Wait()
	saveSnapshot(store, state)
}

// startSession resumes the newest saved campaign unless fresh is set or no
// snapshot exists, in which case the configured player starts over.
func startSession(ctx context.Context, engine *game.Engine, store *sqlitestore.Store, cfg config.Config, fresh bool) error {
	if !fresh {
		snap, savedAt, err := store.LoadSnapshot(ctx)
		switch {
		case err == nil:
			engine.Restore(snap)
			log.Printf("resumed campaign saved_at=%s tick=%d", savedAt.Format(time.RFC3339), snap.Loop.CurrentTick)
			return nil
		case !errors.Is(err, sqlitestore.ErrNoSnapshot):
			return err
		}
	}
	player := game.PlayerFrom(cfg.Player)
	return engine.NewSession(player, game.RivalFor(player, cfg.Rival))
}

func saveLoop(ctx context.Context, store *sqlitestore.Store, state *feed.State, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saveSnapshot(store, state)
		}
	}
}

func saveSnapshot(store *sqlitestore.Store, state *feed.State) {
	if !state.Started() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.SaveSnapshot(ctx, state.Snapshot()); err != nil {
		log.Printf("snapshot save failed: %v", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func durationMS(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Millisecond
}
