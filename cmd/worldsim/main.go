// Command worldsim runs the homestead world simulation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"github.com/talgya/homestead/internal/api"
	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/engine"
	"github.com/talgya/homestead/internal/entropy"
	"github.com/talgya/homestead/internal/persistence"
	"github.com/talgya/homestead/internal/world"
)

func main() {
	seed := flag.Int64("seed", 0, "world seed for a fresh world (0 = random)")
	dataDir := flag.String("data-dir", "data", "directory for the snapshot and archive database")
	tuningPath := flag.String("config", "", "tuning YAML file (empty = built-in defaults)")
	catalogPath := flag.String("catalog", "", "catalog YAML file (empty = embedded catalog)")
	port := flag.Int("port", 8080, "HTTP API port (0 = no API)")
	speed := flag.Float64("speed", 1, "simulation speed multiplier (1 = one tick per second)")
	fresh := flag.Bool("fresh", false, "ignore any saved world and generate a new one")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	maxTicks := flag.Uint64("max-ticks", 0, "stop after this many ticks (0 = run until signalled)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid --log-level %q\n", *logLevel)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("homestead: autonomous settler simulation")

	// ── Configuration ─────────────────────────────────────────────────
	tuning, err := config.Load(*tuningPath)
	if err != nil {
		slog.Error("failed to load tuning", "error", err)
		os.Exit(1)
	}
	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded",
		"items", len(cat.Items()),
		"skills", len(cat.Skills()),
		"recipes", len(cat.Recipes()),
		"digest", cat.Digest()[:12],
	)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		slog.Error("failed to create data dir", "path", *dataDir, "error", err)
		os.Exit(1)
	}
	dbPath := filepath.Join(*dataDir, "homestead.db")
	snapPath := filepath.Join(*dataDir, "world.snap.zst")
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Load or Generate World ────────────────────────────────────────
	worldSeed := *seed
	if worldSeed == 0 {
		worldSeed = entropy.Seed()
	}
	cfg := engine.Config{
		Tuning:  tuning,
		Catalog: cat,
		Rand:    entropy.NewSeeded(worldSeed),
	}

	var sim *engine.Simulation
	if !*fresh {
		sim, err = persistence.Load(snapPath, cfg)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			slog.Info("no saved world found", "path", snapPath)
		case errors.Is(err, persistence.ErrCorruptedSaveState):
			slog.Warn("saved world is unusable, generating a fresh one", "path", snapPath, "error", err)
		default:
			slog.Error("failed to read saved world, generating a fresh one", "path", snapPath, "error", err)
		}
	}
	if sim == nil {
		sim, err = engine.Generate(cfg, worldSeed)
		if err != nil {
			slog.Error("world generation failed", "seed", worldSeed, "error", err)
			os.Exit(1)
		}
		for t, c := range world.TerrainCounts(sim.Map()) {
			slog.Info("terrain", "type", world.TerrainName(t), "count", c)
		}
		if err := persistence.Save(snapPath, sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}
	startTick := sim.CurrentTick()
	archiveDay(db, sim, sim.Stats())

	slog.Info("world ready",
		"id", sim.ID(),
		"agents", len(sim.Agents()),
		"hexes", humanize.Comma(int64(sim.Map().HexCount())),
		"tick", startTick,
		"sim_time", engine.SimTime(startTick),
		"season", sim.SeasonName(),
	)

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(startTick)
	eng.SetSpeed(*speed)

	// Wire tick callbacks: archive and snapshot every sim-day.
	eng.OnTick = sim.Step
	eng.OnDay = func(tick uint64) {
		st := sim.TickDay(tick)
		archiveDay(db, sim, st)
		if err := persistence.Save(snapPath, sim); err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}
	eng.OnWeek = sim.TickWeek

	// ── HTTP API ──────────────────────────────────────────────────────
	var apiServer *api.Server
	if *port > 0 {
		adminKey := os.Getenv("HOMESTEAD_ADMIN_KEY")
		if adminKey == "" {
			slog.Warn("HOMESTEAD_ADMIN_KEY not set; admin POST endpoints will be disabled")
		}
		apiServer = &api.Server{
			Sim:       sim,
			Eng:       eng,
			DB:        db,
			SavePath:  snapPath,
			Port:      *port,
			AdminKey:  adminKey,
			RelayKey:  os.Getenv("HOMESTEAD_RELAY_KEY"),
			ReadLimit: 600,
		}
		apiServer.Start()
	}

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nHomestead is alive: %d settlers on %s hexes.\n",
		len(sim.Agents()), humanize.Comma(int64(sim.Map().HexCount())))
	if apiServer != nil {
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", *port)
	}
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", startTick, engine.SimTime(startTick))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx, *maxTicks)

	// ── Shutdown ──────────────────────────────────────────────────────
	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("API shutdown", "error", err)
		}
		cancel()
	}

	slog.Info("final save...")
	archiveDay(db, sim, sim.Stats())
	if err := persistence.Save(snapPath, sim); err != nil {
		slog.Error("final save failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Simulation stopped. World state saved.")
}

// archiveDay flushes pending events and the day's statistics to the
// database. Archive failures are logged; the simulation keeps running.
func archiveDay(db *persistence.DB, sim *engine.Simulation, st engine.Stats) {
	if err := db.SaveEvents(sim.PendingArchive()); err != nil {
		slog.Error("event archive failed", "error", err)
	}
	if err := db.SaveDailyStats(st); err != nil {
		slog.Error("stats archive failed", "error", err)
	}
	meta := map[string]string{
		"world_id":  sim.ID().String(),
		"last_tick": strconv.FormatUint(sim.CurrentTick(), 10),
	}
	for k, v := range meta {
		if err := db.SaveMeta(k, v); err != nil {
			slog.Error("meta save failed", "key", k, "error", err)
		}
	}
}
