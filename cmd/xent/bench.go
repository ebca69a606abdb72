package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xentlabs/xent/internal/community"
	"github.com/xentlabs/xent/pkg/bench"
	"github.com/xentlabs/xent/pkg/config"
	"github.com/xentlabs/xent/pkg/interp"
	"github.com/xentlabs/xent/pkg/metrics"
	"github.com/xentlabs/xent/pkg/player"
	"github.com/xentlabs/xent/pkg/result"
	"github.com/xentlabs/xent/pkg/trial"
)

// BenchCmd runs a condensed benchmark config to completion, writing a
// TrialResult per (game, player, map_seed) under --results-dir and
// printing the aggregated BenchmarkResult at the end.
type BenchCmd struct {
	ConfigFile  string        `arg:"" help:"Path to the benchmark config YAML file."`
	ResultsDir  string        `help:"Directory to write trial results under." default:"results" env:"XENT_RESULTS_DIR"`
	MapsDir     string        `help:"Directory to cache generated map registers under." default:"maps" env:"XENT_MAPS_DIR"`
	Concurrency int           `help:"Max concurrent trials." default:"10"`
	Timeout     time.Duration `help:"Overall run timeout." default:"2h"`
	Format      string        `help:"Output format for the final summary." enum:"table,json" default:"table"`
	MetricsAddr string        `help:"Serve Prometheus metrics on this address (e.g. :9090); disabled if empty." env:"XENT_METRICS_ADDR"`
}

func (b *BenchCmd) Run() error {
	cfg, err := config.LoadBenchmarkConfig(b.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	presenters := make(map[string]player.Presenter, len(cfg.Games))
	maxRoundsByGame := make(map[string]int, len(cfg.Games))
	var games []trial.Game
	for _, gc := range cfg.Games {
		g, err := loadGame(gc)
		if err != nil {
			return err
		}
		presenter, err := buildPresenter(gc)
		if err != nil {
			return fmt.Errorf("compiling presentation for %q: %w", gc.Name, err)
		}
		games = append(games, g)
		presenters[gc.Name] = presenter
		maxRoundsByGame[gc.Name] = gc.MaxRounds
	}

	gw, err := buildGateway(cfg.Metadata.JudgeModel, "")
	if err != nil {
		return fmt.Errorf("building judge gateway: %w", err)
	}
	tok, err := tokenizerFor(cfg.Metadata.JudgeModel)
	if err != nil {
		return fmt.Errorf("building judge tokenizer: %w", err)
	}

	playersByID := make(map[string]config.PlayerConfig, len(cfg.Players))
	playerSpecs := make([]bench.PlayerSpec, 0, len(cfg.Players))
	for _, pc := range cfg.Players {
		playersByID[pc.ID] = pc
		playerSpecs = append(playerSpecs, bench.PlayerSpec{ID: pc.ID})
	}

	defaultMaxRounds := cfg.Metadata.RoundsPerGame
	if defaultMaxRounds <= 0 {
		defaultMaxRounds = 1
	}
	maxEnsureCap := cfg.Metadata.MaxEnsureRetry
	if maxEnsureCap <= 0 {
		maxEnsureCap = 3
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(baseCtx, b.Timeout)
	defer cancel()

	expansionMode := trial.ExpansionJudge
	var archive trial.Archive
	if cfg.Expansion.TextGenerator == "COMMUNITY_ARCHIVE" {
		expansionMode = trial.ExpansionCommunityArchive
		a, err := community.Load(cfg.Expansion.ArchiveDir)
		if err != nil {
			return fmt.Errorf("loading story archive: %w", err)
		}
		archive = a
	}

	m := &metrics.Metrics{}
	if b.MetricsAddr != "" {
		srv := &http.Server{Addr: b.MetricsAddr, Handler: metrics.NewPrometheusExporter(m).Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server stopped", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	judgeFor := func(gameName string) (interp.EvalContext, error) {
		return interp.EvalContext{Judge: gw}, nil
	}

	for _, g := range games {
		gc := g
		maxRounds := defaultMaxRounds
		if mr, ok := maxRoundsByGame[gc.Name]; ok && mr > 0 {
			maxRounds = mr
		}

		sched := bench.New(bench.Options{
			Concurrency:    b.Concurrency,
			MaxRounds:      maxRounds,
			MaxEnsureCap:   maxEnsureCap,
			ResultsDir:     b.ResultsDir,
			BenchmarkID:    cfg.Metadata.BenchmarkID,
			MapsDir:        b.MapsDir,
			MaxStoryTokens: cfg.Expansion.MaxStoryTokens,
			ExpansionMode:  expansionMode,
			Archive:        archive,
			Metrics:        m,
		})

		units := bench.Expand([]trial.Game{gc}, playerSpecs, cfg.Metadata.MasterSeed, cfg.Expansion.NumMapsPerGame)

		elicitorFor := func(playerID string) (interp.Elicitor, error) {
			pc, ok := playersByID[playerID]
			if !ok {
				return nil, fmt.Errorf("unknown player %q", playerID)
			}
			meta := player.Metadata{Game: gc.Name, PlayerID: playerID, MaxRounds: maxRounds}
			return buildElicitor(pc, presenters[gc.Name], tok, meta)
		}

		fmt.Printf("Running game %q: %d trials\n", gc.Name, len(units))
		progress := func(p bench.Progress) {
			fmt.Printf("\r  %s: %d/%d done (%d skipped, %d failed)", gc.Name, p.Completed+p.Skipped, p.Total, p.Skipped, p.Failed)
		}
		if err := sched.Run(ctx, units, elicitorFor, judgeFor, progress); err != nil {
			fmt.Println()
			return fmt.Errorf("running game %q: %w", gc.Name, err)
		}
		fmt.Println()
	}

	agg, err := bench.Aggregate(b.ResultsDir, cfg.Metadata.BenchmarkID)
	if err != nil {
		return fmt.Errorf("aggregating results: %w", err)
	}

	return printSummary(b.Format, agg)
}

func printSummary(format string, agg result.BenchmarkResult) error {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(agg)
	}

	fmt.Println("\nBenchmark Results")
	fmt.Println("=================")
	fmt.Printf("benchmark_id: %s\n\n", agg.BenchmarkID)
	fmt.Println("Player overall scores:")
	for player, score := range agg.PlayerOverall {
		fmt.Printf("  %-20s %.4f\n", player, score)
	}
	fmt.Println()
	for game, byPlayer := range agg.GamePlayer {
		fmt.Printf("%s:\n", game)
		for player, score := range byPlayer {
			fmt.Printf("  %-20s %.4f\n", player, score)
		}
	}
	return nil
}
