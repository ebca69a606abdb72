package main

import (
	"context"
	"fmt"
	"os"

	"github.com/xentlabs/xent/internal/generators/testgen"
	"github.com/xentlabs/xent/pkg/config"
	"github.com/xentlabs/xent/pkg/generators"
	"github.com/xentlabs/xent/pkg/interp"
	"github.com/xentlabs/xent/pkg/player"
	"github.com/xentlabs/xent/pkg/registry"
	"github.com/xentlabs/xent/pkg/result"
	"github.com/xentlabs/xent/pkg/trial"
)

// LintCmd validates a benchmark config end-to-end without calling any
// configured player or judge back-end: every game is parsed, its
// presentation source compiled, and run once per game against a
// scripted judge and a fixed-move player, so config/XDL/template errors
// surface before a real (costly) run is attempted.
type LintCmd struct {
	ConfigFile string `arg:"" help:"Path to the benchmark config YAML file."`
}

func (l *LintCmd) Run() error {
	cfg, err := config.LoadBenchmarkConfig(l.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	lintGen, err := testgen.NewScripted(registry.Config{"responses": []any{"<move>lint-move</move>"}})
	if err != nil {
		return fmt.Errorf("building lint generator: %w", err)
	}

	gw, err := buildGateway("scripted:1.0", "")
	if err != nil {
		return fmt.Errorf("building lint judge: %w", err)
	}

	mapsDir, err := os.MkdirTemp("", "xent-lint-maps-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(mapsDir)

	ctx := context.Background()
	evalCtx := interp.EvalContext{Judge: gw}

	ok := true
	for _, gc := range cfg.Games {
		if err := lintGame(ctx, gc, lintGen, evalCtx, mapsDir); err != nil {
			ok = false
			fmt.Printf("FAIL %s: %v\n", gc.Name, err)
			continue
		}
		fmt.Printf("OK   %s\n", gc.Name)
	}

	if !ok {
		return fmt.Errorf("lint: one or more games failed")
	}
	return nil
}

func lintGame(ctx context.Context, gc config.GameConfig, gen generators.Generator, evalCtx interp.EvalContext, mapsDir string) error {
	g, err := loadGame(gc)
	if err != nil {
		return err
	}
	presenter, err := buildPresenter(gc)
	if err != nil {
		return fmt.Errorf("presentation: %w", err)
	}

	mapRegs, err := trial.GenerateMap(ctx, g, 1, evalCtx.Judge, trial.ExpansionJudge, nil, 256, mapsDir)
	if err != nil {
		return fmt.Errorf("generating map: %w", err)
	}

	meta := player.Metadata{Game: gc.Name, PlayerID: "lint", MaxRounds: 1}
	adapter := player.NewAdapter(presenter, gen, scriptedTokenizer{}, meta, defaultRetry())

	maxRounds := gc.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 1
	}

	res := trial.Run(ctx, trial.Spec{
		Game:         g,
		MapSeed:      "lint",
		MapRegisters: mapRegs,
		PlayerID:     "lint",
		MaxRounds:    maxRounds,
		MaxEnsureCap: 3,
		Elicitor:     adapter,
		EvalCtx:      evalCtx,
	})

	if res.Status != result.StatusOK {
		if res.Error != nil {
			return fmt.Errorf("%s: %s", res.Error.Kind, res.Error.Message)
		}
		return fmt.Errorf("trial ended with status %q", res.Status)
	}
	return nil
}
