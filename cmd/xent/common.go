package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/xentlabs/xent/internal/judgebackend/openailogprobs"
	"github.com/xentlabs/xent/internal/judgebackend/scripted"
	"github.com/xentlabs/xent/pkg/config"
	"github.com/xentlabs/xent/pkg/generators"
	"github.com/xentlabs/xent/pkg/judge"
	"github.com/xentlabs/xent/pkg/player"
	"github.com/xentlabs/xent/pkg/present"
	"github.com/xentlabs/xent/pkg/registry"
	"github.com/xentlabs/xent/pkg/retry"
	"github.com/xentlabs/xent/pkg/trial"
	"github.com/xentlabs/xent/pkg/xdl"
)

const version = "0.1.0"

// listCapabilities prints every registered generator and judge back-end,
// adapted from the teacher's probe/detector/harness/buff capability
// listing in cmd/augustus/common.go.
func listCapabilities() {
	fmt.Println("Registered Capabilities")
	fmt.Println("========================")
	fmt.Println()

	fmt.Printf("Generators (%d):\n", generators.Registry.Count())
	for _, name := range generators.List() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println()

	fmt.Println("Judge backends:")
	fmt.Println("  - openailogprobs (any OpenAI-compatible completions model)")
	fmt.Println("  - scripted (constant-bits test double, prefix model id with \"scripted:\")")
}

// defaultRetry is the retry policy used for both player and judge calls
// unless a future config surface overrides it.
func defaultRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

const scriptedJudgePrefix = "scripted:"

// buildGateway constructs the Judge Gateway for a benchmark's judge
// model. A "scripted:<bits>" model id (e.g. "scripted:1.5") selects the
// in-tree constant-bits test double used by lint and local dry runs;
// anything else is treated as an OpenAI-compatible completions model
// name served by the openailogprobs back-end.
func buildGateway(judgeModel string, apiKey string) (judge.Gateway, error) {
	if rest, ok := strings.CutPrefix(judgeModel, scriptedJudgePrefix); ok {
		bits := 1.0
		if rest != "" {
			if _, err := fmt.Sscanf(rest, "%f", &bits); err != nil {
				return nil, fmt.Errorf("invalid scripted judge model %q: %w", judgeModel, err)
			}
		}
		backend := scripted.New(bits)
		tok := scriptedTokenizer{}
		return judge.New(tok, backend, defaultRetry(), 0), nil
	}

	backend, err := openailogprobs.NewTyped(openailogprobs.Config{Model: judgeModel, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("building judge backend: %w", err)
	}
	tok, err := judge.NewTokenizer(judgeModel)
	if err != nil {
		return nil, fmt.Errorf("building judge tokenizer: %w", err)
	}
	return judge.New(tok, backend, defaultRetry(), 0), nil
}

// tokenizerFor resolves the tokenizer paired with buildGateway's choice of
// backend for the same judge model id.
func tokenizerFor(judgeModel string) (judge.Tokenizer, error) {
	if strings.HasPrefix(judgeModel, scriptedJudgePrefix) {
		return scriptedTokenizer{}, nil
	}
	return judge.NewTokenizer(judgeModel)
}

// scriptedTokenizer is a whitespace tokenizer paired with the scripted
// judge backend so lint/dry runs never need a live tiktoken encoding
// table for a model id that doesn't correspond to a real OpenAI model.
type scriptedTokenizer struct{}

func (scriptedTokenizer) Encode(text string) ([]int, []string, error) {
	fields := strings.Fields(text)
	ids := make([]int, len(fields))
	for i := range fields {
		ids[i] = i
	}
	return ids, fields, nil
}

// loadGame parses a condensed game config's XDL source into a trial.Game.
// The shared map prefix is the leading run of assign() ops: every other
// op kind only makes sense once a round is underway (elicit/ensure/reward)
// or inside one (reveal/beacon), so the first non-assign op marks where
// the repeating round body begins.
func loadGame(gc config.GameConfig) (trial.Game, error) {
	prog, err := xdl.Parse(gc.Source)
	if err != nil {
		return trial.Game{}, fmt.Errorf("parsing game %q: %w", gc.Name, err)
	}

	roundStart := 0
	for _, op := range prog.Ops {
		if op.Kind != xdl.OpAssign {
			break
		}
		roundStart++
	}

	return trial.Game{Name: gc.Name, Program: prog, RoundStart: roundStart}, nil
}

// buildPresenter compiles a game's presentation source.
func buildPresenter(gc config.GameConfig) (player.Presenter, error) {
	return present.Compile(gc.Name, gc.PresentationSource)
}

// buildElicitor wires a player config's generator, the game's compiled
// presenter, and the judge's tokenizer into a player.Adapter.
func buildElicitor(pc config.PlayerConfig, presenter player.Presenter, tok judge.Tokenizer, meta player.Metadata) (*player.Adapter, error) {
	gen, err := generators.Create(pc.Type, registry.Config(pc.Options))
	if err != nil {
		return nil, fmt.Errorf("creating player %q (%s): %w", pc.ID, pc.Type, err)
	}
	return player.NewAdapter(presenter, gen, tok, meta, defaultRetry()), nil
}
