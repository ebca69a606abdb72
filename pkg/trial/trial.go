// Package trial implements the Trial Orchestrator: it constructs an
// Interpreter over a game's parsed program with a map's prefix bindings
// preloaded, drives it to completion, and produces a TrialResult.
package trial

import (
	"context"
	"fmt"

	"github.com/xentlabs/xent/pkg/event"
	"github.com/xentlabs/xent/pkg/interp"
	"github.com/xentlabs/xent/pkg/result"
	"github.com/xentlabs/xent/pkg/xdl"
	"github.com/xentlabs/xent/pkg/xenterr"
)

// Game bundles a parsed program with its name; RoundStart is the index of
// the first op after the shared map prefix.
type Game struct {
	Name       string
	Program    *xdl.Program
	RoundStart int
}

// Spec is everything one trial needs to run.
type Spec struct {
	Game         Game
	MapSeed      string
	MapRegisters map[string]string
	PlayerID     string
	MaxRounds    int
	MaxEnsureCap int
	Elicitor     interp.Elicitor
	EvalCtx      interp.EvalContext
}

// Run drives one trial to completion and returns its TrialResult. It
// never panics: interpreter/judge/player errors are classified into the
// taxonomy's per-trial outcomes and folded into the returned result
// rather than propagated; context cancellation is folded in the same way,
// as a cancelled status. Run applies no per-trial timeout of its own, and
// the scheduler does not set one either.
func Run(ctx context.Context, spec Spec) result.TrialResult {
	in := interp.New(spec.Game.Program, spec.Game.RoundStart, spec.MapRegisters, spec.MaxRounds, spec.MaxEnsureCap, spec.Elicitor, spec.EvalCtx)

	rounds, err := in.RunTrial(ctx)
	if err != nil {
		return errored(spec, rounds, err)
	}

	return summarize(spec, rounds)
}

func summarize(spec Spec, rounds []interp.RoundResult) result.TrialResult {
	var events event.Log
	var summaries []result.RoundSummary
	headline := 0.0
	headlineRound := 0
	anyStuck := false

	for i, r := range rounds {
		events = append(events, r.Events...)
		summaries = append(summaries, result.RoundSummary{
			Index:      r.Index,
			Score:      r.Total,
			Arms:       r.Arms,
			Iterations: r.Events.CountKind(event.KindReward),
		})
		if r.Outcome == interp.OutcomeStuck {
			anyStuck = true
		}
		if i == 0 || r.Total > headline {
			headline = r.Total
			headlineRound = r.Index
		}
	}

	status := result.StatusOK
	if anyStuck {
		status = result.StatusStuck
	}

	return result.TrialResult{
		Game:          spec.Game.Name,
		MapSeed:       spec.MapSeed,
		PlayerID:      spec.PlayerID,
		Events:        events,
		Rounds:        summaries,
		HeadlineScore: headline,
		HeadlineRound: headlineRound,
		Status:        status,
	}
}

func errored(spec Spec, rounds []interp.RoundResult, err error) result.TrialResult {
	r := summarize(spec, rounds)
	r.Status = classify(err)
	r.Error = &result.ErrorInfo{Kind: fmt.Sprintf("%T", err), Message: err.Error()}
	return r
}

// classify maps a trial-ending error onto the result taxonomy's terminal
// statuses. Every xenterr kind other than cancellation is "errored": the
// distinguishing detail is preserved separately in TrialResult.Error.Kind.
func classify(err error) result.Status {
	var tt *xenterr.TrialTimeout
	if isContextErr(err) || asErr(err, &tt) {
		return result.StatusCancelled
	}
	return result.StatusErrored
}
