package bench

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/xentlabs/xent/pkg/event"
	"github.com/xentlabs/xent/pkg/interp"
	"github.com/xentlabs/xent/pkg/metrics"
	"github.com/xentlabs/xent/pkg/result"
	"github.com/xentlabs/xent/pkg/trial"
)

// tokensRewarded sums the token counts of every reward event in a trial's
// flattened event log, the judge-gateway work a trial actually billed.
func tokensRewarded(events event.Log) int64 {
	var n int64
	for _, e := range events {
		if rw, ok := e.(event.Reward); ok {
			n += int64(len(rw.Value))
		}
	}
	return n
}

// Options configures the scheduler's worker pool, directly adapted from
// the teacher's pkg/scanner.Options: a concurrency cap plus the per-trial
// settings, now expressed in terms of trials instead of probes. The
// scheduler does not retry a failed trial.
type Options struct {
	Concurrency    int
	MaxRounds      int
	MaxEnsureCap   int
	ResultsDir     string
	BenchmarkID    string
	MapsDir        string
	ExpansionMode  trial.ExpansionMode
	Archive        trial.Archive
	MaxStoryTokens int

	// Metrics receives a trial/round count on every completed unit, if set.
	Metrics *metrics.Metrics
}

// ElicitorFor resolves the Elicitor a unit's player should use; the caller
// owns player back-end construction and hands back the adapter here. It is
// called once per unit; the bench command builds a new generator on every
// call, and no back-end is shared between units.
type ElicitorFor func(playerID string) (interp.Elicitor, error)

// JudgeFor resolves the Judge Gateway (and, by extension, its EvalContext)
// a unit should run against. Most configurations return the same
// process-wide gateway for every call.
type JudgeFor func(game string) (interp.EvalContext, error)

// Scheduler drives a benchmark's trial units to completion, skipping any
// whose result file is already complete and writing results atomically as
// each trial finishes so the run is resumable after a crash.
type Scheduler struct {
	opts Options

	completed int64
	skipped   int64
	failed    int64
}

// New builds a Scheduler.
func New(opts Options) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.Metrics == nil {
		opts.Metrics = &metrics.Metrics{}
	}
	return &Scheduler{opts: opts}
}

// Progress is a snapshot of the scheduler's counters, suitable for a CLI
// progress callback.
type Progress struct {
	Completed, Skipped, Failed, Total int
}

// Run dispatches every planned unit across a bounded errgroup pool,
// skipping units whose result is already complete, and writing a
// TrialResult for every other unit (success or failure) so the on-disk
// state always reflects exactly one outcome per planned trial.
func (s *Scheduler) Run(ctx context.Context, units []Unit, elicitorFor ElicitorFor, judgeFor JudgeFor, progress func(Progress)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	total := len(units)
	report := func() {
		if progress != nil {
			progress(Progress{
				Completed: int(atomic.LoadInt64(&s.completed)),
				Skipped:   int(atomic.LoadInt64(&s.skipped)),
				Failed:    int(atomic.LoadInt64(&s.failed)),
				Total:     total,
			})
		}
	}

	for _, u := range units {
		u := u
		path := result.Path(s.opts.ResultsDir, s.opts.BenchmarkID, u.Game.Name, u.PlayerID, u.MapSeed)

		if result.IsComplete(path) {
			atomic.AddInt64(&s.skipped, 1)
			report()
			continue
		}

		g.Go(func() error {
			r, err := s.runUnit(gctx, u, elicitorFor, judgeFor)
			if err != nil {
				atomic.AddInt64(&s.failed, 1)
				report()
				slog.Error("trial dispatch failed", "game", u.Game.Name, "player", u.PlayerID, "map_seed", u.MapSeed, "err", err)
				status := result.StatusErrored
				if gctx.Err() != nil {
					status = result.StatusCancelled
				}
				errRes := result.TrialResult{Game: u.Game.Name, MapSeed: u.MapSeed, PlayerID: u.PlayerID, Status: status,
					Error: &result.ErrorInfo{Kind: fmt.Sprintf("%T", err), Message: err.Error()}}
				if werr := result.WriteAtomic(path, errRes); werr != nil {
					return fmt.Errorf("bench: writing result for %s/%s/%s: %w", u.Game.Name, u.PlayerID, u.MapSeed, werr)
				}
				return nil
			}

			if werr := result.WriteAtomic(path, r); werr != nil {
				atomic.AddInt64(&s.failed, 1)
				report()
				return fmt.Errorf("bench: writing result for %s/%s/%s: %w", u.Game.Name, u.PlayerID, u.MapSeed, werr)
			}

			if s.opts.Metrics != nil {
				s.opts.Metrics.AddTrial(string(r.Status))
				s.opts.Metrics.AddRounds(int64(len(r.Rounds)))
				s.opts.Metrics.AddEnsureRetries(int64(r.Events.CountKind(event.KindFailedEnsure)))
				s.opts.Metrics.AddTokens(tokensRewarded(r.Events))
			}

			atomic.AddInt64(&s.completed, 1)
			report()
			return nil
		})
	}

	return g.Wait()
}

func (s *Scheduler) runUnit(ctx context.Context, u Unit, elicitorFor ElicitorFor, judgeFor JudgeFor) (result.TrialResult, error) {
	evalCtx, err := judgeFor(u.Game.Name)
	if err != nil {
		return result.TrialResult{}, fmt.Errorf("bench: resolving judge for %s: %w", u.Game.Name, err)
	}

	mode := s.opts.ExpansionMode
	if mode == "" {
		mode = trial.ExpansionJudge
	}
	maxStoryTokens := s.opts.MaxStoryTokens
	if maxStoryTokens <= 0 {
		maxStoryTokens = 512
	}
	mapRegs, err := trial.GenerateMap(ctx, u.Game, u.Seed, evalCtx.Judge, mode, s.opts.Archive, maxStoryTokens, s.opts.MapsDir)
	if err != nil {
		return result.TrialResult{}, fmt.Errorf("bench: generating map for %s/%s: %w", u.Game.Name, u.MapSeed, err)
	}

	elicitor, err := elicitorFor(u.PlayerID)
	if err != nil {
		return result.TrialResult{}, fmt.Errorf("bench: resolving player %s: %w", u.PlayerID, err)
	}

	spec := trial.Spec{
		Game:         u.Game,
		MapSeed:      u.MapSeed,
		MapRegisters: mapRegs,
		PlayerID:     u.PlayerID,
		MaxRounds:    s.opts.MaxRounds,
		MaxEnsureCap: s.opts.MaxEnsureCap,
		Elicitor:     elicitor,
		EvalCtx:      evalCtx,
	}

	return trial.Run(ctx, spec), nil
}
