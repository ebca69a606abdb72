// Package result defines the on-disk TrialResult/BenchmarkResult schema
// and the atomic write-then-rename persistence the scheduler relies on
// for resumption.
package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xentlabs/xent/pkg/event"
)

// Status is a TrialResult's terminal state.
type Status string

const (
	StatusOK        Status = "ok"
	StatusErrored   Status = "errored"
	StatusCancelled Status = "cancelled"
	StatusStuck     Status = "stuck"
)

// ErrorInfo records a trial-level failure's taxonomy kind and message.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RoundSummary is one round's bookkeeping, independent of its full event
// log (which lives in Events).
type RoundSummary struct {
	Index      int     `json:"index"`
	Score      float64 `json:"score"`
	Arms       int     `json:"arms"`
	Iterations int     `json:"iterations"`
}

// TrialResult is the JSON document written per (game, player, map_seed).
type TrialResult struct {
	Game          string         `json:"game"`
	MapSeed       string         `json:"map_seed"`
	PlayerID      string         `json:"player_id"`
	Events        event.Log      `json:"events"`
	Rounds        []RoundSummary `json:"rounds"`
	HeadlineScore float64        `json:"headline_score"`
	HeadlineRound int            `json:"headline_round"`
	Status        Status         `json:"status"`
	Error         *ErrorInfo     `json:"error"`
}

// FileName is the stable identity used both as the result filename and
// the idempotency key: game_name x player_id x map_seed.
func FileName(game, playerID, mapSeed string) string {
	return fmt.Sprintf("%s__%s__%s.json", game, playerID, mapSeed)
}

// Path returns the full path to a trial's result file under resultsDir.
func Path(resultsDir, benchmarkID, game, playerID, mapSeed string) string {
	return filepath.Join(resultsDir, benchmarkID, FileName(game, playerID, mapSeed))
}

// WriteAtomic serializes r to path by writing a temp file in the same
// directory and renaming over the destination, so a reader never
// observes a partially written result file.
func WriteAtomic(path string, r TrialResult) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-result-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Load reads and parses a trial result file. A missing file means "not
// yet done"; a file that fails to parse is treated as a stale partial
// write and should be discarded by the caller (re-queue the trial).
func Load(path string) (TrialResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TrialResult{}, err
	}
	var r TrialResult
	if err := json.Unmarshal(data, &r); err != nil {
		return TrialResult{}, err
	}
	return r, nil
}

// IsComplete reports whether the result file at path exists and parses
// as a finished TrialResult (any terminal Status).
func IsComplete(path string) bool {
	r, err := Load(path)
	if err != nil {
		return false
	}
	return r.Status != ""
}
