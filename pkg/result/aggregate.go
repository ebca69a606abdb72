package result

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// BenchmarkResult is the scheduler-level aggregate, entirely derived from
// stored trial result files so it is recomputable at any time.
type BenchmarkResult struct {
	BenchmarkID string `json:"benchmark_id"`
	// player_id -> mean over games
	PlayerOverall map[string]float64 `json:"player_overall"`
	// game -> player_id -> mean over maps
	GamePlayer map[string]map[string]float64 `json:"game_player"`
	// game -> player_id -> one headline score per map (map order), not
	// per-iteration: a trial's own round-by-round series lives in
	// GamePlayerRounds below.
	GamePlayerIter map[string]map[string][]float64 `json:"game_player_iterations"`
	// game -> player_id -> every round's score across all of that
	// game/player's maps, concatenated in the order maps were read, then
	// in round order within each map. This is the per-game per-player
	// per-iteration array: one entry per elicit/reward iteration a player
	// actually played, not one per map.
	GamePlayerRounds map[string]map[string][]float64 `json:"game_player_round_scores"`
}

// Aggregate scans resultsDir/benchmarkID for every trial result file and
// reduces them into a BenchmarkResult. It is pure: running it twice over
// the same directory produces the same output, and it never mutates the
// trial files it reads.
func Aggregate(resultsDir, benchmarkID string) (BenchmarkResult, error) {
	dir := filepath.Join(resultsDir, benchmarkID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return BenchmarkResult{}, err
	}

	type key struct{ game, player string }
	sums := make(map[key]float64)
	counts := make(map[key]int)
	series := make(map[key][]float64)
	roundSeries := make(map[key][]float64)
	players := make(map[string]struct{})
	games := make(map[string]struct{})

	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".json") {
			continue
		}
		r, err := Load(filepath.Join(dir, ent.Name()))
		if err != nil || r.Status != StatusOK && r.Status != StatusStuck {
			continue
		}
		k := key{game: r.Game, player: r.PlayerID}
		sums[k] += r.HeadlineScore
		counts[k]++
		series[k] = append(series[k], r.HeadlineScore)
		for _, round := range r.Rounds {
			roundSeries[k] = append(roundSeries[k], round.Score)
		}
		players[r.PlayerID] = struct{}{}
		games[r.Game] = struct{}{}
	}

	gamePlayer := make(map[string]map[string]float64)
	gamePlayerIter := make(map[string]map[string][]float64)
	gamePlayerRounds := make(map[string]map[string][]float64)
	for k, sum := range sums {
		if gamePlayer[k.game] == nil {
			gamePlayer[k.game] = make(map[string]float64)
			gamePlayerIter[k.game] = make(map[string][]float64)
			gamePlayerRounds[k.game] = make(map[string][]float64)
		}
		gamePlayer[k.game][k.player] = sum / float64(counts[k])
		gamePlayerIter[k.game][k.player] = series[k]
		gamePlayerRounds[k.game][k.player] = roundSeries[k]
	}

	playerOverall := make(map[string]float64)
	for player := range players {
		total := 0.0
		n := 0
		for game := range games {
			if v, ok := gamePlayer[game][player]; ok {
				total += v
				n++
			}
		}
		if n > 0 {
			playerOverall[player] = total / float64(n)
		}
	}

	return BenchmarkResult{
		BenchmarkID:      benchmarkID,
		PlayerOverall:    playerOverall,
		GamePlayer:       gamePlayer,
		GamePlayerIter:   gamePlayerIter,
		GamePlayerRounds: gamePlayerRounds,
	}, nil
}

// WriteAtomic persists a BenchmarkResult the same way trial results are
// persisted: temp file plus rename.
func (b BenchmarkResult) WriteAtomic(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-benchmark-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
