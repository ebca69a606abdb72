// Package bench implements the Benchmark Scheduler: it expands a condensed
// benchmark configuration into the Cartesian product of games x map seeds x
// players, drives each trial through pkg/trial with a bounded worker pool,
// and reduces the resulting trial files into a BenchmarkResult.
package bench

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/xentlabs/xent/pkg/trial"
)

// PlayerSpec is one entry of the condensed config's players list, narrowed
// to what the scheduler needs to dispatch a trial; provider-specific
// options live behind the Elicitor the caller supplies per player.
type PlayerSpec struct {
	ID string
}

// Unit is one planned trial: a stable (game, player, seed) triple plus
// everything needed to run it.
type Unit struct {
	Game     trial.Game
	PlayerID string
	MapSeed  string
	Seed     int64
}

// DeriveMapSeeds deterministically derives numMaps per-game seeds from the
// benchmark's master seed, so re-running the same config against the same
// seed always expands to the same map identities. It is not cryptographic;
// sha256 is used only as a convenient, well-distributed mixing function,
// the same way pkg/judge's score cache keys its entries.
func DeriveMapSeeds(masterSeed string, gameName string, numMaps int) []int64 {
	seeds := make([]int64, numMaps)
	for i := 0; i < numMaps; i++ {
		h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", masterSeed, gameName, i)))
		seeds[i] = int64(binary.BigEndian.Uint64(h[:8]) &^ (1 << 63)) // keep non-negative
	}
	return seeds
}

// Expand builds the full trial unit list for one benchmark run: every
// game, crossed with its derived map seeds, crossed with every player.
func Expand(games []trial.Game, players []PlayerSpec, masterSeed string, numMapsPerGame int) []Unit {
	var units []Unit
	for _, g := range games {
		seeds := DeriveMapSeeds(masterSeed, g.Name, numMapsPerGame)
		for _, seed := range seeds {
			mapSeed := fmt.Sprintf("%d", seed)
			for _, p := range players {
				units = append(units, Unit{
					Game:     g,
					PlayerID: p.ID,
					MapSeed:  mapSeed,
					Seed:     seed,
				})
			}
		}
	}
	return units
}
