package bench

import "github.com/xentlabs/xent/pkg/result"

// Aggregate reduces every stored trial result under resultsDir/benchmarkID
// into a BenchmarkResult. It is a thin, named re-export of
// result.Aggregate so callers reach for bench.Aggregate alongside
// bench.Scheduler without reaching into pkg/result directly; the
// underlying scan-and-reduce logic lives there since it operates purely
// on the result package's on-disk schema.
func Aggregate(resultsDir, benchmarkID string) (result.BenchmarkResult, error) {
	return result.Aggregate(resultsDir, benchmarkID)
}
