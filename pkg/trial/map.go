package trial

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xentlabs/xent/pkg/interp"
	"github.com/xentlabs/xent/pkg/xdl"
)

// ExpansionMode selects how map story text is produced.
type ExpansionMode string

const (
	ExpansionJudge            ExpansionMode = "JUDGE"
	ExpansionCommunityArchive ExpansionMode = "COMMUNITY_ARCHIVE"
)

// Archive supplies pre-written story text for COMMUNITY_ARCHIVE mode,
// implemented by internal/community.
type Archive interface {
	Story(seed int64) (string, error)
}

// mapFile is the on-disk memoized form of a generated map.
type mapFile struct {
	Registers map[string]string `json:"registers"`
}

// GenerateMap produces (or loads, if already memoized) the immutable
// register bindings for one (game, seed) pair by running the game's map
// prefix once with a deterministic story source. The bench command passes
// its --maps-dir flag (default "maps") as mapsDir.
func GenerateMap(ctx context.Context, game Game, seed int64, judge interp.ScoringGateway, mode ExpansionMode, archive Archive, maxStoryTokens int, mapsDir string) (map[string]string, error) {
	path := filepath.Join(mapsDir, fmt.Sprintf("%s_%d.json", game.Name, seed))

	if cached, ok := loadMap(path); ok {
		return cached, nil
	}

	story := func(ctx context.Context) (string, error) {
		switch mode {
		case ExpansionCommunityArchive:
			if archive == nil {
				return "", fmt.Errorf("trial: COMMUNITY_ARCHIVE mode configured with no archive")
			}
			return archive.Story(seed)
		default:
			return judgeGenerate(ctx, judge, seed, maxStoryTokens)
		}
	}

	prefixOps := game.Program.Ops[:game.RoundStart]

	regs := interp.NewRegisterFile()
	evalCtx := interp.EvalContext{Judge: judge, Story: story}

	for _, op := range prefixOps {
		if err := runPrefixOp(ctx, op, regs, evalCtx); err != nil {
			return nil, err
		}
	}

	snapshot := regs.Snapshot()
	saveMap(path, snapshot)
	return snapshot, nil
}

func loadMap(path string) (map[string]string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var mf mapFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, false
	}
	return mf.Registers, true
}

func saveMap(path string, registers map[string]string) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	tmp, err := os.CreateTemp(dir, ".tmp-map-*")
	if err != nil {
		return
	}
	tmpPath := tmp.Name()
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(mapFile{Registers: registers}); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return
	}
	tmp.Close()
	os.Rename(tmpPath, path)
}

// runPrefixOp executes one map-prefix op. The prefix is, by convention,
// assign()/reveal() only (no elicit/ensure/reward makes sense before any
// round has started); anything else is a configuration error.
func runPrefixOp(ctx context.Context, op xdl.Op, regs *interp.RegisterFile, evalCtx interp.EvalContext) error {
	switch op.Kind {
	case xdl.OpAssign:
		v, err := interp.Eval(ctx, op.AssignExpr, regs, evalCtx)
		if err != nil {
			return err
		}
		text, err := v.AsText()
		if err != nil {
			return fmt.Errorf("trial: map prefix assign(%s=...) at line %d: %w", op.AssignName, op.Line, err)
		}
		regs.Set(op.AssignName, text)
		return nil
	case xdl.OpReveal:
		// Reveal in the map prefix has no event log to write to yet; it's
		// a no-op for map generation.
		return nil
	default:
		return fmt.Errorf("trial: map prefix at line %d contains op %s, which is not valid before round start", op.Line, op.Kind)
	}
}

func judgeGenerate(ctx context.Context, g interp.ScoringGateway, seed int64, maxTokens int) (string, error) {
	gen, ok := g.(interface {
		Generate(ctx context.Context, prompt string, maxTokens int, seed int64, options map[string]any) (string, error)
	})
	if !ok {
		return "", fmt.Errorf("trial: judge gateway does not support generate, required for JUDGE expansion mode")
	}
	return gen.Generate(ctx, "", maxTokens, seed, nil)
}
