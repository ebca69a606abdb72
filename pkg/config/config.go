package config

import (
	"fmt"
	"time"
)

// BenchmarkConfig is the condensed configuration the scheduler expands:
// metadata + expansion policy + players + games, exactly spec.md §3/§6.
type BenchmarkConfig struct {
	Metadata  Metadata        `yaml:"metadata" koanf:"metadata" validate:"required"`
	Expansion ExpansionConfig `yaml:"expansion" koanf:"expansion"`
	Players   []PlayerConfig  `yaml:"players" koanf:"players" validate:"required,min=1,dive"`
	Games     []GameConfig    `yaml:"games" koanf:"games" validate:"required,min=1,dive"`
}

// Metadata identifies a benchmark run and its judge model.
type Metadata struct {
	BenchmarkID    string `yaml:"benchmark_id" koanf:"benchmark_id" validate:"required"`
	JudgeModel     string `yaml:"judge_model" koanf:"judge_model" validate:"required"`
	RoundsPerGame  int    `yaml:"rounds_per_game" koanf:"rounds_per_game" validate:"gte=1"`
	MasterSeed     string `yaml:"master_seed" koanf:"master_seed" validate:"required"`
	MaxEnsureRetry int    `yaml:"max_ensure_retry,omitempty" koanf:"max_ensure_retry" validate:"gte=0"`
	TrialTimeout   string `yaml:"trial_timeout,omitempty" koanf:"trial_timeout"`
}

// ExpansionConfig controls map-seed generation policy.
type ExpansionConfig struct {
	NumMapsPerGame int    `yaml:"num_maps_per_game" koanf:"num_maps_per_game" validate:"gte=1"`
	TextGenerator  string `yaml:"text_generator" koanf:"text_generator" validate:"oneof=JUDGE COMMUNITY_ARCHIVE"`
	MaxStoryTokens int    `yaml:"max_story_tokens,omitempty" koanf:"max_story_tokens" validate:"gte=0"`
	ArchiveDir     string `yaml:"archive_dir,omitempty" koanf:"archive_dir"`
}

// PlayerConfig is one entry of the condensed config's players list: an id,
// a back-end type (openai/bedrock/replicate/human/testgen), and free-form
// options (model, provider-specific request parameters, rate limit).
type PlayerConfig struct {
	ID      string         `yaml:"id" koanf:"id" validate:"required"`
	Type    string         `yaml:"type" koanf:"type" validate:"required"`
	Options map[string]any `yaml:"options,omitempty" koanf:"options"`
}

// GameConfig is one entry of the condensed config's games list: a name
// plus the XDL source and presentation-function source for that game.
type GameConfig struct {
	Name               string `yaml:"name" koanf:"name" validate:"required"`
	Source             string `yaml:"source" koanf:"source" validate:"required"`
	PresentationSource string `yaml:"presentation_source" koanf:"presentation_source" validate:"required"`
	MaxRounds          int    `yaml:"max_rounds,omitempty" koanf:"max_rounds" validate:"gte=0"`
}

// Validate applies the invariants koanf/validator's struct tags can't
// express: duration parsing, uniqueness, and cross-field requirements.
func (c *BenchmarkConfig) Validate() error {
	if c.Metadata.TrialTimeout != "" {
		if _, err := time.ParseDuration(c.Metadata.TrialTimeout); err != nil {
			return fmt.Errorf("invalid metadata.trial_timeout: %w", err)
		}
	}

	seenPlayers := make(map[string]struct{}, len(c.Players))
	for _, p := range c.Players {
		if _, dup := seenPlayers[p.ID]; dup {
			return fmt.Errorf("duplicate player id %q", p.ID)
		}
		seenPlayers[p.ID] = struct{}{}
	}

	seenGames := make(map[string]struct{}, len(c.Games))
	for _, g := range c.Games {
		if _, dup := seenGames[g.Name]; dup {
			return fmt.Errorf("duplicate game name %q", g.Name)
		}
		seenGames[g.Name] = struct{}{}
	}

	if c.Expansion.TextGenerator == "COMMUNITY_ARCHIVE" && c.Expansion.ArchiveDir == "" {
		return fmt.Errorf("expansion.archive_dir is required when text_generator is COMMUNITY_ARCHIVE")
	}

	return nil
}

// ParsedTrialTimeout parses Metadata.TrialTimeout, defaulting to zero when
// unset or malformed. Nothing in the tree calls it: trials run without a
// per-trial wall-clock cap, and the bench command's --timeout flag is the
// only deadline.
func (m Metadata) ParsedTrialTimeout() time.Duration {
	if m.TrialTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(m.TrialTimeout)
	if err != nil {
		return 0
	}
	return d
}
