// Package community implements the COMMUNITY_ARCHIVE map-expansion mode: a
// fixed pool of pre-written story texts, loaded from YAML, drawn from
// deterministically by map seed instead of sampled from the judge model.
package community

import (
	"embed"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stories is one YAML archive file's shape: a flat list of story texts.
type Stories struct {
	Stories []string `yaml:"stories"`
}

// Archive satisfies trial.Archive: Story(seed) deterministically picks one
// entry by seed, so the same seed always draws the same story within a
// given archive.
type Archive struct {
	stories []string
}

// New builds an Archive directly from a list of story texts.
func New(stories []string) *Archive {
	return &Archive{stories: stories}
}

// Story returns the archive entry selected by seed. An empty archive is a
// configuration error: COMMUNITY_ARCHIVE mode with nothing to draw from.
func (a *Archive) Story(seed int64) (string, error) {
	if len(a.stories) == 0 {
		return "", fmt.Errorf("community: archive is empty")
	}
	idx := seed % int64(len(a.stories))
	if idx < 0 {
		idx += int64(len(a.stories))
	}
	return a.stories[idx], nil
}

// Load reads every *.yaml/*.yml file in dir (each a Stories document) and
// returns an Archive over their concatenated story lists.
func Load(dir string) (*Archive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("community: reading archive directory %s: %w", dir, err)
	}

	var all []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		data, err := os.ReadFile(path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("community: reading %s: %w", name, err)
		}
		var doc Stories
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("community: parsing %s: %w", name, err)
		}
		all = append(all, doc.Stories...)
	}

	return New(all), nil
}

// LoadEmbedded loads archive YAML documents from an embedded filesystem,
// for a default archive baked into the xent binary (the teacher's
// templates.Loader embed.FS pattern).
func LoadEmbedded(fs embed.FS, basedir string) (*Archive, error) {
	entries, err := fs.ReadDir(basedir)
	if err != nil {
		return nil, fmt.Errorf("community: reading embedded archive directory: %w", err)
	}

	var all []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		data, err := fs.ReadFile(path.Join(basedir, name))
		if err != nil {
			return nil, fmt.Errorf("community: reading embedded %s: %w", name, err)
		}
		var doc Stories
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("community: parsing embedded %s: %w", name, err)
		}
		all = append(all, doc.Stories...)
	}

	return New(all), nil
}
