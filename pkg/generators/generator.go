// Package generators provides the player back-end interface and registry
// for LLM access (OpenAI, Bedrock, Replicate, a human-in-the-loop reader,
// and a scripted test double).
//
// Generators wrap player APIs with a common interface. They handle
// authentication, rate limiting, and conversation management; the Player
// Adapter (pkg/player) is the only caller.
package generators

import (
	"context"

	"github.com/xentlabs/xent/pkg/chat"
	"github.com/xentlabs/xent/pkg/registry"
)

// Generator is the interface every player back-end implementation must
// satisfy. Unlike the teacher's types.Generator, there is no
// ClearHistory/Description: a trial's Adapter owns exactly one generator
// for its lifetime and never resets it mid-trial, and Description has no
// reader in this domain (no interactive probe listing).
type Generator interface {
	// Generate sends a conversation to the back-end and returns n
	// candidate completions.
	Generate(ctx context.Context, conv *chat.Conversation, n int) ([]chat.Message, error)
	// Name returns the fully qualified generator name (e.g. "openai").
	Name() string
}

// Registry is the global player-generator registry.
var Registry = registry.New[Generator]("generators")

// Register adds a generator factory to the global registry. Called from
// init() functions in generator implementations.
func Register(name string, factory func(registry.Config) (Generator, error)) {
	Registry.Register(name, factory)
}

// List returns all registered generator names.
func List() []string {
	return Registry.List()
}

// Get retrieves a generator factory by name.
func Get(name string) (func(registry.Config) (Generator, error), bool) {
	return Registry.Get(name)
}

// Create instantiates a generator by name.
func Create(name string, cfg registry.Config) (Generator, error) {
	return Registry.Create(name, cfg)
}
