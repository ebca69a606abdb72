// Package testgen provides canned-response player back-ends for testing
// XDL games without a live LLM.
package testgen

import (
	"context"
	"fmt"

	"github.com/xentlabs/xent/pkg/chat"
	"github.com/xentlabs/xent/pkg/generators"
	"github.com/xentlabs/xent/pkg/registry"
)

func init() {
	generators.Register("testgen.Blank", NewBlank)
	generators.Register("testgen.Repeat", NewRepeat)
	generators.Register("testgen.Single", NewSingle)
	generators.Register("testgen.Scripted", NewScripted)
}

// Blank always returns empty moves. Useful for exercising a trial's
// ensure/stuck-detection path without a live model.
type Blank struct{}

// NewBlank creates a new Blank generator.
func NewBlank(_ registry.Config) (generators.Generator, error) {
	return &Blank{}, nil
}

// Generate returns n empty responses.
func (b *Blank) Generate(_ context.Context, _ *chat.Conversation, n int) ([]chat.Message, error) {
	if n <= 0 {
		n = 1
	}
	responses := make([]chat.Message, n)
	for i := range responses {
		responses[i] = chat.NewAssistantMessage("")
	}
	return responses, nil
}

// Name returns the generator's registry name.
func (b *Blank) Name() string { return "testgen.Blank" }

// Repeat echoes the conversation's last prompt back as the move,
// optionally prefixed.
type Repeat struct {
	prefix string
}

// NewRepeat creates a new Repeat generator.
func NewRepeat(cfg registry.Config) (generators.Generator, error) {
	r := &Repeat{}
	if p, ok := cfg["prefix"].(string); ok {
		r.prefix = p
	}
	return r, nil
}

// Generate echoes the last prompt from the conversation.
func (r *Repeat) Generate(_ context.Context, conv *chat.Conversation, n int) ([]chat.Message, error) {
	if n <= 0 {
		n = 1
	}

	response := r.prefix + conv.LastPrompt()

	responses := make([]chat.Message, n)
	for i := range responses {
		responses[i] = chat.NewAssistantMessage(response)
	}
	return responses, nil
}

// Name returns the generator's registry name.
func (r *Repeat) Name() string { return "testgen.Repeat" }

// Single always returns a fixed move and refuses n>1, to exercise
// single-generation constraints.
type Single struct {
	move string
}

// NewSingle creates a new Single generator.
func NewSingle(cfg registry.Config) (generators.Generator, error) {
	move := "ELIM"
	if m, ok := cfg["move"].(string); ok && m != "" {
		move = m
	}
	return &Single{move: move}, nil
}

// Generate returns the fixed move, erroring if n>1.
func (s *Single) Generate(_ context.Context, _ *chat.Conversation, n int) ([]chat.Message, error) {
	if n > 1 {
		return nil, fmt.Errorf("testgen.Single refuses to generate multiple generations (requested %d)", n)
	}
	return []chat.Message{chat.NewAssistantMessage(s.move)}, nil
}

// Name returns the generator's registry name.
func (s *Single) Name() string { return "testgen.Single" }

// Scripted cycles through a fixed list of canned responses, one per
// Generate call, wrapping around once exhausted.
type Scripted struct {
	responses []string
	i         int
}

// NewScripted creates a new Scripted generator from a "responses" list
// in the player config's Options map.
func NewScripted(cfg registry.Config) (generators.Generator, error) {
	raw, ok := cfg["responses"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("testgen.Scripted requires a non-empty 'responses' list")
	}

	responses := make([]string, len(raw))
	for i, r := range raw {
		s, ok := r.(string)
		if !ok {
			return nil, fmt.Errorf("testgen.Scripted: responses[%d] is not a string", i)
		}
		responses[i] = s
	}

	return &Scripted{responses: responses}, nil
}

// Generate returns the next canned response, cycling back to the start
// once the list is exhausted.
func (s *Scripted) Generate(_ context.Context, _ *chat.Conversation, n int) ([]chat.Message, error) {
	if n <= 0 {
		n = 1
	}

	responses := make([]chat.Message, n)
	for i := range responses {
		responses[i] = chat.NewAssistantMessage(s.responses[s.i%len(s.responses)])
		s.i++
	}
	return responses, nil
}

// Name returns the generator's registry name.
func (s *Scripted) Name() string { return "testgen.Scripted" }
