// Package human implements a human-in-the-loop player back-end: it
// prints the conversation's last prompt to an output writer and reads
// the player's move from an input reader (stdin by default).
package human

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/xentlabs/xent/pkg/chat"
	"github.com/xentlabs/xent/pkg/generators"
	"github.com/xentlabs/xent/pkg/registry"
)

func init() {
	generators.Register("human", NewHuman)
}

// Human is a generator that relays moves to and from a person, used for
// benchmarking/demoing XENT games interactively.
type Human struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewHuman creates a Human generator reading from stdin and writing to
// stdout, the only configuration a player config needs in practice.
func NewHuman(_ registry.Config) (generators.Generator, error) {
	return NewHumanIO(os.Stdin, os.Stdout), nil
}

// NewHumanIO creates a Human generator over arbitrary reader/writer,
// used by tests to drive the prompt without a real terminal.
func NewHumanIO(r io.Reader, w io.Writer) *Human {
	return &Human{reader: bufio.NewReader(r), writer: w}
}

// Generate prints the conversation's last prompt and reads n moves, one
// line each, from the reader. A human player cannot answer n>1 calls
// concurrently, so lines are read sequentially.
func (h *Human) Generate(_ context.Context, conv *chat.Conversation, n int) ([]chat.Message, error) {
	if n <= 0 {
		n = 1
	}

	prompt := conv.LastPrompt()
	responses := make([]chat.Message, 0, n)

	for i := 0; i < n; i++ {
		fmt.Fprintf(h.writer, "%s\n> ", prompt)

		line, err := h.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("human: failed to read move: %w", err)
		}
		if err == io.EOF && line == "" && len(responses) > 0 {
			break
		}

		responses = append(responses, chat.NewAssistantMessage(trimNewline(line)))

		if err == io.EOF {
			break
		}
	}

	return responses, nil
}

// Name returns the generator's registry name.
func (h *Human) Name() string { return "human" }

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
