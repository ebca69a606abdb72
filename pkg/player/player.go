// Package player implements the Player Adapter: it turns an elicit_request
// event into a chat transcript via a user-authored presentation function,
// calls the player back-end, and extracts the move.
package player

import (
	"context"
	"fmt"
	"regexp"

	"github.com/xentlabs/xent/pkg/chat"
	"github.com/xentlabs/xent/pkg/event"
	"github.com/xentlabs/xent/pkg/retry"
	"github.com/xentlabs/xent/pkg/xenterr"
)

// Metadata carries the bits of static context a presentation function may
// want beyond the event log: the game name and the round/trial identity.
type Metadata struct {
	Game      string
	PlayerID  string
	MapSeed   string
	RoundIdx  int
	MaxRounds int
}

// Presenter renders the current round state into a chat transcript. The
// runtime never inspects the transcript's content, only that it is
// non-empty; ctx is an opaque, presentation-function-owned value threaded
// across calls within a trial.
type Presenter func(snapshot map[string]string, since event.Log, meta Metadata, fullHistory event.Log, ctx any) (chat.Conversation, any, error)

// Generator is the capability surface of a player back-end, matching the
// generator registry's Generate contract.
type Generator interface {
	Generate(ctx context.Context, conv *chat.Conversation, n int) ([]chat.Message, error)
	Name() string
}

// Tokenizer is the judge's canonical tokenizer, used only to truncate a
// move to its max_tokens budget before it's bound to a register.
type Tokenizer interface {
	Encode(text string) (ids []int, surfaces []string, err error)
}

var moveRe = regexp.MustCompile(`(?s)<move>(.*?)</move>`)

// ExtractMove returns the contents of the last <move>...</move> fragment
// in text, or "" if none is present.
func ExtractMove(text string) string {
	matches := moveRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

// Adapter wires a Presenter to a specific player's Generator and the
// judge's tokenizer, and implements interp.Elicitor.
type Adapter struct {
	Present    Presenter
	Backend    Generator
	Tokenizer  Tokenizer
	Meta       Metadata
	RetryCfg   retry.Config
	MaxTokensN int // number of candidate completions requested per call, usually 1

	ctx       any // presentation context threaded across calls in this trial
	presented int // count of round-log events already shown to the presenter this round
}

// NewAdapter builds an Adapter for one trial's player.
func NewAdapter(present Presenter, backend Generator, tokenizer Tokenizer, meta Metadata, retryCfg retry.Config) *Adapter {
	return &Adapter{
		Present:    present,
		Backend:    backend,
		Tokenizer:  tokenizer,
		Meta:       meta,
		RetryCfg:   retryCfg,
		MaxTokensN: 1,
	}
}

// Elicit implements interp.Elicitor. It presents the round state, calls
// the back-end with retry, extracts the move, and truncates it to
// maxTokens under the judge's tokenizer.
func (a *Adapter) Elicit(ctx context.Context, snapshot map[string]string, since, fullHistory event.Log, varName string, maxTokens int) (string, error) {
	// since is the whole round's log to date; a new round's log always
	// starts shorter than whatever we last presented, which is how a
	// round boundary is detected without the interpreter telling us.
	if len(since) < a.presented {
		a.presented = 0
	}
	sinceEvents := since.Since(a.presented)
	a.presented = len(since)

	conv, newCtx, err := a.present(snapshot, sinceEvents, fullHistory)
	if err != nil {
		return "", &xenterr.PlayerUnavailable{Cause: &xenterr.PresentationError{Cause: err}}
	}
	a.ctx = newCtx

	if len(conv.Turns) == 0 && conv.System == nil {
		return "", &xenterr.PlayerUnavailable{Cause: fmt.Errorf("presentation function produced an empty transcript")}
	}

	var messages []chat.Message
	err = retry.Do(ctx, a.RetryCfg, func() error {
		msgs, callErr := a.Backend.Generate(ctx, &conv, a.candidateCount())
		if callErr != nil {
			return callErr
		}
		messages = msgs
		return nil
	})
	if err != nil {
		return "", &xenterr.PlayerUnavailable{Cause: err}
	}
	if len(messages) == 0 {
		return "", nil
	}

	move := ExtractMove(messages[0].Content)
	return a.truncate(move, maxTokens), nil
}

func (a *Adapter) candidateCount() int {
	if a.MaxTokensN <= 0 {
		return 1
	}
	return a.MaxTokensN
}

// present wraps the presentation function call in a panic recovery so a
// user-authored presentation function can never crash the trial; a panic
// is promoted to a PresentationError like any other failure.
func (a *Adapter) present(snapshot map[string]string, since, fullHistory event.Log) (conv chat.Conversation, newCtx any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("presentation function panicked: %v", r)
		}
	}()
	return a.Present(snapshot, since, a.Meta, fullHistory, a.ctx)
}

// truncate cuts text down to at most maxTokens tokens under the judge's
// tokenizer, rejoining surfaces so the truncated text's tokenization
// still matches what the judge will later score.
func (a *Adapter) truncate(text string, maxTokens int) string {
	if maxTokens == 0 {
		return ""
	}
	if a.Tokenizer == nil {
		return text
	}
	_, surfaces, err := a.Tokenizer.Encode(text)
	if err != nil || len(surfaces) <= maxTokens {
		return text
	}
	out := ""
	for _, s := range surfaces[:maxTokens] {
		out += s
	}
	return out
}
