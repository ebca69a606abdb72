// Package judge implements the Judge Gateway: a single process-wide
// wrapper around a causal language model and its tokenizer, exposing
// tokenize/xent/xent_diff/generate to the interpreter and map generator.
// It is the only component in this tree that knows about tokenization.
package judge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/xentlabs/xent/pkg/retry"
	"github.com/xentlabs/xent/pkg/xent"
	"github.com/xentlabs/xent/pkg/xenterr"
)

// Gateway is the capability surface the interpreter and map generator use.
// Every method is safe for concurrent use.
type Gateway interface {
	Tokenize(ctx context.Context, text string) ([]int, []string, error)
	Xent(ctx context.Context, text, context_ string) (xent.TokenXent, error)
	XentDiff(ctx context.Context, text, context1, context2 string) (xent.TokenXent, error)
	Generate(ctx context.Context, prompt string, maxTokens int, seed int64, options map[string]any) (string, error)
}

// ScoringBackend is the pluggable back-end a Gateway delegates to. It
// mirrors the generator Registry pattern: different judge models
// (OpenAI logprobs, a scripted test double, eventually a local model)
// register a factory under a name.
type ScoringBackend interface {
	// Score returns, for promptTokens (context tokens followed by the
	// scored text's tokens), the per-token −log2 P(token_i | prefix) for
	// every token of the scored text (i.e. the tail after contextLen).
	Score(ctx context.Context, promptTokens []int, contextLen int) ([]float64, error)
	// Generate samples continuation text.
	Generate(ctx context.Context, prompt string, maxTokens int, seed int64, options map[string]any) (string, error)
}

// Tokenizer is the canonical tokenizer every Gateway call routes through.
// Two texts that tokenize identically are equivalent for scoring.
type Tokenizer interface {
	Encode(text string) (ids []int, surfaces []string, err error)
}

// gateway is the default Gateway implementation: a tokenizer, a scoring
// back-end, a retry policy, and an internal batching dispatch queue so
// concurrent callers never deadlock against the gateway itself.
type gateway struct {
	tokenizer Tokenizer
	backend   ScoringBackend
	retryCfg  retry.Config

	reqs  chan scoreRequest
	once  sync.Once
	cache *scoreCache
}

type scoreRequest struct {
	ctx        context.Context
	tokens     []int
	contextLen int
	resultCh   chan<- scoreResult
}

type scoreResult struct {
	bits []float64
	err  error
}

// New builds a Gateway around the given tokenizer and scoring back-end.
// queueDepth bounds the internal dispatch channel; 0 picks a sane default.
func New(tokenizer Tokenizer, backend ScoringBackend, cfg retry.Config, queueDepth int) Gateway {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	g := &gateway{
		tokenizer: tokenizer,
		backend:   backend,
		retryCfg:  cfg,
		reqs:      make(chan scoreRequest, queueDepth),
		cache:     newScoreCache(),
	}
	g.once.Do(func() { go g.dispatchLoop() })
	return g
}

// dispatchLoop is the single goroutine that actually calls the scoring
// back-end. Every exported call feeds requests through this channel
// instead of calling the back-end directly, so a back-end that batches
// internally never has to worry about being re-entered by its own
// caller: the call graph through the channel is acyclic by construction.
func (g *gateway) dispatchLoop() {
	for req := range g.reqs {
		bits, err := g.scoreWithRetry(req.ctx, req.tokens, req.contextLen)
		req.resultCh <- scoreResult{bits: bits, err: err}
	}
}

func (g *gateway) scoreWithRetry(ctx context.Context, tokens []int, contextLen int) ([]float64, error) {
	var bits []float64
	err := retry.Do(ctx, g.retryCfg, func() error {
		b, err := g.backend.Score(ctx, tokens, contextLen)
		if err != nil {
			return err
		}
		bits = b
		return nil
	})
	if err != nil {
		return nil, &xenterr.JudgeUnavailable{Cause: err}
	}
	return bits, nil
}

func (g *gateway) submit(ctx context.Context, tokens []int, contextLen int) ([]float64, error) {
	resultCh := make(chan scoreResult, 1)
	select {
	case g.reqs <- scoreRequest{ctx: ctx, tokens: tokens, contextLen: contextLen, resultCh: resultCh}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-resultCh:
		return res.bits, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Tokenize returns the deterministic token ids and surface forms for text.
func (g *gateway) Tokenize(ctx context.Context, text string) ([]int, []string, error) {
	ids, surfaces, err := g.tokenizer.Encode(text)
	if err != nil {
		return nil, nil, &xenterr.JudgeUnavailable{Cause: err}
	}
	return ids, surfaces, nil
}

// Xent scores text conditioned on context: for each token of text,
// -log2 P(token_i | context + token_1..i-1). An empty context conditions
// on the model's beginning-of-sequence marker only.
func (g *gateway) Xent(ctx context.Context, text, context_ string) (xent.TokenXent, error) {
	if cached, ok := g.cache.get(text, context_); ok {
		return cached, nil
	}

	ctxIDs, _, err := g.Tokenize(ctx, context_)
	if err != nil {
		return nil, err
	}
	textIDs, textSurfaces, err := g.Tokenize(ctx, text)
	if err != nil {
		return nil, err
	}

	full := append(append([]int{}, ctxIDs...), textIDs...)
	bits, err := g.submit(ctx, full, len(ctxIDs))
	if err != nil {
		return nil, err
	}
	if len(bits) != len(textSurfaces) {
		return nil, &xenterr.ScoringAlignmentError{Text: text}
	}
	result := xent.New(textSurfaces, bits)
	g.cache.set(text, context_, result)
	return result, nil
}

// XentDiff computes the token-aligned difference xent(text|context1) -
// xent(text|context2). Both runs must tokenize text identically.
func (g *gateway) XentDiff(ctx context.Context, text, context1, context2 string) (xent.TokenXent, error) {
	a, err := g.Xent(ctx, text, context1)
	if err != nil {
		return nil, err
	}
	b, err := g.Xent(ctx, text, context2)
	if err != nil {
		return nil, err
	}
	if !xent.Aligned(a, b) {
		return nil, &xenterr.ScoringAlignmentError{Text: text}
	}
	return xent.Diff(a, b), nil
}

// Generate samples continuation text from the scoring back-end's
// generative path, used by the map generator and JUDGE-mode story text.
func (g *gateway) Generate(ctx context.Context, prompt string, maxTokens int, seed int64, options map[string]any) (string, error) {
	var out string
	err := retry.Do(ctx, g.retryCfg, func() error {
		text, err := g.backend.Generate(ctx, prompt, maxTokens, seed, options)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", &xenterr.JudgeUnavailable{Cause: err}
	}
	return out, nil
}

// cacheKey hashes (text, context) pairs; kept for back-ends that want a
// stable lookup key for memoizing scoring calls, mirroring the teacher's
// sha256-keyed judge result cache.
func cacheKey(text, context_ string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s|%d:%s", len(context_), context_, len(text), text)
	return hex.EncodeToString(h.Sum(nil))
}
