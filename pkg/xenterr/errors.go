// Package xenterr defines the error taxonomy shared across the runtime:
// parse-time, gateway, adapter, and trial-level failures that the
// orchestrator and scheduler branch on.
package xenterr

import "fmt"

// ParseError is a fatal, positional XDL parse failure. The bench command
// returns it before any trial runs, so a parse failure in one game stops
// the whole run and no result file is written for that game's trials.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("xdl parse error at line %d: %s", e.Line, e.Msg)
}

// JudgeUnavailable is raised by the Judge Gateway after its retry budget
// for a back-end call (timeout, OOM, HTTP 5xx) is exhausted.
type JudgeUnavailable struct {
	Cause error
}

func (e *JudgeUnavailable) Error() string {
	return fmt.Sprintf("judge unavailable: %v", e.Cause)
}

func (e *JudgeUnavailable) Unwrap() error { return e.Cause }

// ScoringAlignmentError is raised when the judge produces inconsistent
// tokenization across two scoring calls that must be token-aligned (e.g.
// xent_diff, dex). This is never recovered — a bug or model nondeterminism.
type ScoringAlignmentError struct {
	Text string
}

func (e *ScoringAlignmentError) Error() string {
	return fmt.Sprintf("scoring alignment error: inconsistent tokenization for %q", e.Text)
}

// PlayerUnavailable is raised by the Player Adapter after its retry budget
// for a back-end call is exhausted, or when the presentation function
// panics or errors (promoted from PresentationError).
type PlayerUnavailable struct {
	Cause error
}

func (e *PlayerUnavailable) Error() string {
	return fmt.Sprintf("player unavailable: %v", e.Cause)
}

func (e *PlayerUnavailable) Unwrap() error { return e.Cause }

// PresentationError wraps a panic or error raised by a user-authored
// presentation function. The runtime always promotes it to
// PlayerUnavailable before it reaches the trial orchestrator.
type PresentationError struct {
	Cause error
}

func (e *PresentationError) Error() string {
	return fmt.Sprintf("presentation function failed: %v", e.Cause)
}

func (e *PresentationError) Unwrap() error { return e.Cause }

// EnsureExceeded is a non-fatal, round-level outcome: an ensure's retry
// cap was exceeded. The round is marked stuck; the trial continues to the
// next round if any remain.
type EnsureExceeded struct {
	Line    int
	Retries int
}

func (e *EnsureExceeded) Error() string {
	return fmt.Sprintf("ensure at line %d exceeded %d retries", e.Line, e.Retries)
}

// TrialTimeout is a fatal, per-trial cancellation: the trial's overall
// wall-clock cap expired.
type TrialTimeout struct {
	Cause error
}

func (e *TrialTimeout) Error() string {
	return fmt.Sprintf("trial timeout: %v", e.Cause)
}

func (e *TrialTimeout) Unwrap() error { return e.Cause }
