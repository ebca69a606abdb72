// Package xent provides the TokenXent type: a token-aligned cross-entropy
// value, the canonical reward currency of a game.
package xent

import "encoding/json"

// TokenScore is one token's surface form paired with its cross-entropy in
// bits under the judge model.
type TokenScore struct {
	Surface string
	Bits    float64
}

// TokenXent is a token-aligned sequence of (surface, xent) pairs. It is the
// value carried by a reward event.
type TokenXent []TokenScore

// New builds a TokenXent from parallel surface and bits slices. The two
// slices must have equal length; callers that violate this get a
// zero-length result rather than a panic, since alignment is always
// established by the judge gateway which already guarantees the lengths
// match.
func New(surfaces []string, bits []float64) TokenXent {
	n := len(surfaces)
	if len(bits) < n {
		n = len(bits)
	}
	tx := make(TokenXent, n)
	for i := 0; i < n; i++ {
		tx[i] = TokenScore{Surface: surfaces[i], Bits: bits[i]}
	}
	return tx
}

// Total returns the sum of the bits across all tokens.
func (t TokenXent) Total() float64 {
	var sum float64
	for _, ts := range t {
		sum += ts.Bits
	}
	return sum
}

// Surface concatenates every token's surface string, which by the
// tokenization round-trip law must equal the scored text.
func (t TokenXent) Surface() string {
	var b []byte
	for _, ts := range t {
		b = append(b, ts.Surface...)
	}
	return string(b)
}

// Slice returns the token range [from, to), a sub-sequence of TokenXent.
// Out-of-range bounds are clamped rather than panicking, since callers
// slice by externally-supplied max_tokens counts that may exceed length.
func (t TokenXent) Slice(from, to int) TokenXent {
	if from < 0 {
		from = 0
	}
	if to > len(t) {
		to = len(t)
	}
	if from >= to {
		return TokenXent{}
	}
	out := make(TokenXent, to-from)
	copy(out, t[from:to])
	return out
}

// Diff returns the token-aligned difference a - b. Both sequences must
// have identical length and identical surface forms at every index; callers
// (the judge gateway) are responsible for raising ScoringAlignmentError
// before calling Diff when that does not hold.
func Diff(a, b TokenXent) TokenXent {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make(TokenXent, n)
	for i := 0; i < n; i++ {
		out[i] = TokenScore{Surface: a[i].Surface, Bits: a[i].Bits - b[i].Bits}
	}
	return out
}

// Aligned reports whether a and b tokenize identically: same length and
// same surface string at every position. This is the alignment check the
// judge gateway runs before computing xent_diff/dex.
func Aligned(a, b TokenXent) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Surface != b[i].Surface {
			return false
		}
	}
	return true
}

// tokenScoreJSON is the wire shape for one TokenScore: a 2-element pair,
// matching spec's "serialises to JSON as that pair list".
type tokenScoreJSON [2]any

// MarshalJSON encodes TokenXent as a list of [surface, bits] pairs.
func (t TokenXent) MarshalJSON() ([]byte, error) {
	pairs := make([]tokenScoreJSON, len(t))
	for i, ts := range t {
		pairs[i] = tokenScoreJSON{ts.Surface, ts.Bits}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON decodes TokenXent from a list of [surface, bits] pairs.
func (t *TokenXent) UnmarshalJSON(data []byte) error {
	var raw []struct {
		Surface string
		Bits    float64
	}
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	raw = make([]struct {
		Surface string
		Bits    float64
	}, len(pairs))
	for i, pair := range pairs {
		if err := json.Unmarshal(pair[0], &raw[i].Surface); err != nil {
			return err
		}
		if err := json.Unmarshal(pair[1], &raw[i].Bits); err != nil {
			return err
		}
	}
	out := make(TokenXent, len(raw))
	for i, r := range raw {
		out[i] = TokenScore{Surface: r.Surface, Bits: r.Bits}
	}
	*t = out
	return nil
}
