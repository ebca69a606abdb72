package judge

import (
	"fmt"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// tiktokenTokenizer adapts tiktoken-go's BPE encoder to the Tokenizer
// interface. Encoders are cached per model id process-wide since
// constructing one re-parses the BPE rank file.
type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

var (
	tokenizerMu    sync.Mutex
	tokenizerCache = make(map[string]*tiktokenTokenizer)
)

// NewTokenizer returns the canonical tokenizer for the given judge model
// id, constructing and caching it on first use.
func NewTokenizer(modelID string) (Tokenizer, error) {
	tokenizerMu.Lock()
	defer tokenizerMu.Unlock()

	if t, ok := tokenizerCache[modelID]; ok {
		return t, nil
	}

	enc, err := tiktoken.EncodingForModel(modelID)
	if err != nil {
		return nil, fmt.Errorf("judge: no tokenizer for model %q: %w", modelID, err)
	}

	t := &tiktokenTokenizer{enc: enc}
	tokenizerCache[modelID] = t
	return t, nil
}

// Encode returns token ids alongside their printable surface forms, the
// only grain at which reward is ever attributed.
func (t *tiktokenTokenizer) Encode(text string) ([]int, []string, error) {
	ids := t.enc.Encode(text, nil, nil)
	surfaces := make([]string, len(ids))
	for i, id := range ids {
		surfaces[i] = t.enc.Decode([]int{id})
	}
	return ids, surfaces, nil
}
