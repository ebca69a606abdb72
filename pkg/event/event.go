// Package event defines the append-only round event log. Events are the
// only input to a game's presentation function: the interpreter emits
// them in execution order and never lets a presentation function see
// anything else about its internal state.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/xentlabs/xent/pkg/xent"
)

// Kind discriminates event payloads on the wire and in the log.
type Kind string

const (
	KindElicitRequest  Kind = "elicit_request"
	KindElicitResponse Kind = "elicit_response"
	KindReveal         Kind = "reveal"
	KindReward         Kind = "reward"
	KindFailedEnsure   Kind = "failed_ensure"
	KindRoundStarted   Kind = "round_started"
	KindRoundFinished  Kind = "round_finished"
)

// Event is the sealed interface implemented by every event payload. Line
// is the XDL source line that produced the event; round_started and
// round_finished carry the line of the round boundary itself.
type Event interface {
	Kind() Kind
	Line() int
	isEvent()
}

type base struct {
	L int `json:"line_num"`
}

func (b base) Line() int { return b.L }

// ElicitRequest is emitted when the interpreter suspends to ask the
// player for a move. Registers is a snapshot, not a live reference, so
// presentation functions stay pure with respect to interpreter state.
type ElicitRequest struct {
	base
	Var       string            `json:"var"`
	MaxTokens int               `json:"max_tokens"`
	Registers map[string]string `json:"registers"`
}

func (ElicitRequest) Kind() Kind { return KindElicitRequest }
func (ElicitRequest) isEvent()   {}

// ElicitResponse pairs with the ElicitRequest immediately preceding it in
// the log and carries the text bound to Var.
type ElicitResponse struct {
	base
	Var          string `json:"var"`
	ResponseText string `json:"response_text"`
}

func (ElicitResponse) Kind() Kind { return KindElicitResponse }
func (ElicitResponse) isEvent()   {}

// Reveal carries the bindings named by a reveal() op, in call order.
type Reveal struct {
	base
	Values []RevealValue `json:"values"`
}

// RevealValue is one name/text pair of a Reveal event; a slice rather
// than a map keeps reveal() argument order intact on the wire.
type RevealValue struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (Reveal) Kind() Kind { return KindReveal }
func (Reveal) isEvent()   {}

// Reward carries the TokenXent produced by a reward() op's expression.
type Reward struct {
	base
	Value xent.TokenXent `json:"value"`
}

func (Reward) Kind() Kind { return KindReward }
func (Reward) isEvent()   {}

// FailedEnsure is emitted when an ensure() predicate evaluates false.
// BeaconLine names the rollback target; EnsureResults records the
// predicate's boolean result, for debugging.
type FailedEnsure struct {
	base
	BeaconLine    int    `json:"beacon_line"`
	EnsureResults []bool `json:"ensure_results"`
}

func (FailedEnsure) Kind() Kind { return KindFailedEnsure }
func (FailedEnsure) isEvent()   {}

// RoundStarted opens a round; RoundIndex is zero-based and monotonic
// within a trial.
type RoundStarted struct {
	base
	RoundIndex int `json:"round_index"`
}

func (RoundStarted) Kind() Kind { return KindRoundStarted }
func (RoundStarted) isEvent()   {}

// RoundFinished closes a round. Stuck is true when the round aborted
// because an ensure() exceeded its retry cap rather than completing.
type RoundFinished struct {
	base
	RoundIndex int  `json:"round_index"`
	Stuck      bool `json:"stuck"`
}

func (RoundFinished) Kind() Kind { return KindRoundFinished }
func (RoundFinished) isEvent()   {}

// Log is the ordered, append-only event sequence for one round (or, once
// concatenated by the orchestrator, a whole trial).
type Log []Event

// Append adds an event to the end of the log.
func (l *Log) Append(e Event) {
	*l = append(*l, e)
}

// Since returns the tail of the log starting at index from, used by the
// Player Adapter to compute since-events for a presentation call.
func (l Log) Since(from int) Log {
	if from < 0 {
		from = 0
	}
	if from > len(l) {
		from = len(l)
	}
	return l[from:]
}

// CountKind counts events of the given kind in the log, used for arm and
// iteration bookkeeping (elicit_response and reward counts respectively).
func (l Log) CountKind(k Kind) int {
	n := 0
	for _, e := range l {
		if e.Kind() == k {
			n++
		}
	}
	return n
}

// RewardTotal sums the TokenXent totals of every reward event in the log,
// the round score before cross-round max aggregation.
func (l Log) RewardTotal() float64 {
	total := 0.0
	for _, e := range l {
		if r, ok := e.(Reward); ok {
			total += r.Value.Total()
		}
	}
	return total
}

// wireEvent pairs a kind discriminator with an event. It is not used by
// marshalEvent, which builds the flattened object itself.
type wireEvent struct {
	Type string `json:"type"`
	Event
}

// marshalEvent flattens kind + payload into a single object, e.g.
// {"type":"reward","line_num":4,"value":[...]}.
func marshalEvent(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	out := map[string]json.RawMessage{
		"type": rawString(string(e.Kind())),
	}
	for k, v := range m {
		out[k] = v
	}
	return json.Marshal(out)
}

func rawString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// MarshalJSON implements json.Marshaler for Log, producing a flat array
// of {"type": ..., ...fields} objects.
func (l Log) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, len(l))
	for i, e := range l {
		b, err := marshalEvent(e)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler for Log, dispatching each
// element on its "type" discriminator.
func (l *Log) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Log, 0, len(raws))
	for _, raw := range raws {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return err
		}
		e, err := unmarshalEvent(Kind(head.Type), raw)
		if err != nil {
			return err
		}
		out = append(out, e)
	}
	*l = out
	return nil
}

func unmarshalEvent(k Kind, raw json.RawMessage) (Event, error) {
	switch k {
	case KindElicitRequest:
		var e ElicitRequest
		return e, json.Unmarshal(raw, &e)
	case KindElicitResponse:
		var e ElicitResponse
		return e, json.Unmarshal(raw, &e)
	case KindReveal:
		var e Reveal
		return e, json.Unmarshal(raw, &e)
	case KindReward:
		var e Reward
		return e, json.Unmarshal(raw, &e)
	case KindFailedEnsure:
		var e FailedEnsure
		return e, json.Unmarshal(raw, &e)
	case KindRoundStarted:
		var e RoundStarted
		return e, json.Unmarshal(raw, &e)
	case KindRoundFinished:
		var e RoundFinished
		return e, json.Unmarshal(raw, &e)
	default:
		return nil, fmt.Errorf("event: unknown kind %q", k)
	}
}
