package interp

import (
	"fmt"

	"github.com/xentlabs/xent/pkg/xent"
)

// ValueKind discriminates the evaluator's runtime value union.
type ValueKind int

const (
	VText ValueKind = iota
	VXent
	VBool
	VRatio
)

// Value is the tagged-union result of evaluating an xdl.Expr. Ratio holds
// nex()'s dimensionless per-token result, kept separate from VXent so
// that reward(nex(...)) is rejected at evaluation time: ratios are never
// bit-valued and must never be summed into a reward.
type Value struct {
	Kind  ValueKind
	Text  string
	Xent  xent.TokenXent
	Bool  bool
	Ratio []float64
}

func textValue(s string) Value { return Value{Kind: VText, Text: s} }
func xentValue(tx xent.TokenXent) Value { return Value{Kind: VXent, Xent: tx} }
func boolValue(b bool) Value { return Value{Kind: VBool, Bool: b} }
func ratioValue(r []float64) Value { return Value{Kind: VRatio, Ratio: r} }

// AsText returns the value's text, or an error if it isn't a text value.
func (v Value) AsText() (string, error) {
	if v.Kind != VText {
		return "", fmt.Errorf("interp: expected text value, got %v", v.Kind)
	}
	return v.Text, nil
}

// numeric coerces a value to a single float64 for use in comparisons:
// a TokenXent's bit total, or a ratio's mean.
func (v Value) numeric() (float64, error) {
	switch v.Kind {
	case VXent:
		return v.Xent.Total(), nil
	case VRatio:
		if len(v.Ratio) == 0 {
			return 0, nil
		}
		sum := 0.0
		for _, r := range v.Ratio {
			sum += r
		}
		return sum / float64(len(v.Ratio)), nil
	default:
		return 0, fmt.Errorf("interp: value of kind %v is not numeric", v.Kind)
	}
}
