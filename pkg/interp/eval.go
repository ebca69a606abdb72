package interp

import (
	"context"
	"fmt"
	"strings"

	"github.com/xentlabs/xent/pkg/xdl"
	"github.com/xentlabs/xent/pkg/xent"
	"github.com/xentlabs/xent/pkg/xenterr"
)

// ScoringGateway is the slice of the Judge Gateway the evaluator needs.
// Defined locally so this package doesn't have to import judge's full
// surface (Tokenize/Generate included there serve other callers).
type ScoringGateway interface {
	Xent(ctx context.Context, text, context_ string) (xent.TokenXent, error)
	XentDiff(ctx context.Context, text, context1, context2 string) (xent.TokenXent, error)
}

// StorySource supplies the text for story() calls during map-prefix
// evaluation. The map generator decides whether this samples from the
// judge model or reads a COMMUNITY_ARCHIVE entry; the evaluator doesn't
// care which.
type StorySource func(ctx context.Context) (string, error)

// EvalContext bundles everything Eval needs beyond the expression itself.
type EvalContext struct {
	Judge ScoringGateway
	Story StorySource
}

// Eval evaluates expr against regs, using ctx.Judge for xent calls and
// ctx.Story for story().
func Eval(ctx context.Context, expr xdl.Expr, regs *RegisterFile, ec EvalContext) (Value, error) {
	switch e := expr.(type) {
	case xdl.StringLit:
		return textValue(e.Value), nil
	case xdl.Ident:
		v, ok := regs.Get(e.Name)
		if !ok {
			return Value{}, fmt.Errorf("interp: unbound identifier %q", e.Name)
		}
		return textValue(v), nil
	case xdl.Concat:
		return evalConcat(ctx, e, regs, ec)
	case xdl.Compare:
		return evalCompare(ctx, e, regs, ec)
	case xdl.Call:
		return evalCall(ctx, e, regs, ec)
	default:
		return Value{}, fmt.Errorf("interp: unknown expression type %T", expr)
	}
}

func evalConcat(ctx context.Context, e xdl.Concat, regs *RegisterFile, ec EvalContext) (Value, error) {
	left, err := Eval(ctx, e.Left, regs, ec)
	if err != nil {
		return Value{}, err
	}
	right, err := Eval(ctx, e.Right, regs, ec)
	if err != nil {
		return Value{}, err
	}
	lt, err := left.AsText()
	if err != nil {
		return Value{}, fmt.Errorf("interp: left side of + must be text: %w", err)
	}
	rt, err := right.AsText()
	if err != nil {
		return Value{}, fmt.Errorf("interp: right side of + must be text: %w", err)
	}
	return textValue(lt + rt), nil
}

func evalCompare(ctx context.Context, e xdl.Compare, regs *RegisterFile, ec EvalContext) (Value, error) {
	left, err := Eval(ctx, e.Left, regs, ec)
	if err != nil {
		return Value{}, err
	}
	right, err := Eval(ctx, e.Right, regs, ec)
	if err != nil {
		return Value{}, err
	}

	// String equality is allowed for ==; every other combination is
	// compared numerically.
	if e.Op == xdl.CompareEQ && left.Kind == VText && right.Kind == VText {
		return boolValue(left.Text == right.Text), nil
	}

	ln, err := left.numeric()
	if err != nil {
		return Value{}, err
	}
	rn, err := right.numeric()
	if err != nil {
		return Value{}, err
	}

	var result bool
	switch e.Op {
	case xdl.CompareGE:
		result = ln >= rn
	case xdl.CompareLE:
		result = ln <= rn
	case xdl.CompareEQ:
		result = ln == rn
	default:
		return Value{}, fmt.Errorf("interp: unknown comparison operator %q", e.Op)
	}
	return boolValue(result), nil
}

func evalCall(ctx context.Context, e xdl.Call, regs *RegisterFile, ec EvalContext) (Value, error) {
	switch e.Name {
	case "story":
		if ec.Story == nil {
			return Value{}, fmt.Errorf("interp: story() called with no story source configured")
		}
		text, err := ec.Story(ctx)
		if err != nil {
			return Value{}, err
		}
		return textValue(text), nil

	case "remove_common_words":
		if len(e.Args) != 2 {
			return Value{}, fmt.Errorf("interp: remove_common_words(a,b) requires two arguments")
		}
		a, err := evalText(ctx, e.Args[0], regs, ec)
		if err != nil {
			return Value{}, err
		}
		b, err := evalText(ctx, e.Args[1], regs, ec)
		if err != nil {
			return Value{}, err
		}
		return textValue(removeCommonWords(a, b)), nil

	case "xed":
		if len(e.Args) != 1 {
			return Value{}, fmt.Errorf("interp: xed(...) takes exactly one text argument")
		}
		text, err := evalText(ctx, e.Args[0], regs, ec)
		if err != nil {
			return Value{}, err
		}
		context_ := ""
		if e.Context != nil {
			context_, err = evalText(ctx, e.Context, regs, ec)
			if err != nil {
				return Value{}, err
			}
		}
		tx, err := ec.Judge.Xent(ctx, text, context_)
		if err != nil {
			return Value{}, err
		}
		return xentValue(tx), nil

	case "dex":
		if len(e.Args) != 3 {
			return Value{}, fmt.Errorf("interp: dex(text, context_a, context_b) requires exactly three arguments")
		}
		text, err := evalText(ctx, e.Args[0], regs, ec)
		if err != nil {
			return Value{}, err
		}
		ctxA, err := evalText(ctx, e.Args[1], regs, ec)
		if err != nil {
			return Value{}, err
		}
		ctxB, err := evalText(ctx, e.Args[2], regs, ec)
		if err != nil {
			return Value{}, err
		}
		tx, err := ec.Judge.XentDiff(ctx, text, ctxA, ctxB)
		if err != nil {
			return Value{}, err
		}
		return xentValue(tx), nil

	case "nex":
		if len(e.Args) != 1 {
			return Value{}, fmt.Errorf("interp: nex(...) takes exactly one text argument")
		}
		text, err := evalText(ctx, e.Args[0], regs, ec)
		if err != nil {
			return Value{}, err
		}
		context_ := ""
		if e.Context != nil {
			context_, err = evalText(ctx, e.Context, regs, ec)
			if err != nil {
				return Value{}, err
			}
		}
		conditioned, err := ec.Judge.Xent(ctx, text, context_)
		if err != nil {
			return Value{}, err
		}
		unconditioned, err := ec.Judge.Xent(ctx, text, "")
		if err != nil {
			return Value{}, err
		}
		if !xent.Aligned(conditioned, unconditioned) {
			return Value{}, &xenterr.ScoringAlignmentError{Text: text}
		}
		ratio := make([]float64, len(conditioned))
		for i := range conditioned {
			denom := unconditioned[i].Bits
			if denom == 0 {
				ratio[i] = 0
				continue
			}
			ratio[i] = conditioned[i].Bits / denom
		}
		return ratioValue(ratio), nil

	default:
		return Value{}, fmt.Errorf("interp: unknown function %q", e.Name)
	}
}

func evalText(ctx context.Context, expr xdl.Expr, regs *RegisterFile, ec EvalContext) (string, error) {
	v, err := Eval(ctx, expr, regs, ec)
	if err != nil {
		return "", err
	}
	return v.AsText()
}

// removeCommonWords strips every whitespace-delimited word of b out of a,
// case-insensitively, preserving a's original word order and casing.
func removeCommonWords(a, b string) string {
	stop := make(map[string]struct{})
	for _, w := range strings.Fields(b) {
		stop[strings.ToLower(w)] = struct{}{}
	}
	var kept []string
	for _, w := range strings.Fields(a) {
		if _, common := stop[strings.ToLower(w)]; !common {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
