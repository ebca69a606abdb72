package interp

import (
	"context"
	"fmt"

	"github.com/xentlabs/xent/pkg/event"
	"github.com/xentlabs/xent/pkg/xdl"
)

// Elicitor is the Player Adapter's surface as seen by the interpreter: on
// an elicit() op the interpreter hands over a register snapshot and the
// round's since-events and gets back response text, already truncated to
// max_tokens in the judge's tokenizer.
type Elicitor interface {
	Elicit(ctx context.Context, snapshot map[string]string, since event.Log, fullHistory event.Log, varName string, maxTokens int) (string, error)
}

// Outcome is the terminal status of one round.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeStuck
)

// RoundResult is everything the orchestrator needs from one round.
type RoundResult struct {
	Index   int
	Events  event.Log
	Total   float64
	Arms    int
	Outcome Outcome
}

// Interpreter drives one trial's program across its configured rounds. It
// exclusively owns its register file and event log for the trial's
// lifetime.
type Interpreter struct {
	prog         *xdl.Program
	roundStart   int // index into prog.Ops where the per-round section begins
	maxRounds    int
	maxEnsureCap int

	mapRegs map[string]string // frozen bindings from the map prefix
	regs    *RegisterFile

	elicitor Elicitor
	evalCtx  EvalContext

	fullHistory event.Log
}

// New builds an Interpreter. roundStart is the index of the first op
// after the shared map prefix (those ops are expected to already have run
// to populate mapRegs, typically by the map generator). maxEnsureCap
// bounds consecutive failures of the same ensure before a round is
// marked stuck.
func New(prog *xdl.Program, roundStart int, mapRegs map[string]string, maxRounds, maxEnsureCap int, elicitor Elicitor, evalCtx EvalContext) *Interpreter {
	return &Interpreter{
		prog:         prog,
		roundStart:   roundStart,
		maxRounds:    maxRounds,
		maxEnsureCap: maxEnsureCap,
		mapRegs:      mapRegs,
		regs:         NewRegisterFile(),
		elicitor:     elicitor,
		evalCtx:      evalCtx,
	}
}

// RunTrial executes every round up to maxRounds and returns the per-round
// results, in round order.
func (in *Interpreter) RunTrial(ctx context.Context) ([]RoundResult, error) {
	results := make([]RoundResult, 0, in.maxRounds)
	for round := 0; round < in.maxRounds; round++ {
		res, err := in.runRound(ctx, round)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// runRound executes a single round: reset state, run ops from roundStart
// to end of program, with ensure-triggered rollback handled inline.
func (in *Interpreter) runRound(ctx context.Context, round int) (RoundResult, error) {
	in.regs.Reset(in.mapRegs)

	var log event.Log
	started := event.RoundStarted{RoundIndex: round}
	log.Append(started)
	in.fullHistory.Append(started)

	ensureRetries := make(map[int]int) // ensure line -> consecutive failures at that ensure

	pc := in.roundStart
	// beaconMark tracks the register-journal position at the most
	// recently executed beacon(), for rollback.
	beaconMark := in.regs.Mark()
	stuck := false

sideloop:
	for pc < len(in.prog.Ops) {
		select {
		case <-ctx.Done():
			return RoundResult{}, ctx.Err()
		default:
		}

		op := in.prog.Ops[pc]
		switch op.Kind {
		case xdl.OpAssign:
			v, err := Eval(ctx, op.AssignExpr, in.regs, in.evalCtx)
			if err != nil {
				return RoundResult{}, err
			}
			text, err := v.AsText()
			if err != nil {
				return RoundResult{}, fmt.Errorf("interp: assign(%s=...) at line %d: %w", op.AssignName, op.Line, err)
			}
			in.regs.Set(op.AssignName, text)

		case xdl.OpReveal:
			values := make([]event.RevealValue, 0, len(op.RevealNames))
			for _, name := range op.RevealNames {
				text, _ := in.regs.Get(name)
				values = append(values, event.RevealValue{Name: name, Text: text})
			}
			e := event.Reveal{Values: values}
			e.L = op.Line
			log.Append(e)
			in.fullHistory.Append(e)

		case xdl.OpElicit:
			reqSnapshot := in.regs.Snapshot()
			req := event.ElicitRequest{Var: op.ElicitVar, MaxTokens: op.ElicitMaxTokens, Registers: reqSnapshot}
			req.L = op.Line
			log.Append(req)
			in.fullHistory.Append(req)

			var resp string
			if op.ElicitMaxTokens != 0 {
				// max_tokens = 0 binds the empty string without ever
				// reaching the player back-end.
				var err error
				resp, err = in.elicitor.Elicit(ctx, reqSnapshot, log, in.fullHistory, op.ElicitVar, op.ElicitMaxTokens)
				if err != nil {
					return RoundResult{}, err
				}
			}
			in.regs.Set(op.ElicitVar, resp)

			respEvt := event.ElicitResponse{Var: op.ElicitVar, ResponseText: resp}
			respEvt.L = op.Line
			log.Append(respEvt)
			in.fullHistory.Append(respEvt)

		case xdl.OpBeacon:
			beaconMark = in.regs.Mark()

		case xdl.OpEnsure:
			v, err := Eval(ctx, op.EnsureExpr, in.regs, in.evalCtx)
			if err != nil {
				return RoundResult{}, err
			}
			if v.Kind != VBool {
				return RoundResult{}, fmt.Errorf("interp: ensure(...) at line %d did not evaluate to a boolean", op.Line)
			}
			if v.Bool {
				break
			}

			ensureRetries[op.Line]++
			if ensureRetries[op.Line] > in.maxEnsureCap {
				stuck = true
				break sideloop
			}

			fe := event.FailedEnsure{BeaconLine: op.BeaconLine, EnsureResults: []bool{v.Bool}}
			fe.L = op.Line
			in.fullHistory.Append(fe)

			in.regs.RollbackTo(beaconMark)
			log = rollbackLog(log, op.BeaconLine)
			log.Append(fe)

			if op.BeaconLine == 0 {
				pc = in.roundStart
			} else {
				pc = indexOfLine(in.prog.Ops, op.BeaconLine) + 1
			}
			continue

		case xdl.OpReward:
			v, err := Eval(ctx, op.RewardExpr, in.regs, in.evalCtx)
			if err != nil {
				return RoundResult{}, err
			}
			if v.Kind != VXent {
				return RoundResult{}, fmt.Errorf("interp: reward(...) at line %d did not evaluate to a TokenXent (text, boolean and normalized nex() values cannot be rewarded)", op.Line)
			}
			e := event.Reward{Value: v.Xent}
			e.L = op.Line
			log.Append(e)
			in.fullHistory.Append(e)
		}

		pc++
	}

	finished := event.RoundFinished{RoundIndex: round, Stuck: stuck}
	log.Append(finished)
	in.fullHistory.Append(finished)

	outcome := OutcomeCompleted
	if stuck {
		outcome = OutcomeStuck
	}

	return RoundResult{
		Index:   round,
		Events:  log,
		Total:   log.RewardTotal(),
		Arms:    log.CountKind(event.KindElicitResponse),
		Outcome: outcome,
	}, nil
}

// rollbackLog discards every event recorded since the beacon at
// beaconLine, mirroring RegisterFile.RollbackTo for the event log. Events
// up to and including round_started and the beacon's own op line survive,
// as do the failed_ensure records of earlier rollbacks.
func rollbackLog(log event.Log, beaconLine int) event.Log {
	cut := len(log)
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Line() <= beaconLine || log[i].Kind() == event.KindFailedEnsure {
			break
		}
		cut = i
	}
	return log[:cut]
}

func indexOfLine(ops []xdl.Op, line int) int {
	for i, op := range ops {
		if op.Line == line {
			return i
		}
	}
	return 0
}
