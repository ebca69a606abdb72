// Package interp implements the Game Interpreter: a small virtual machine
// that steps an xdl.Program over a register file, driving elicit/reveal/
// ensure/reward semantics and emitting the event log.
package interp

// writeEntry is one register mutation recorded since the last beacon.
// hadPrev/prevText let a rollback restore the exact prior state,
// including "this name was unbound before".
type writeEntry struct {
	name     string
	hadPrev  bool
	prevText string
}

// RegisterFile is the per-trial identifier -> text mapping. Values are
// never mutated in place: Set always replaces the whole string, and
// rollback is implemented via an append-only write journal rather than
// deep-copying the map at every beacon.
type RegisterFile struct {
	values  map[string]string
	journal []writeEntry
}

// NewRegisterFile returns an empty register file.
func NewRegisterFile() *RegisterFile {
	return &RegisterFile{values: make(map[string]string)}
}

// Get returns the bound value for name, or "" and false if unbound.
func (r *RegisterFile) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Set binds name to text, recording the prior state in the journal so it
// can be undone by RollbackTo.
func (r *RegisterFile) Set(name, text string) {
	prev, had := r.values[name]
	r.journal = append(r.journal, writeEntry{name: name, hadPrev: had, prevText: prev})
	r.values[name] = text
}

// Mark returns a journal position usable with RollbackTo, taken when a
// beacon() is executed.
func (r *RegisterFile) Mark() int {
	return len(r.journal)
}

// RollbackTo undoes every write recorded after mark, restoring each
// register to its value at that mark (or unbinding it if it had none).
func (r *RegisterFile) RollbackTo(mark int) {
	for i := len(r.journal) - 1; i >= mark; i-- {
		e := r.journal[i]
		if e.hadPrev {
			r.values[e.name] = e.prevText
		} else {
			delete(r.values, e.name)
		}
	}
	r.journal = r.journal[:mark]
}

// Snapshot returns a copy of the current bindings, used for
// elicit_request's register snapshot and for seeding each round from the
// frozen map prefix.
func (r *RegisterFile) Snapshot() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Reset replaces the live bindings with a copy of base and clears the
// journal, used at round entry to restore the map prefix's bindings
// without re-running the prefix ops.
func (r *RegisterFile) Reset(base map[string]string) {
	r.values = make(map[string]string, len(base))
	for k, v := range base {
		r.values[k] = v
	}
	r.journal = nil
}
