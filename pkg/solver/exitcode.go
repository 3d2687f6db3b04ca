package solver

import "strings"

// ExitStatus decodes the solver's process exit code, which is a bitfield in
// the clasp convention.
type ExitStatus int

// Named status bits.
const (
	StatusInterrupted ExitStatus = 1
	StatusSatisfiable ExitStatus = 10
	StatusExhausted   ExitStatus = 20
	StatusMemory      ExitStatus = 33
	StatusError       ExitStatus = 65
	StatusNotRun      ExitStatus = 128
)

// Has reports whether every bit of the named status is set.
func (s ExitStatus) Has(bit ExitStatus) bool {
	return s&bit == bit
}

// Success reports whether the run completed cleanly: the satisfiable and
// exhausted bits set and the error bit clear. Other bits do not matter.
func (s ExitStatus) Success() bool {
	return s.Has(StatusSatisfiable) && s.Has(StatusExhausted) && !s.Has(StatusError)
}

// FailingConditions names the bits responsible for a non-success status, for
// diagnostic logging.
func (s ExitStatus) FailingConditions() string {
	var conds []string
	if s.Has(StatusError) {
		conds = append(conds, "error")
	}
	if s.Has(StatusMemory) {
		conds = append(conds, "memory exceeded")
	}
	if s.Has(StatusInterrupted) {
		conds = append(conds, "interrupted")
	}
	if s.Has(StatusNotRun) {
		conds = append(conds, "not run")
	}
	if !s.Has(StatusSatisfiable) {
		conds = append(conds, "not satisfiable")
	}
	if !s.Has(StatusExhausted) {
		conds = append(conds, "search not exhausted")
	}
	if len(conds) == 0 {
		return "none"
	}
	return strings.Join(conds, ", ")
}
