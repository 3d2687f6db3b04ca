package solver

import (
	"strings"
	"testing"
)

func TestExitStatusSuccess(t *testing.T) {
	tests := []struct {
		name   string
		status ExitStatus
		want   bool
	}{
		{"Satisfiable and exhausted", 30, true},
		{"Satisfiable and exhausted plus interrupted", 31, true},
		{"Satisfiable only", 10, false},
		{"Exhausted only (unsatisfiable)", 20, false},
		{"Error bit set", 65, false},
		{"Error bit alongside success bits", 95, false},
		{"Memory exceeded", 33, false},
		{"Not run", 128, false},
		{"Zero (unknown)", 0, false},
		{"Interrupted only", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Success(); got != tt.want {
				t.Errorf("ExitStatus(%d).Success() = %v, want %v", int(tt.status), got, tt.want)
			}
		})
	}
}

func TestFailingConditions(t *testing.T) {
	if got := ExitStatus(65).FailingConditions(); !strings.Contains(got, "error") {
		t.Errorf("FailingConditions(65) = %q, want mention of error", got)
	}
	if got := ExitStatus(20).FailingConditions(); !strings.Contains(got, "not satisfiable") {
		t.Errorf("FailingConditions(20) = %q, want mention of not satisfiable", got)
	}
	if got := ExitStatus(10).FailingConditions(); !strings.Contains(got, "search not exhausted") {
		t.Errorf("FailingConditions(10) = %q, want mention of exhaustion", got)
	}
}
