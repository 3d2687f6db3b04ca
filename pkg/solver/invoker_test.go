package solver

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/duynguyendang/cardcalc/pkg/common/errors"
)

// writeStub drops an executable shell script standing in for the solver.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub solver scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "clingo")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755)
	require.NoError(t, err)
	return path
}

func TestRunSuccess(t *testing.T) {
	bin := writeStub(t, `printf 'field(card1,"priority","3").\nSATISFIABLE\n'
exit 30
`)
	inv := NewInvoker(Config{Binary: bin, Timeout: 5 * time.Second})

	facts, err := inv.Run(context.Background(), "main.lp", "card1")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "card1", facts[0].CardKey)
	assert.Equal(t, "priority", facts[0].Field)
	assert.Equal(t, "3", facts[0].Value)
}

func TestRunSolverError(t *testing.T) {
	bin := writeStub(t, `echo 'main.lp:1:1: error: syntax error' >&2
exit 65
`)
	inv := NewInvoker(Config{Binary: bin, Timeout: 5 * time.Second})

	_, err := inv.Run(context.Background(), "main.lp", "card1")
	assert.ErrorIs(t, err, apperr.ErrSolverFailed)
}

func TestRunUnsatisfiable(t *testing.T) {
	// Exhausted without the satisfiable bit: UNSAT exit code 20.
	bin := writeStub(t, `echo 'solving failed' >&2
exit 20
`)
	inv := NewInvoker(Config{Binary: bin, Timeout: 5 * time.Second})

	_, err := inv.Run(context.Background(), "main.lp", "card1")
	assert.ErrorIs(t, err, apperr.ErrSolverFailed)
}

func TestRunMissingBinary(t *testing.T) {
	inv := NewInvoker(Config{
		Binary:  filepath.Join(t.TempDir(), "definitely-not-clingo"),
		Timeout: 5 * time.Second,
	})

	_, err := inv.Run(context.Background(), "main.lp", "card1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrSolverMissing)
	assert.Contains(t, err.Error(), "install")
}

func TestRunTimeout(t *testing.T) {
	bin := writeStub(t, `sleep 5
`)
	inv := NewInvoker(Config{Binary: bin, Timeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := inv.Run(context.Background(), "main.lp", "card1")
	assert.ErrorIs(t, err, apperr.ErrSolverTimeout)
	assert.Less(t, time.Since(start), 3*time.Second, "timeout must not wait for the hung solver")
}

func TestRunEmptyCardKey(t *testing.T) {
	inv := NewInvoker(DefaultConfig())
	_, err := inv.Run(context.Background(), "main.lp", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRunRejectsMalformedCardKey(t *testing.T) {
	// A binary that cannot exist: reaching it would surface ErrSolverMissing
	// instead of the validation failure.
	inv := NewInvoker(Config{
		Binary:  filepath.Join(t.TempDir(), "definitely-not-clingo"),
		Timeout: 5 * time.Second,
	})

	for _, key := range []string{"Child-A!", `x"). bad :- rule. %`, "UpperStart", "has space", "1numeric"} {
		_, err := inv.Run(context.Background(), "main.lp", key)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, "key %q must fail validation before invocation", key)
	}

	for _, key := range []string{"card_1a2b3c4d", "childA", "root1"} {
		_, err := inv.Run(context.Background(), "main.lp", key)
		assert.NotErrorIs(t, err, apperr.ErrInvalidInput, "key %q must pass validation", key)
	}
}

func TestBuildQueryProgram(t *testing.T) {
	program := BuildQueryProgram("card42")
	assert.Contains(t, program, "#show.")
	assert.Contains(t, program, "field(card42, F, V)")
	assert.Contains(t, program, "not userfield(card42, F)")
	assert.Contains(t, program, "fieldtype(card42, F, T)")
}
