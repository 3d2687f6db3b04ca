// Package solver builds query programs and runs the external logic solver
// as a blocking subprocess under a cancellation deadline.
package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"time"

	apperr "github.com/duynguyendang/cardcalc/pkg/common/errors"
	"github.com/duynguyendang/cardcalc/pkg/datalog"
)

// Config holds solver invocation settings.
type Config struct {
	// Binary is the solver executable. Resolved from CLINGO_PATH, falling
	// back to "clingo" on PATH.
	Binary string
	// Timeout bounds one invocation. A hung solver no longer hangs the caller.
	Timeout time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	binary := os.Getenv("CLINGO_PATH")
	if binary == "" {
		binary = "clingo"
	}
	return Config{
		Binary:  binary,
		Timeout: 30 * time.Second,
	}
}

// Invoker runs queries against a generated corpus.
type Invoker struct {
	cfg Config
}

// NewInvoker creates an Invoker.
func NewInvoker(cfg Config) *Invoker {
	if cfg.Binary == "" {
		cfg.Binary = "clingo"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Invoker{cfg: cfg}
}

// keyPattern is the constant-term shape the solver accepts: lowercase first
// character, then letters, digits or underscores. Anything else would be
// interpolated into the query program as a syntax error.
var keyPattern = regexp.MustCompile(`^[a-z][A-Za-z0-9_]*$`)

// BuildQueryProgram renders the per-card query: show every field and
// fieldtype derivation for the card that is not an author-supplied field.
func BuildQueryProgram(cardKey string) string {
	var b strings.Builder
	b.WriteString("#show.\n")
	fmt.Fprintf(&b, "#show field(%s, F, V) : field(%s, F, V), not userfield(%s, F).\n", cardKey, cardKey, cardKey)
	fmt.Fprintf(&b, "#show fieldtype(%s, F, T) : fieldtype(%s, F, T).\n", cardKey, cardKey)
	return b.String()
}

// Run executes the query program against the main aggregator unit and
// returns the parsed derivations. The program text goes to the solver on
// standard input; mainPath is passed as a positional argument.
func (inv *Invoker) Run(ctx context.Context, mainPath, cardKey string) ([]datalog.DerivedFact, error) {
	if cardKey == "" {
		return nil, fmt.Errorf("%w: card key is required", apperr.ErrInvalidInput)
	}
	if !keyPattern.MatchString(cardKey) {
		return nil, fmt.Errorf("%w: card key %q is not a valid solver constant", apperr.ErrInvalidInput, cardKey)
	}

	ctx, cancel := context.WithTimeout(ctx, inv.cfg.Timeout)
	defer cancel()

	// -V0 equivalent flags: no banner, one atom per line, trailing period.
	cmd := exec.CommandContext(ctx, inv.cfg.Binary,
		"--verbose=0", "--out-ifs=\\n", "--out-atomf=%s.", "-", mainPath)
	cmd.Stdin = strings.NewReader(BuildQueryProgram(cardKey))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %s", apperr.ErrSolverTimeout, inv.cfg.Timeout)
	}

	// The solver exits non-zero even on success (the status is a bitfield),
	// so outcome classification starts from the streams.
	if stdout.Len() > 0 {
		return datalog.ParseResults(stdout.String()), nil
	}

	if stderr.Len() > 0 && runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			status := ExitStatus(exitErr.ExitCode())
			if status.Success() {
				return nil, nil
			}
			log.Printf("solver failed (status %d): %s", int(status), status.FailingConditions())
			log.Printf("solver stderr: %s", strings.TrimSpace(stderr.String()))
			return nil, fmt.Errorf("%w: %s", apperr.ErrSolverFailed, status.FailingConditions())
		}
	}

	if isNotInstalled(runErr) {
		return nil, fmt.Errorf("%w: %s", apperr.ErrSolverMissing, installHint())
	}
	if runErr != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrSolverFailed, runErr)
	}

	// Ran cleanly but produced nothing to show.
	return nil, nil
}

// isNotInstalled reports whether the command failed before the solver could
// produce any output, which means the binary is missing or not executable.
func isNotInstalled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}

func installHint() string {
	switch runtime.GOOS {
	case "darwin":
		return "clingo not found; install it with 'brew install clingo'"
	case "windows":
		return "clingo not found; install it with 'conda install -c conda-forge clingo'"
	default:
		return "clingo not found; install it with your package manager, e.g. 'apt-get install gringo' or 'conda install -c conda-forge clingo'"
	}
}
