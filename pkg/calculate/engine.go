// Package calculate keeps a project's on-disk logic corpus consistent with
// its card tree and runs derivation queries against it.
package calculate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/duynguyendang/cardcalc/pkg/card"
	apperr "github.com/duynguyendang/cardcalc/pkg/common/errors"
	"github.com/duynguyendang/cardcalc/pkg/datalog"
	"github.com/duynguyendang/cardcalc/pkg/logic"
	"github.com/duynguyendang/cardcalc/pkg/solver"
)

// MaxWriters bounds concurrent per-card unit writes.
const MaxWriters = 8

// Engine drives full generation, the three delta operations, and query runs
// for one project.
type Engine struct {
	root    string
	calc    string
	store   card.Store
	invoker *solver.Invoker
}

// NewEngine creates an Engine for the project rooted at root.
func NewEngine(root string, store card.Store, inv *solver.Invoker) *Engine {
	return &Engine{
		root:    root,
		calc:    filepath.Join(root, logic.CalcDir),
		store:   store,
		invoker: inv,
	}
}

// CalcDir returns the project's calculation folder.
func (e *Engine) CalcDir() string {
	return e.calc
}

// HasCorpus reports whether a generated corpus exists. The cardtree
// aggregator is the witness: it is written by every generation.
func (e *Engine) HasCorpus() bool {
	_, err := os.Stat(filepath.Join(e.calc, logic.CardTreeUnit))
	return err == nil
}

// Generate rebuilds the fact corpus. With an empty scope the whole corpus is
// rewritten, including the project-global base, modules and main units. A
// scoped generation rewrites only the named card's subtree units and their
// aggregator rows, leaving everything else untouched.
//
// The steps run concurrently and all must complete; a partial failure leaves
// already-written units in place (no rollback), but each individual unit is
// written atomically via rename.
func (e *Engine) Generate(ctx context.Context, scope string) error {
	cards, err := e.store.Subtree(scope)
	if err != nil {
		return err
	}
	scoped := scope != ""

	if err := os.MkdirAll(filepath.Join(e.calc, logic.CardsDir), 0o755); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if !scoped {
		g.Go(func() error {
			return writeUnit(filepath.Join(e.calc, logic.BaseUnit), logic.BaseProgram)
		})
		g.Go(func() error {
			refs, err := e.store.Modules()
			if err != nil {
				return err
			}
			return writeUnit(filepath.Join(e.calc, logic.ModulesUnit), logic.RenderModules(refs))
		})
		g.Go(func() error {
			return writeUnit(filepath.Join(e.calc, logic.MainUnit), logic.MainProgram)
		})
	}
	g.Go(func() error {
		return e.generateCardTree(ctx, cards, scoped)
	})
	return g.Wait()
}

// Run executes the derivation query for one card against an
// already-generated corpus and returns the derived fields.
func (e *Engine) Run(ctx context.Context, cardKey string) ([]datalog.DerivedFact, error) {
	if _, err := e.store.Card(cardKey); err != nil {
		return nil, err
	}
	mainPath := filepath.Join(e.calc, logic.MainUnit)
	if _, err := os.Stat(mainPath); err != nil {
		return nil, fmt.Errorf("%w: no generated corpus for %s (run generate first)", apperr.ErrInvalidInput, e.root)
	}
	return e.invoker.Run(ctx, mainPath, cardKey)
}

// HandleCardChanged restores consistency after a card edit: a scoped
// generation rooted at the card, rewriting its own unit and its subtree.
func (e *Engine) HandleCardChanged(ctx context.Context, cardKey string) error {
	if cardKey == "" {
		return fmt.Errorf("%w: card key is required", apperr.ErrInvalidInput)
	}
	return e.Generate(ctx, cardKey)
}

// HandleNewCards extends the corpus for newly created cards. When no corpus
// has been generated yet this is a no-op by design: there is nothing to
// incrementally extend.
func (e *Engine) HandleNewCards(ctx context.Context, cardKeys []string) error {
	if !e.HasCorpus() {
		return nil
	}
	for _, key := range cardKeys {
		if err := e.Generate(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// HandleDeleteCard prunes the corpus for a deleted card and its entire
// subtree: per-card units are removed (missing files tolerated) and their
// aggregator rows dropped by exact line match. When the card directory is
// already gone from disk the subtree can no longer be enumerated, so the
// affected set falls back to every corpus key the store no longer knows,
// which covers the deleted card's descendants. Without an existing corpus
// this is a pure no-op.
func (e *Engine) HandleDeleteCard(ctx context.Context, cardKey string) error {
	if !e.HasCorpus() {
		return nil
	}

	affected := []string{cardKey}
	if cards, err := e.store.Subtree(cardKey); err == nil {
		affected = affected[:0]
		for _, c := range cards {
			affected = append(affected, c.Key)
		}
	} else {
		orphans, err := e.orphanedKeys()
		if err != nil {
			return err
		}
		affected = append(affected, orphans...)
	}

	for _, key := range affected {
		path := filepath.Join(e.calc, logic.CardUnit(key))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return e.removeAggregatorRows(affected)
}

// orphanedKeys returns every key with an aggregator row but no card in the
// store.
func (e *Engine) orphanedKeys() ([]string, error) {
	known, err := e.store.Keys()
	if err != nil {
		return nil, err
	}
	live := make(map[string]bool, len(known))
	for _, k := range known {
		live[k] = true
	}

	data, err := os.ReadFile(filepath.Join(e.calc, logic.CardTreeUnit))
	if err != nil {
		return nil, err
	}
	var orphans []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if key, ok := logic.CardIncludeKey(line); ok && !live[key] {
			orphans = append(orphans, key)
		}
	}
	return orphans, nil
}

// generateCardTree writes one unit per card concurrently, then brings the
// aggregator rows in line with the generated set.
func (e *Engine) generateCardTree(ctx context.Context, cards []*card.Card, scoped bool) error {
	var g errgroup.Group
	g.SetLimit(MaxWriters)

	// Collect every failure rather than just the first; in-flight writes
	// are not cancelled.
	var mu sync.Mutex
	var errs []error

	for _, c := range cards {
		c := c
		g.Go(func() error {
			path := filepath.Join(e.calc, logic.CardUnit(c.Key))
			if err := writeUnit(path, logic.EncodeCard(c)); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("card %s: %w", c.Key, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	keys := make([]string, len(cards))
	for i, c := range cards {
		keys[i] = c.Key
	}

	if !scoped {
		// Wholesale rewrite; sorted order keeps repeated generations
		// byte-identical.
		sort.Strings(keys)
		return writeUnit(filepath.Join(e.calc, logic.CardTreeUnit), logic.RenderCardTree(keys))
	}
	return e.ensureAggregatorRows(keys)
}

// ensureAggregatorRows appends include rows for any of the given keys not
// already present, preserving existing rows and their order.
func (e *Engine) ensureAggregatorRows(keys []string) error {
	path := filepath.Join(e.calc, logic.CardTreeUnit)
	existing := map[string]bool{}
	var rows []string
	if data, err := os.ReadFile(path); err == nil {
		for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			if line == "" {
				continue
			}
			rows = append(rows, line)
			existing[line] = true
		}
	}
	changed := false
	for _, key := range keys {
		row := logic.CardInclude(key)
		if !existing[row] {
			rows = append(rows, row)
			existing[row] = true
			changed = true
		}
	}
	if !changed && len(rows) > 0 {
		return nil
	}
	return writeUnit(path, joinRows(rows))
}

// removeAggregatorRows drops the include rows for the given keys.
func (e *Engine) removeAggregatorRows(keys []string) error {
	path := filepath.Join(e.calc, logic.CardTreeUnit)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	doomed := make(map[string]bool, len(keys))
	for _, key := range keys {
		doomed[logic.CardInclude(key)] = true
	}

	var rows []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" || doomed[line] {
			continue
		}
		rows = append(rows, line)
	}
	return writeUnit(path, joinRows(rows))
}

func joinRows(rows []string) string {
	if len(rows) == 0 {
		return ""
	}
	return strings.Join(rows, "\n") + "\n"
}

// writeUnit writes content to path via a temporary file in the same
// directory plus an atomic rename, so readers never observe a torn unit.
func writeUnit(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".unit-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
