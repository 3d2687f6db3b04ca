// Package manager resolves card paths to their owning project and caches a
// ProjectContext per project root, so every operation receives an explicit
// context instead of sharing a process-wide current project.
package manager

import (
	"fmt"
	"sync"

	"github.com/agext/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/duynguyendang/cardcalc/pkg/calculate"
	"github.com/duynguyendang/cardcalc/pkg/card"
	apperr "github.com/duynguyendang/cardcalc/pkg/common/errors"
	"github.com/duynguyendang/cardcalc/pkg/solver"
)

// MaxOpenProjects bounds the ProjectContext cache.
const MaxOpenProjects = 10

// ProjectContext bundles a project's store and engine.
type ProjectContext struct {
	Root   string
	Store  *card.FSStore
	Engine *calculate.Engine
}

// ProjectManager opens and caches ProjectContexts.
type ProjectManager struct {
	mu        sync.Mutex
	projects  *lru.Cache[string, *ProjectContext]
	solverCfg solver.Config
}

// NewProjectManager creates a ProjectManager using the given solver config.
func NewProjectManager(cfg solver.Config) *ProjectManager {
	cache, _ := lru.New[string, *ProjectContext](MaxOpenProjects)
	return &ProjectManager{
		projects:  cache,
		solverCfg: cfg,
	}
}

// Get returns the ProjectContext for a project root, opening it on first use.
func (pm *ProjectManager) Get(root string) (*ProjectContext, error) {
	if ctx, ok := pm.projects.Get(root); ok {
		return ctx, nil
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	// Double-check under lock
	if ctx, ok := pm.projects.Get(root); ok {
		return ctx, nil
	}

	store, err := card.NewFSStore(root)
	if err != nil {
		return nil, err
	}
	ctx := &ProjectContext{
		Root:   store.Root(),
		Store:  store,
		Engine: calculate.NewEngine(store.Root(), store, solver.NewInvoker(pm.solverCfg)),
	}
	pm.projects.Add(root, ctx)
	return ctx, nil
}

// ResolveByCardPath walks upward from a card's path to its project root and
// returns that project's context. A card outside any recognized project root
// propagates the resolution error to the caller.
func (pm *ProjectManager) ResolveByCardPath(cardPath string) (*ProjectContext, error) {
	root, err := card.ProjectRoot(cardPath)
	if err != nil {
		return nil, err
	}
	return pm.Get(root)
}

// LookupCard finds a card by key within a project, decorating unknown-key
// failures with the closest known key as a suggestion.
func (pm *ProjectManager) LookupCard(ctx *ProjectContext, key string) (*card.Card, error) {
	c, err := ctx.Store.Card(key)
	if err == nil {
		return c, nil
	}
	if suggestion := pm.suggestKey(ctx, key); suggestion != "" {
		return nil, fmt.Errorf("%w: card %q (did you mean %q?)", apperr.ErrNotFound, key, suggestion)
	}
	return nil, err
}

// suggestKey returns the known key closest to the given one, if any is
// close enough to plausibly be a typo.
func (pm *ProjectManager) suggestKey(ctx *ProjectContext, key string) string {
	keys, err := ctx.Store.Keys()
	if err != nil {
		return ""
	}

	best := ""
	bestScore := 0.0
	for _, candidate := range keys {
		dist := levenshtein.Distance(key, candidate, nil)
		maxLen := float64(len(key))
		if len(candidate) > int(maxLen) {
			maxLen = float64(len(candidate))
		}
		if maxLen == 0 {
			continue
		}
		score := 1.0 - float64(dist)/maxLen
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	if bestScore < 0.5 {
		return ""
	}
	return best
}
