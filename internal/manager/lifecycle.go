package manager

import (
	"context"
	"fmt"
	"path/filepath"

	apperr "github.com/duynguyendang/cardcalc/pkg/common/errors"
)

// Card lifecycle entry points. Each resolves the owning project from the
// card's path (opening the project context on first use) and delegates to
// that project's engine. Resolution failure (a card outside any recognized
// project root) propagates to the caller rather than being folded into a
// structured status.

// CardChanged regenerates the corpus subtree rooted at the edited card.
func (pm *ProjectManager) CardChanged(ctx context.Context, cardPath string) error {
	pc, err := pm.ResolveByCardPath(cardPath)
	if err != nil {
		return err
	}
	return pc.Engine.HandleCardChanged(ctx, filepath.Base(cardPath))
}

// CardsAdded extends the corpus for newly created cards. The project is
// resolved from the first card; a no-op when no corpus exists yet.
func (pm *ProjectManager) CardsAdded(ctx context.Context, cardPaths []string) error {
	if len(cardPaths) == 0 {
		return fmt.Errorf("%w: at least one card path is required", apperr.ErrInvalidInput)
	}
	pc, err := pm.ResolveByCardPath(cardPaths[0])
	if err != nil {
		return err
	}
	keys := make([]string, len(cardPaths))
	for i, p := range cardPaths {
		keys[i] = filepath.Base(p)
	}
	return pc.Engine.HandleNewCards(ctx, keys)
}

// CardDeleted prunes the corpus for a deleted card and its subtree.
func (pm *ProjectManager) CardDeleted(ctx context.Context, cardPath string) error {
	pc, err := pm.ResolveByCardPath(cardPath)
	if err != nil {
		return err
	}
	return pc.Engine.HandleDeleteCard(ctx, filepath.Base(cardPath))
}
