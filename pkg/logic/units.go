package logic

import (
	"fmt"
	"path/filepath"
	"strings"
)

// On-disk logic unit names inside a project's calculation folder.
const (
	CalcDir      = ".calc"
	BaseUnit     = "base.lp"
	CardTreeUnit = "cardtree.lp"
	ModulesUnit  = "modules.lp"
	MainUnit     = "main.lp"
	CardsDir     = "cards"
)

// CardUnit returns the relative path of a card's per-card unit.
func CardUnit(key string) string {
	return filepath.ToSlash(filepath.Join(CardsDir, key+".lp"))
}

// Include renders one textual-inclusion statement.
func Include(path string) string {
	return fmt.Sprintf("#include %q.", filepath.ToSlash(path))
}

// CardInclude renders the aggregator row for one card. Row removal on
// deletion matches this exact line.
func CardInclude(key string) string {
	return Include(CardUnit(key))
}

// CardIncludeKey is the inverse of CardInclude: it extracts the card key
// from an aggregator row. ok is false for rows that are not per-card
// includes.
func CardIncludeKey(row string) (string, bool) {
	prefix := `#include "` + CardsDir + `/`
	const suffix = `.lp".`
	if !strings.HasPrefix(row, prefix) || !strings.HasSuffix(row, suffix) {
		return "", false
	}
	key := row[len(prefix) : len(row)-len(suffix)]
	if key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}
