// Package card defines the card entity consumed by the calculation engine
// and a filesystem-backed store for card trees.
package card

import (
	"path/filepath"
	"sort"
	"strings"
)

const (
	// RootFolder is the sentinel directory segment under which top-level
	// cards live. A card whose parent segment resolves to it has no parent.
	RootFolder = "cardRoot"

	// ChildrenDir is the directory segment holding a card's children.
	ChildrenDir = "c"

	// MetadataFile is the per-card metadata file name.
	MetadataFile = "card.yaml"

	// LabelsField is the designated multi-value field rendered as label facts.
	LabelsField = "labels"
)

// Built-in author-supplied fields. These are always excluded from derivation.
const (
	FieldCardType      = "cardtype"
	FieldSummary       = "summary"
	FieldWorkflowState = "workflowstate"
)

// UserFields lists the fixed built-in fields in a stable order.
var UserFields = []string{FieldCardType, FieldSummary, FieldWorkflowState}

// Card is a hierarchical content entity. Metadata values are scalars or
// []string; the directory layout implies the child subtree.
type Card struct {
	Key      string
	Path     string // absolute directory path of the card
	Metadata map[string]any
}

// ParentKey derives the structural parent key from the card's path: the
// segment two levels above the card's own segment. A card whose immediate
// parent directory is the root sentinel sits at the tree root and has no
// parent.
func (c *Card) ParentKey() string {
	segs := strings.Split(filepath.ToSlash(filepath.Clean(c.Path)), "/")
	if len(segs) < 2 || segs[len(segs)-2] == RootFolder {
		return ""
	}
	if len(segs) < 3 {
		return ""
	}
	return segs[len(segs)-3]
}

// ChildrenPath returns the directory that would hold this card's children.
func (c *Card) ChildrenPath() string {
	return filepath.Join(c.Path, ChildrenDir)
}

// SortedFieldNames returns the metadata keys in sorted order. Fact encoding
// iterates in this order so regeneration is byte-identical for unchanged data.
func (c *Card) SortedFieldNames() []string {
	names := make([]string, 0, len(c.Metadata))
	for name := range c.Metadata {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModuleRef identifies one externally supplied rule file. Name is the
// module-prefixed logical name (e.g. "base/common"); Path is the directory
// holding the module's rule files.
type ModuleRef struct {
	Name string
	Path string
}

// Store is the storage collaborator the engine depends on.
type Store interface {
	// Card looks a card up by key. Returns errors.ErrNotFound (wrapped) for
	// unknown keys.
	Card(key string) (*Card, error)
	// Subtree returns the card named by key together with every descendant.
	// An empty key returns all cards in the project.
	Subtree(key string) ([]*Card, error)
	// Keys returns every known card key.
	Keys() ([]string, error)
	// Modules lists the external rule modules visible to the project.
	Modules() ([]ModuleRef, error)
}
