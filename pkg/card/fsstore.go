package card

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperr "github.com/duynguyendang/cardcalc/pkg/common/errors"
)

const (
	// ResourceDir marks a project root and holds settings plus rule modules.
	ResourceDir = ".cards"

	modulesDir      = "modules"
	calculationsDir = "calculations"
)

// FSStore reads a card tree from disk. The expected layout is:
//
//	<root>/.cards/modules/<mod>/calculations/*.lp
//	<root>/cardRoot/<key>/card.yaml
//	<root>/cardRoot/<key>/c/<childKey>/card.yaml
type FSStore struct {
	root string
}

// NewFSStore opens the project rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(abs, RootFolder)); err != nil {
		return nil, fmt.Errorf("%w: %s is not a card project (missing %s)", apperr.ErrNotFound, dir, RootFolder)
	}
	return &FSStore{root: abs}, nil
}

// Root returns the project root directory.
func (s *FSStore) Root() string {
	return s.root
}

// Card implements Store.
func (s *FSStore) Card(key string) (*Card, error) {
	path, err := s.findCardPath(key)
	if err != nil {
		return nil, err
	}
	return s.loadCard(key, path)
}

// Subtree implements Store.
func (s *FSStore) Subtree(key string) ([]*Card, error) {
	start := filepath.Join(s.root, RootFolder)
	if key != "" {
		path, err := s.findCardPath(key)
		if err != nil {
			return nil, err
		}
		root, err := s.loadCard(key, path)
		if err != nil {
			return nil, err
		}
		cards := []*Card{root}
		children, err := s.collectCards(root.ChildrenPath())
		if err != nil {
			return nil, err
		}
		return append(cards, children...), nil
	}
	return s.collectCards(start)
}

// Keys implements Store.
func (s *FSStore) Keys() ([]string, error) {
	cards, err := s.Subtree("")
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(cards))
	for i, c := range cards {
		keys[i] = c.Key
	}
	return keys, nil
}

// Modules implements Store. Each rule file under a module's calculations
// folder is exposed with the logical name "<module>/<base-without-ext>".
func (s *FSStore) Modules() ([]ModuleRef, error) {
	base := filepath.Join(s.root, ResourceDir, modulesDir)
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var refs []ModuleRef
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		modName := entry.Name()
		calcDir := filepath.Join(base, modName, calculationsDir)
		files, err := os.ReadDir(calcDir)
		if err != nil {
			continue // module without calculations
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".lp" {
				continue
			}
			name := strings.TrimSuffix(f.Name(), ".lp")
			refs = append(refs, ModuleRef{
				Name: modName + "/" + name,
				Path: calcDir,
			})
		}
	}
	return refs, nil
}

// CreateCard writes a new card directory under the given parent (or under
// the root folder when parentKey is empty) and returns the loaded card.
func (s *FSStore) CreateCard(parentKey, key string, metadata map[string]any) (*Card, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: card key is required", apperr.ErrInvalidInput)
	}
	dir := filepath.Join(s.root, RootFolder)
	if parentKey != "" {
		parentPath, err := s.findCardPath(parentKey)
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(parentPath, ChildrenDir)
	}
	cardDir := filepath.Join(dir, key)
	if err := os.MkdirAll(cardDir, 0o755); err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(cardDir, MetadataFile), data, 0o644); err != nil {
		return nil, err
	}
	return s.loadCard(key, cardDir)
}

// findCardPath walks the card tree looking for the directory named key.
func (s *FSStore) findCardPath(key string) (string, error) {
	var found string
	start := filepath.Join(s.root, RootFolder)
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == key && isCardDir(path) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%w: card %q", apperr.ErrNotFound, key)
	}
	return found, nil
}

// collectCards gathers every card at or below dir, depth-first.
func (s *FSStore) collectCards(dir string) ([]*Card, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cards []*Card
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !isCardDir(path) {
			continue
		}
		c, err := s.loadCard(entry.Name(), path)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
		children, err := s.collectCards(filepath.Join(path, ChildrenDir))
		if err != nil {
			return nil, err
		}
		cards = append(cards, children...)
	}
	return cards, nil
}

func (s *FSStore) loadCard(key, path string) (*Card, error) {
	data, err := os.ReadFile(filepath.Join(path, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read card metadata for %s: %w", key, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse card metadata for %s: %w", key, err)
	}
	return &Card{
		Key:      key,
		Path:     path,
		Metadata: normalizeMetadata(raw),
	}, nil
}

func isCardDir(path string) bool {
	_, err := os.Stat(filepath.Join(path, MetadataFile))
	return err == nil
}

// normalizeMetadata flattens yaml's []any lists into []string where every
// element is a string, which is the only list shape cards carry.
func normalizeMetadata(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if list, ok := v.([]any); ok {
			strs := make([]string, 0, len(list))
			allStrings := true
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					allStrings = false
					break
				}
				strs = append(strs, s)
			}
			if allStrings {
				out[k] = strs
				continue
			}
		}
		out[k] = v
	}
	return out
}

// ProjectRoot walks upward from path until it finds a directory containing
// the card root folder. It is how card lifecycle events are mapped back to
// their owning project.
func ProjectRoot(path string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, RootFolder)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s is not inside a card project", apperr.ErrNotFound, path)
		}
		dir = parent
	}
}
