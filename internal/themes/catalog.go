package themes

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// MinConcepts is the smallest concept pool a theme may carry: a full
// room of ten players needs nine distinct concepts.
const MinConcepts = 9

var ErrEmptyCatalog = errors.New("theme catalog is empty")
var ErrInvalidTheme = errors.New("invalid theme")

//go:embed themes.json
var defaultCatalog []byte

type Theme struct {
	Name     string   `json:"name"`
	Concepts []string `json:"concepts"`
}

type Catalog struct {
	Themes []Theme `json:"themes"`
}

// Default returns the built-in catalog.
func Default() Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("themes: embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a JSON file. An empty path yields the default.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading theme catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parsing theme catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c Catalog) Validate() error {
	if len(c.Themes) == 0 {
		return ErrEmptyCatalog
	}
	for _, t := range c.Themes {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("%w: theme without a name", ErrInvalidTheme)
		}
		seen := make(map[string]struct{}, len(t.Concepts))
		for _, concept := range t.Concepts {
			if strings.TrimSpace(concept) == "" {
				return fmt.Errorf("%w: %q has an empty concept", ErrInvalidTheme, t.Name)
			}
			if _, dup := seen[concept]; dup {
				return fmt.Errorf("%w: %q repeats concept %q", ErrInvalidTheme, t.Name, concept)
			}
			seen[concept] = struct{}{}
		}
		if len(seen) < MinConcepts {
			return fmt.Errorf("%w: %q has %d concepts, need at least %d", ErrInvalidTheme, t.Name, len(seen), MinConcepts)
		}
	}
	return nil
}
