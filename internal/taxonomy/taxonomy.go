// Package taxonomy maps fine-grained solution niches to the macro
// categories that partition the questionnaire schema and the tabular store.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// UnlistedNiche is the sentinel the applicant picks when no listed niche
// fits. It never resolves on its own; a manual category must accompany it.
const UnlistedNiche = "Nicho não listado"

//go:embed defaults.yaml
var defaultsYAML []byte

// Category is a named group owning an ordered list of member niches.
type Category struct {
	Name   string   `yaml:"name"`
	Niches []string `yaml:"niches"`
}

// Taxonomy is the validated niche-to-category mapping. It is immutable
// after Load and safe for concurrent readers.
type Taxonomy struct {
	Categories []Category `yaml:"categories"`
	byNiche    map[string]string
}

// Parse decodes and validates a taxonomy payload.
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("taxonomy: decode: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Load reads a taxonomy YAML file. An empty path loads the embedded
// default (the b-Med group definition).
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Parse(defaultsYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: %s: %w", path, err)
	}
	return t, nil
}

// validate builds the reverse index and rejects ambiguous or empty
// configurations. A niche claimed by two categories, or a category with no
// niches, aborts startup rather than misfiling submissions later.
func (t *Taxonomy) validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy: no categories configured")
	}
	t.byNiche = make(map[string]string)
	for _, c := range t.Categories {
		if c.Name == "" {
			return fmt.Errorf("taxonomy: category with empty name")
		}
		if len(c.Niches) == 0 {
			return fmt.Errorf("taxonomy: category %q has no niches", c.Name)
		}
		for _, n := range c.Niches {
			if n == UnlistedNiche {
				return fmt.Errorf("taxonomy: %q is reserved and cannot be a member of %q", UnlistedNiche, c.Name)
			}
			if owner, dup := t.byNiche[n]; dup {
				return fmt.Errorf("taxonomy: niche %q claimed by both %q and %q", n, owner, c.Name)
			}
			t.byNiche[n] = c.Name
		}
	}
	return nil
}

// Resolve returns the category owning the given niche. The unlisted
// sentinel (and any unknown niche) does not resolve.
func (t *Taxonomy) Resolve(niche string) (string, bool) {
	cat, ok := t.byNiche[niche]
	return cat, ok
}

// HasCategory reports whether name is a configured category, for checking
// manual selections against the taxonomy.
func (t *Taxonomy) HasCategory(name string) bool {
	for _, c := range t.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// AllNiches returns every configured niche sorted, with the unlisted
// sentinel appended last. This is the dropdown order of the intake form.
func (t *Taxonomy) AllNiches() []string {
	niches := make([]string, 0, len(t.byNiche)+1)
	for n := range t.byNiche {
		niches = append(niches, n)
	}
	sort.Strings(niches)
	return append(niches, UnlistedNiche)
}

// CategoryNames returns the configured category names in declaration order.
func (t *Taxonomy) CategoryNames() []string {
	names := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		names = append(names, c.Name)
	}
	return names
}
