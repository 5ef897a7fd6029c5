// Package questionnaire resolves the per-category field schema: which
// questions are asked in phase 2, their input kinds, and the conditions
// under which dependent fields appear.
package questionnaire

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Field input kinds.
const (
	KindShortText = "short_text"
	KindLongText  = "long_text"
	KindSelect    = "select"
	KindRadio     = "radio"
	KindBool      = "bool"
	KindDate      = "date"
	KindFile      = "file"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Condition gates a field on a sibling answer. The field is considered
// matched when the sibling's value equals Equals, or is one of In.
type Condition struct {
	Field  string   `yaml:"field" json:"field"`
	Equals string   `yaml:"equals,omitempty" json:"equals,omitempty"`
	In     []string `yaml:"in,omitempty" json:"in,omitempty"`
}

// Matches evaluates the condition against collected answers. Values are
// compared in string form so bool answers gate on "true"/"false".
func (c *Condition) Matches(answers map[string]any) bool {
	if c == nil {
		return true
	}
	v, ok := answers[c.Field]
	if !ok {
		return false
	}
	s := fmt.Sprint(v)
	if c.Equals != "" {
		return s == c.Equals
	}
	for _, candidate := range c.In {
		if s == candidate {
			return true
		}
	}
	return false
}

// FieldSpec declares one category-specific question: schema, not value.
type FieldSpec struct {
	Key        string     `yaml:"key" json:"key"`
	Label      string     `yaml:"label" json:"label"`
	Kind       string     `yaml:"kind" json:"kind"`
	Options    []string   `yaml:"options,omitempty" json:"options,omitempty"`
	Required   bool       `yaml:"required,omitempty" json:"required,omitempty"`
	ShowIf     *Condition `yaml:"show_if,omitempty" json:"showIf,omitempty"`
	RequiredIf *Condition `yaml:"required_if,omitempty" json:"requiredIf,omitempty"`
}

// Visible reports whether the field is collected given the answers so far.
func (f *FieldSpec) Visible(answers map[string]any) bool {
	return f.ShowIf.Matches(answers)
}

type categorySchema struct {
	Category string      `yaml:"category"`
	Fields   []FieldSpec `yaml:"fields"`
}

// Resolver returns the ordered field specs for a category. Unknown
// categories yield an empty schema, never an error: a category not yet
// modeled simply has no specific questions.
type Resolver struct {
	schemas []categorySchema
}

// Parse decodes and validates a questionnaire payload.
func Parse(data []byte) (*Resolver, error) {
	var doc struct {
		Categories []categorySchema `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("questionnaire: decode: %w", err)
	}
	seen := make(map[string]bool)
	for _, cs := range doc.Categories {
		if cs.Category == "" {
			return nil, fmt.Errorf("questionnaire: schema with empty category")
		}
		if seen[cs.Category] {
			return nil, fmt.Errorf("questionnaire: duplicate schema for %q", cs.Category)
		}
		seen[cs.Category] = true
		keys := make(map[string]bool)
		for _, f := range cs.Fields {
			if f.Key == "" {
				return nil, fmt.Errorf("questionnaire: %s: field with empty key", cs.Category)
			}
			if keys[f.Key] {
				return nil, fmt.Errorf("questionnaire: %s: duplicate field %q", cs.Category, f.Key)
			}
			keys[f.Key] = true
			switch f.Kind {
			case KindShortText, KindLongText, KindSelect, KindRadio, KindBool, KindDate, KindFile:
			default:
				return nil, fmt.Errorf("questionnaire: %s: field %q has unknown kind %q", cs.Category, f.Key, f.Kind)
			}
			if (f.Kind == KindSelect || f.Kind == KindRadio) && len(f.Options) == 0 {
				return nil, fmt.Errorf("questionnaire: %s: field %q needs options", cs.Category, f.Key)
			}
		}
	}
	return &Resolver{schemas: doc.Categories}, nil
}

// Load reads a questionnaire YAML file. An empty path loads the embedded
// default (the b-Med cluster question sets).
func Load(path string) (*Resolver, error) {
	if path == "" {
		return Parse(defaultsYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("questionnaire: read %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("questionnaire: %s: %w", path, err)
	}
	return r, nil
}

// QuestionsFor returns the ordered field specs for category, or an empty
// slice when the category has no modeled schema.
func (r *Resolver) QuestionsFor(category string) []FieldSpec {
	for _, cs := range r.schemas {
		if cs.Category == category {
			return cs.Fields
		}
	}
	return nil
}

// FileFields returns the keys of file-kind fields for category. The
// assembler uses them to swap uploaded payloads for name references.
func (r *Resolver) FileFields(category string) []string {
	var keys []string
	for _, f := range r.QuestionsFor(category) {
		if f.Kind == KindFile {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Validate checks submitted answers against the category schema and
// returns every violation, not just the first. Invisible fields are
// ignored even if answered; visible select/radio answers must be one of
// the enumerated options; required visible fields must be present (file
// fields are satisfied by an upload in files).
func (r *Resolver) Validate(category string, answers map[string]any, files map[string]bool) []string {
	var violations []string
	for _, f := range r.QuestionsFor(category) {
		if !f.Visible(answers) {
			continue
		}
		v, answered := answers[f.Key]
		if answered && (f.Kind == KindSelect || f.Kind == KindRadio) {
			s := fmt.Sprint(v)
			found := false
			for _, opt := range f.Options {
				if s == opt {
					found = true
					break
				}
			}
			if !found {
				violations = append(violations, fmt.Sprintf("%s: valor %q não está entre as opções", f.Label, s))
			}
		}
		required := f.Required || (f.RequiredIf != nil && f.RequiredIf.Matches(answers))
		if !required {
			continue
		}
		if f.Kind == KindFile {
			if !files[f.Key] {
				violations = append(violations, fmt.Sprintf("%s: anexo obrigatório", f.Label))
			}
			continue
		}
		if !answered || v == nil || v == "" {
			violations = append(violations, fmt.Sprintf("%s: campo obrigatório", f.Label))
		}
	}
	return violations
}

// Prune drops answers for fields that are not part of the schema or not
// visible under the current answers, so hidden branches never leak into
// the persisted record.
func (r *Resolver) Prune(category string, answers map[string]any) map[string]any {
	specs := r.QuestionsFor(category)
	kept := make(map[string]any, len(answers))
	for _, f := range specs {
		if f.Kind == KindFile {
			continue
		}
		if v, ok := answers[f.Key]; ok && f.Visible(answers) {
			kept[f.Key] = v
		}
	}
	return kept
}
