// Package tables holds the weighted generation tables for traveler and job
// profiles. Table data ships as embedded YAML so content edits do not touch
// generation logic.
package tables

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/distortia/tavern/internal/random"
)

//go:embed traveler.yaml job.yaml
var tableFS embed.FS

// Entry is one drawable value with an optional weight. A zero weight counts
// as one.
type Entry struct {
	Value  string `yaml:"value"`
	Weight int    `yaml:"weight"`
}

// Pool is the value source for one field. A pool is either flat (Entries)
// or conditioned on another field's drawn value (ByCategory). Conditional
// pools name a default category used when the conditioning value has no
// entries of its own.
type Pool struct {
	Entries         []Entry            `yaml:"entries"`
	ByCategory      map[string][]Entry `yaml:"by_category"`
	DefaultCategory string             `yaml:"default_category"`
}

// Field describes one generated profile field: its position in the fixed
// draw order, the field it is conditioned on (if any), whether users may
// reroll it, and which dependent fields must be regenerated when it changes.
type Field struct {
	Name       string   `yaml:"name"`
	DependsOn  string   `yaml:"depends_on"`
	Rerollable bool     `yaml:"rerollable"`
	Cascades   []string `yaml:"cascades"`
	Pool       Pool     `yaml:"pool"`
}

// Set is a complete ordered table set for one profile kind.
type Set struct {
	Kind   string  `yaml:"kind"`
	Fields []Field `yaml:"fields"`
}

var (
	travelerSet = mustLoad("traveler.yaml")
	jobSet      = mustLoad("job.yaml")
)

// Traveler returns the table set for traveler character profiles.
func Traveler() Set { return travelerSet }

// Job returns the table set for job profiles.
func Job() Set { return jobSet }

// ByKind returns the table set registered under kind.
func ByKind(kind string) (Set, bool) {
	switch kind {
	case travelerSet.Kind:
		return travelerSet, true
	case jobSet.Kind:
		return jobSet, true
	}
	return Set{}, false
}

// Field returns the named field's definition.
func (s Set) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Draw selects one value for the field using the stream. For conditional
// pools, category is the current value of the conditioning field; an
// unknown category falls back to the pool's default category rather than
// failing. The second return reports whether the fallback was taken.
func (f Field) Draw(stream *random.Stream, category string) (string, bool) {
	entries := f.Pool.Entries
	fellBack := false
	if len(f.Pool.ByCategory) > 0 {
		var ok bool
		entries, ok = f.Pool.ByCategory[category]
		if !ok || len(entries) == 0 {
			entries = f.Pool.ByCategory[f.Pool.DefaultCategory]
			fellBack = true
		}
	}
	return drawWeighted(stream, entries), fellBack
}

// drawWeighted picks an entry proportionally to its weight. Empty entry
// lists yield the empty string.
func drawWeighted(stream *random.Stream, entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	total := 0
	for _, e := range entries {
		total += weightOf(e)
	}
	roll := stream.Intn(total)
	for _, e := range entries {
		roll -= weightOf(e)
		if roll < 0 {
			return e.Value
		}
	}
	return entries[len(entries)-1].Value
}

func weightOf(e Entry) int {
	if e.Weight <= 0 {
		return 1
	}
	return e.Weight
}

// Validate checks structural table invariants: unique field names, known
// dependencies that precede their dependents, cascade targets that exist
// and depend on the cascading field, and non-empty pools with a resolvable
// default category.
func (s Set) Validate() error {
	seen := map[string]int{}
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%s: field %d has no name", s.Kind, i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%s: duplicate field %q", s.Kind, f.Name)
		}
		seen[f.Name] = i

		if f.DependsOn != "" {
			depIdx, ok := seen[f.DependsOn]
			if !ok {
				return fmt.Errorf("%s: field %q depends on %q which does not precede it", s.Kind, f.Name, f.DependsOn)
			}
			if depIdx >= i {
				return fmt.Errorf("%s: field %q must come after its dependency %q", s.Kind, f.Name, f.DependsOn)
			}
		}

		if len(f.Pool.ByCategory) > 0 {
			if f.DependsOn == "" {
				return fmt.Errorf("%s: field %q has conditional pool but no dependency", s.Kind, f.Name)
			}
			def := f.Pool.DefaultCategory
			if len(f.Pool.ByCategory[def]) == 0 {
				return fmt.Errorf("%s: field %q default category %q is empty", s.Kind, f.Name, def)
			}
		} else if len(f.Pool.Entries) == 0 {
			return fmt.Errorf("%s: field %q has an empty pool", s.Kind, f.Name)
		}
	}
	for _, f := range s.Fields {
		for _, target := range f.Cascades {
			tf, ok := s.Field(target)
			if !ok {
				return fmt.Errorf("%s: field %q cascades to unknown field %q", s.Kind, f.Name, target)
			}
			if tf.DependsOn != f.Name {
				return fmt.Errorf("%s: cascade target %q does not depend on %q", s.Kind, target, f.Name)
			}
		}
	}
	return nil
}

func mustLoad(name string) Set {
	raw, err := tableFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("read embedded table %s: %v", name, err))
	}
	var set Set
	if err := yaml.Unmarshal(raw, &set); err != nil {
		panic(fmt.Sprintf("parse embedded table %s: %v", name, err))
	}
	if err := set.Validate(); err != nil {
		panic(fmt.Sprintf("invalid embedded table %s: %v", name, err))
	}
	return set
}
