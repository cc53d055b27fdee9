// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package catalog provides the static lookup lists: course categories,
// knowledge levels, age restrictions and monetization types.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/olegiv/knowledge-plus/internal/model"
)

//go:embed catalog.yaml
var defaultData []byte

// Kind names one of the lookup lists.
type Kind string

// Lookup list kinds.
const (
	KindCategory     Kind = "category"
	KindLevel        Kind = "level"
	KindAge          Kind = "age"
	KindMonetization Kind = "monetization"
)

type file struct {
	Categories   []model.CatalogEntry `yaml:"categories"`
	Levels       []model.CatalogEntry `yaml:"levels"`
	Ages         []model.CatalogEntry `yaml:"ages"`
	Monetization []model.CatalogEntry `yaml:"monetization"`
}

// Catalog holds the lookup lists. It is immutable after loading.
type Catalog struct {
	lists map[Kind][]model.CatalogEntry
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog, parsed on first use.
// The embedded data is validated by tests, so a parse failure panics.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultData)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded data: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse decodes a catalog document and checks that every list is non-empty
// and free of duplicate ids or labels.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{lists: map[Kind][]model.CatalogEntry{
		KindCategory:     f.Categories,
		KindLevel:        f.Levels,
		KindAge:          f.Ages,
		KindMonetization: f.Monetization,
	}}

	for kind, entries := range c.lists {
		if len(entries) == 0 {
			return nil, fmt.Errorf("catalog %s list is empty", kind)
		}
		ids := make(map[int64]bool, len(entries))
		labels := make(map[string]bool, len(entries))
		for _, e := range entries {
			if e.ID <= 0 || e.Label == "" {
				return nil, fmt.Errorf("catalog %s entry %+v is incomplete", kind, e)
			}
			if ids[e.ID] || labels[e.Label] {
				return nil, fmt.Errorf("catalog %s entry %+v is duplicated", kind, e)
			}
			ids[e.ID] = true
			labels[e.Label] = true
		}
	}
	return c, nil
}

// List returns a copy of the entries of kind.
func (c *Catalog) List(kind Kind) []model.CatalogEntry {
	src := c.lists[kind]
	out := make([]model.CatalogEntry, len(src))
	copy(out, src)
	return out
}

// Categories returns the course categories.
func (c *Catalog) Categories() []model.CatalogEntry { return c.List(KindCategory) }

// Levels returns the knowledge levels.
func (c *Catalog) Levels() []model.CatalogEntry { return c.List(KindLevel) }

// Ages returns the age restrictions.
func (c *Catalog) Ages() []model.CatalogEntry { return c.List(KindAge) }

// Monetization returns the monetization types.
func (c *Catalog) Monetization() []model.CatalogEntry { return c.List(KindMonetization) }

// Lookup finds an entry by id.
func (c *Catalog) Lookup(kind Kind, id int64) (model.CatalogEntry, bool) {
	for _, e := range c.lists[kind] {
		if e.ID == id {
			return e, true
		}
	}
	return model.CatalogEntry{}, false
}

// LookupLabel finds an entry by its label.
func (c *Catalog) LookupLabel(kind Kind, label string) (model.CatalogEntry, bool) {
	for _, e := range c.lists[kind] {
		if e.Label == label {
			return e, true
		}
	}
	return model.CatalogEntry{}, false
}

// Category returns the category with id.
func (c *Catalog) Category(id int64) (model.CatalogEntry, bool) { return c.Lookup(KindCategory, id) }

// Level returns the knowledge level with id.
func (c *Catalog) Level(id int64) (model.CatalogEntry, bool) { return c.Lookup(KindLevel, id) }

// Age returns the age restriction with id.
func (c *Catalog) Age(id int64) (model.CatalogEntry, bool) { return c.Lookup(KindAge, id) }

// First returns the first entry of kind, the wizard default.
func (c *Catalog) First(kind Kind) model.CatalogEntry {
	return c.lists[kind][0]
}

// Resolve converts the catalog ids of a creation request into labels.
// Unknown ids are reported as field errors.
func (c *Catalog) Resolve(categoryID, levelID, ageID int64) (category, level, age string, err error) {
	errs := model.ValidationErrors{}
	if e, ok := c.Category(categoryID); ok {
		category = e.Label
	} else {
		errs.Add("category", "Unknown category")
	}
	if e, ok := c.Level(levelID); ok {
		level = e.Label
	} else {
		errs.Add("level", "Unknown level")
	}
	if e, ok := c.Age(ageID); ok {
		age = e.Label
	} else {
		errs.Add("age", "Unknown age restriction")
	}
	return category, level, age, errs.Err()
}

// MatchesFilter reports whether a stored course passes the id-based filter
// predicates. Courses store labels, so ids are resolved through the catalog.
// Search and price tier are not checked here.
func (c *Catalog) MatchesFilter(course *model.Course, f model.CourseFilter) bool {
	check := func(kind Kind, id int64, label string) bool {
		if id == 0 {
			return true
		}
		e, ok := c.Lookup(kind, id)
		return ok && e.Label == label
	}
	return check(KindCategory, f.CategoryID, course.Category) &&
		check(KindLevel, f.LevelID, course.LevelKnowledge) &&
		check(KindAge, f.AgeID, course.AgePeople)
}
