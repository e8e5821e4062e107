package category

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed categories.toml
var defaultTable []byte

// Others is the sentinel category for files whose extension matches no entry.
const Others = "Others"

const othersDescription = "Files with unrecognized extensions"

// Spec is the configuration form of a category.
type Spec struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Extensions  []string `toml:"extensions"`
}

// Category is one immutable entry of a Table.
type Category struct {
	name        string
	description string
	extensions  []string
}

// Name returns the category name, which doubles as its folder name.
func (c Category) Name() string { return c.name }

// Description returns the human-readable description.
func (c Category) Description() string { return c.description }

// Extensions returns a copy of the normalized extension list.
func (c Category) Extensions() []string {
	out := make([]string, len(c.extensions))
	copy(out, c.extensions)
	return out
}

type compoundSuffix struct {
	suffix string
	index  int
}

// Table is an ordered category list with precomputed extension lookups.
type Table struct {
	categories []Category
	simple     map[string]int
	compound   []compoundSuffix
}

// New builds a table from specs. Order is preserved and decides ties.
func New(specs []Spec) (*Table, error) {
	if len(specs) == 0 {
		return nil, errors.New("category table is empty")
	}
	t := &Table{
		categories: make([]Category, 0, len(specs)),
		simple:     make(map[string]int),
	}
	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if err := validateName(name); err != nil {
			return nil, fmt.Errorf("categories[%d]: %w", i, err)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("categories[%d]: duplicate category %q", i, name)
		}
		seen[key] = struct{}{}

		exts := make([]string, 0, len(spec.Extensions))
		extSeen := make(map[string]struct{}, len(spec.Extensions))
		for _, raw := range spec.Extensions {
			ext := NormalizeExtension(raw)
			if ext == "" {
				return nil, fmt.Errorf("categories[%d] %s: invalid extension %q", i, name, raw)
			}
			if _, dup := extSeen[ext]; dup {
				continue
			}
			extSeen[ext] = struct{}{}
			exts = append(exts, ext)
		}
		if len(exts) == 0 {
			return nil, fmt.Errorf("categories[%d] %s: at least one extension is required", i, name)
		}

		index := len(t.categories)
		for _, ext := range exts {
			if strings.Count(ext, ".") > 1 {
				t.compound = append(t.compound, compoundSuffix{suffix: ext, index: index})
				continue
			}
			if _, taken := t.simple[ext]; !taken {
				t.simple[ext] = index
			}
		}
		description := strings.TrimSpace(spec.Description)
		if description == "" {
			description = name + " files"
		}
		t.categories = append(t.categories, Category{name: name, description: description, extensions: exts})
	}
	// Longest suffix first; table order breaks ties.
	sort.SliceStable(t.compound, func(i, j int) bool {
		if len(t.compound[i].suffix) != len(t.compound[j].suffix) {
			return len(t.compound[i].suffix) > len(t.compound[j].suffix)
		}
		return t.compound[i].index < t.compound[j].index
	})
	return t, nil
}

// DefaultSpecs decodes the embedded default category table.
func DefaultSpecs() ([]Spec, error) {
	var doc struct {
		Categories []Spec `toml:"categories"`
	}
	if err := toml.NewDecoder(bytes.NewReader(defaultTable)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse default categories: %w", err)
	}
	return doc.Categories, nil
}

// Default returns the table built from the embedded defaults. It panics if the
// embedded data is invalid, which is a build defect rather than a runtime error.
func Default() *Table {
	specs, err := DefaultSpecs()
	if err != nil {
		panic(err)
	}
	table, err := New(specs)
	if err != nil {
		panic(err)
	}
	return table
}

// FromSpecs returns the default table when specs is empty and a custom table otherwise.
func FromSpecs(specs []Spec) (*Table, error) {
	if len(specs) == 0 {
		return Default(), nil
	}
	return New(specs)
}

// Classify returns the category name for fileName. It never fails: names with
// no recognized extension map to Others.
func (t *Table) Classify(fileName string) string {
	lower := lowerString(filepath.Base(fileName))
	for _, c := range t.compound {
		if len(lower) > len(c.suffix) && strings.HasSuffix(lower, c.suffix) {
			return t.categories[c.index].name
		}
	}
	ext := finalExtension(lower)
	if ext == "" {
		return Others
	}
	if index, ok := t.simple[ext]; ok {
		return t.categories[index].name
	}
	return Others
}

// Categories returns the configured categories in order followed by Others.
func (t *Table) Categories() []Category {
	out := make([]Category, 0, len(t.categories)+1)
	out = append(out, t.categories...)
	return append(out, Category{name: Others, description: othersDescription})
}

// Names returns category names in table order, Others last.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.categories)+1)
	for _, c := range t.categories {
		names = append(names, c.name)
	}
	return append(names, Others)
}

// Lookup finds a category by exact name, including Others.
func (t *Table) Lookup(name string) (Category, bool) {
	if name == Others {
		return Category{name: Others, description: othersDescription}, true
	}
	for _, c := range t.categories {
		if c.name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Describe returns the human-readable description for a category name, or ""
// when the name is unknown.
func (t *Table) Describe(name string) string {
	c, ok := t.Lookup(name)
	if !ok {
		return ""
	}
	return c.description
}

// NormalizeExtension lower-cases ext and ensures a single leading dot. It
// returns "" for values that cannot be an extension.
func NormalizeExtension(ext string) string {
	ext = lowerString(strings.TrimSpace(ext))
	ext = strings.TrimLeft(ext, ".")
	if ext == "" || strings.ContainsAny(ext, `/\`) || strings.HasSuffix(ext, ".") {
		return ""
	}
	return "." + ext
}

// finalExtension mirrors the usual suffix rule: dotfiles such as ".bashrc" and
// names ending in a dot have no extension.
func finalExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "." || ext == name {
		return ""
	}
	return ext
}

func lowerString(s string) string {
	return cases.Lower(language.Und).String(s)
}

func validateName(name string) error {
	switch {
	case name == "":
		return errors.New("name is required")
	case name == "." || name == "..":
		return fmt.Errorf("name %q is not a valid folder name", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q must not contain path separators", name)
	case strings.EqualFold(name, Others):
		return fmt.Errorf("name %q is reserved", name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("name %q must not start with a dot", name)
	}
	return nil
}
