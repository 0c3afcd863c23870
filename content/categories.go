package content

import (
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var defaultCategories []byte

// Category is an entry of the predefined category catalog.
type Category struct {
	Name        string `yaml:"name" json:"name"`
	Slug        string `yaml:"slug" json:"slug"`
	Description string `yaml:"description" json:"description"`
	Color       string `yaml:"color" json:"color"`
}

// Catalog is the ordered set of predefined categories.
type Catalog struct {
	categories []Category
	bySlug     map[string]Category
}

// fallbackColors are assigned to categories missing from the catalog.
var fallbackColors = []string{
	"bg-blue-500", "bg-green-500", "bg-purple-500",
	"bg-red-500", "bg-yellow-500", "bg-pink-500",
	"bg-indigo-500", "bg-teal-500", "bg-orange-500",
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCategories)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads a YAML catalog from path, or returns the built-in one
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "content: read categories")
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML list of categories. Slugs are normalized and
// must be unique.
func ParseCatalog(data []byte) (*Catalog, error) {
	var list []Category
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, errors.Wrap(err, "content: parse categories")
	}
	c := &Catalog{bySlug: make(map[string]Category, len(list))}
	for _, cat := range list {
		if cat.Slug == "" {
			cat.Slug = cat.Name
		}
		cat.Slug = NormalizeSlug(cat.Slug)
		if cat.Slug == "" {
			return nil, errors.New("content: category without name or slug")
		}
		if _, dup := c.bySlug[cat.Slug]; dup {
			return nil, errors.Errorf("content: duplicate category %q", cat.Slug)
		}
		if cat.Color == "" {
			cat.Color = ColorFor(cat.Slug)
		}
		c.bySlug[cat.Slug] = cat
		c.categories = append(c.categories, cat)
	}
	return c, nil
}

// All returns the catalog in declaration order.
func (c *Catalog) All() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Lookup finds a category by its normalized slug.
func (c *Catalog) Lookup(slug string) (Category, bool) {
	cat, ok := c.bySlug[NormalizeSlug(slug)]
	return cat, ok
}

// ColorFor picks a stable colour class for slug from the sum of its code
// points.
func ColorFor(slug string) string {
	sum := 0
	for _, r := range slug {
		sum += int(r)
	}
	return fallbackColors[sum%len(fallbackColors)]
}
