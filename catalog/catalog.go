// Package catalog holds the fixed list of purchasable data packages.
//
// A Catalog is built once at startup and never mutated; every accessor
// returns copies so callers cannot alter shared state.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sphinxnet/recommender/internal/validation"
)

var (
	// ErrDuplicatePackage indicates two entries share a name.
	ErrDuplicatePackage = errors.New("duplicate package name")
	// ErrEmptyCatalog indicates no packages were supplied.
	ErrEmptyCatalog = errors.New("catalog is empty")
)

// Package is a purchasable data, voice or roaming plan.
type Package struct {
	Name       string `json:"name" yaml:"name" validate:"required"`
	QuotaLabel string `json:"quota_label" yaml:"quota_label" validate:"required"`
	Price      int    `json:"price" yaml:"price" validate:"gt=0"`
	Category   string `json:"category" yaml:"category" validate:"required"`
}

// Provider supplies the package list consumed by the scorers.
type Provider interface {
	Packages() []Package
}

// Catalog is an immutable, name-unique list of packages.
type Catalog struct {
	packages []Package
	index    map[string]int
}

// New validates pkgs and builds a catalog preserving their order.
func New(pkgs []Package) (*Catalog, error) {
	if len(pkgs) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		packages: make([]Package, 0, len(pkgs)),
		index:    make(map[string]int, len(pkgs)),
	}
	for i, p := range pkgs {
		if err := validation.ValidateStruct(p); err != nil {
			return nil, fmt.Errorf("package %d: %w", i, err)
		}
		if _, dup := c.index[p.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePackage, p.Name)
		}
		c.index[p.Name] = len(c.packages)
		c.packages = append(c.packages, p)
	}
	return c, nil
}

// FromProvider snapshots a provider into a catalog.
func FromProvider(p Provider) (*Catalog, error) {
	if p == nil {
		return nil, ErrEmptyCatalog
	}
	if c, ok := p.(*Catalog); ok {
		return c, nil
	}
	return New(p.Packages())
}

// Packages returns a copy of the package list in catalog order.
func (c *Catalog) Packages() []Package {
	out := make([]Package, len(c.packages))
	copy(out, c.packages)
	return out
}

// Len returns the number of packages.
func (c *Catalog) Len() int {
	return len(c.packages)
}

// At returns the package at position i.
func (c *Catalog) At(i int) Package {
	return c.packages[i]
}

// Index returns the position of the named package.
func (c *Catalog) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Categories returns the distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range c.packages {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

type fileFormat struct {
	Packages []Package `yaml:"packages"`
}

// LoadFile reads a YAML catalog. An empty path returns Default().
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var doc fileFormat
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(doc.Packages)
}
