package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if c.Len() != 22 {
		t.Fatalf("expected 22 packages, got %d", c.Len())
	}
	i, ok := c.Index("Sphinx Hemat 5GB")
	if !ok {
		t.Fatal("expected Sphinx Hemat 5GB in default catalog")
	}
	if got := c.At(i); got.Price != 25000 || got.Category != CategoryHemat {
		t.Fatalf("unexpected package %+v", got)
	}
	if len(c.Categories()) != 10 {
		t.Fatalf("expected 10 categories, got %v", c.Categories())
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Package{
		{Name: "A", QuotaLabel: "1GB", Price: 1000, Category: "x"},
		{Name: "A", QuotaLabel: "2GB", Price: 2000, Category: "y"},
	})
	if !errors.Is(err, ErrDuplicatePackage) {
		t.Fatalf("expected ErrDuplicatePackage, got %v", err)
	}
}

func TestNewRejectsInvalidEntries(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
	if _, err := New([]Package{{Name: "A", QuotaLabel: "1GB", Price: 0, Category: "x"}}); err == nil {
		t.Fatal("expected error for zero price")
	}
}

func TestPackagesReturnsCopy(t *testing.T) {
	c := Default()
	pkgs := c.Packages()
	pkgs[0].Price = 1
	if c.At(0).Price == 1 {
		t.Fatal("catalog mutated through Packages()")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	doc := `packages:
  - name: Mini
    quota_label: 1GB
    price: 5000
    category: hemat
  - name: Maxi
    quota_label: Unlimited
    price: 200000
    category: unlimited
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 2 || c.At(1).Name != "Maxi" {
		t.Fatalf("unexpected catalog %+v", c.Packages())
	}

	def, err := LoadFile("")
	if err != nil || def.Len() != 22 {
		t.Fatalf("expected default catalog, got %v (%v)", def, err)
	}
}
