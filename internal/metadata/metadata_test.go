package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dlowans/facet/internal/project"
)

func TestCache_EmptyBeforeLoad(t *testing.T) {
	c := NewCache()

	if c.Loaded() {
		t.Error("Loaded() = true for a fresh cache")
	}
	if got := c.Companies(); got == nil || len(got) != 0 {
		t.Errorf("Companies() = %v, want empty non-nil slice", got)
	}
	if got := c.Tags(); got == nil || len(got) != 0 {
		t.Errorf("Tags() = %v, want empty non-nil slice", got)
	}
	if got := c.DrillShapes(); len(got) != 2 {
		t.Errorf("DrillShapes() = %v, want static round/square list", got)
	}
}

func TestCache_SetSortsByName(t *testing.T) {
	c := NewCache()
	c.Set(Data{
		Companies: []project.Company{
			{ID: "c2", Name: "Zebra Kits"},
			{ID: "c1", Name: "Artisan Diamonds"},
		},
		Tags: []project.Tag{
			{ID: "t2", Name: "winter"},
			{ID: "t1", Name: "autumn"},
		},
	})

	companies := c.Companies()
	if companies[0].Name != "Artisan Diamonds" {
		t.Errorf("companies not sorted: %v", companies)
	}
	tags := c.Tags()
	if tags[0].Name != "autumn" {
		t.Errorf("tags not sorted: %v", tags)
	}
	if !c.Loaded() {
		t.Error("Loaded() = false after Set")
	}
}

func TestCache_GettersDoNotAlias(t *testing.T) {
	c := NewCache()
	c.Set(Data{Tags: []project.Tag{{ID: "t1", Name: "floral"}}})

	got := c.Tags()
	got[0].Name = "mutated"

	if c.Tags()[0].Name != "floral" {
		t.Error("mutating a getter result leaked into the cache")
	}
}

func TestCache_TagName(t *testing.T) {
	c := NewCache()
	c.Set(Data{Tags: []project.Tag{{ID: "t1", Name: "floral"}}})

	if got := c.TagName("t1"); got != "floral" {
		t.Errorf("TagName(t1) = %q, want floral", got)
	}
	if got := c.TagName("t9"); got != "t9" {
		t.Errorf("TagName(t9) = %q, want the id itself", got)
	}
}

func TestFileSource_LoadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.yaml")
	content := `companies:
  - id: dac
    name: Diamond Art Club
artists:
  - id: a1
    name: Jody Bergsma
tags:
  - id: landscape
    name: Landscape
    color: "#3fb950"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileSource(path).LoadMetadata(context.Background())
	if err != nil {
		t.Fatalf("LoadMetadata() failed: %v", err)
	}

	want := Data{
		Companies: []project.Company{{ID: "dac", Name: "Diamond Art Club"}},
		Artists:   []project.Artist{{ID: "a1", Name: "Jody Bergsma"}},
		Tags:      []project.Tag{{ID: "landscape", Name: "Landscape", Color: "#3fb950"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadMetadata() mismatch (-want +got):\n%s", diff)
	}
}

func TestFileSource_MissingFileIsEmpty(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.yaml"))

	got, err := src.LoadMetadata(context.Background())
	if err != nil {
		t.Fatalf("LoadMetadata() on missing file failed: %v", err)
	}
	if len(got.Companies) != 0 || len(got.Artists) != 0 || len(got.Tags) != 0 {
		t.Errorf("LoadMetadata() = %+v, want empty data", got)
	}
}

func TestFileSource_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.yaml")
	if err := os.WriteFile(path, []byte("companies: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileSource(path).LoadMetadata(context.Background()); err == nil {
		t.Error("LoadMetadata() succeeded on malformed YAML")
	}
}
