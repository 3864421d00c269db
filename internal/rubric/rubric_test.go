package rubric

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		points  string
		wantErr error
	}{
		{name: "empty name", input: "   ", points: "1", wantErr: ErrEmptyName},
		{name: "negative points", input: "Units", points: "-1", wantErr: ErrInvalidPoints},
		{name: "unparseable points", input: "Units", points: "one", wantErr: ErrInvalidPoints},
		{name: "nan points", input: "Units", points: "NaN", wantErr: ErrInvalidPoints},
		{name: "duplicate", input: "Sign error", points: "2", wantErr: ErrDuplicate},
		{name: "valid", input: " Units ", points: " 0.5 "},
		{name: "zero points allowed", input: "Style", points: "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCatalog([]Item{{Name: "Sign error", Points: 1}})
			item, err := c.Add(tc.input, tc.points)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Add error = %v, want %v", err, tc.wantErr)
				}
				if c.Len() != 1 {
					t.Fatalf("rejected add must not change catalog")
				}
				return
			}
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
			if item.Name != strings.TrimSpace(tc.input) {
				t.Fatalf("name not trimmed: %q", item.Name)
			}
			if got := c.Names(); got[len(got)-1] != item.Name {
				t.Fatalf("item not appended: %v", got)
			}
		})
	}
}

func TestEditKeepsPositionAndReportsRename(t *testing.T) {
	c := NewCatalog([]Item{{Name: "A", Points: 1}, {Name: "B", Points: 2}, {Name: "C", Points: 3}})
	rename, err := c.Edit("B", "Bee", "2.5")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !rename.Renamed() || rename.From != "B" || rename.To != "Bee" {
		t.Fatalf("unexpected rename %+v", rename)
	}
	if got := strings.Join(c.Names(), ","); got != "A,Bee,C" {
		t.Fatalf("order = %s", got)
	}
	if c.Points()["Bee"] != 2.5 {
		t.Fatalf("points not updated: %v", c.Points())
	}

	same, err := c.Edit("A", "A", "4")
	if err != nil {
		t.Fatalf("editing points only: %v", err)
	}
	if same.Renamed() {
		t.Fatalf("points-only edit reported as rename")
	}
	if _, err := c.Edit("A", "C", "1"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("rename onto existing name: %v", err)
	}
	if _, err := c.Edit("missing", "X", "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("edit missing item: %v", err)
	}
	if _, err := c.Edit("A", "A", "-3"); !errors.Is(err, ErrInvalidPoints) {
		t.Fatalf("edit with negative points: %v", err)
	}
}

func TestRemove(t *testing.T) {
	c := NewCatalog([]Item{{Name: "A", Points: 1}, {Name: "B", Points: 2}})
	removed, err := c.Remove("A")
	if err != nil || removed.Name != "A" {
		t.Fatalf("Remove = %+v, %v", removed, err)
	}
	if c.Has("A") || c.Len() != 1 {
		t.Fatalf("item still present: %v", c.Names())
	}
	if _, err := c.Remove("A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove: %v", err)
	}
}

func TestNewCatalogSanitizes(t *testing.T) {
	c := NewCatalog([]Item{
		{Name: " A ", Points: 1},
		{Name: "", Points: 3},
		{Name: "A", Points: 9},
		{Name: "Neg", Points: -2},
	})
	if got := strings.Join(c.Names(), ","); got != "A,Neg" {
		t.Fatalf("names = %s", got)
	}
	if c.Points()["A"] != 1 || c.Points()["Neg"] != 0 {
		t.Fatalf("points = %v", c.Points())
	}
}

func TestImportSkipsExisting(t *testing.T) {
	c := NewCatalog([]Item{{Name: "A", Points: 1}})
	added, err := c.Import([]Item{{Name: "A", Points: 5}, {Name: "B", Points: 2}})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(added) != 1 || added[0].Name != "B" {
		t.Fatalf("added = %+v", added)
	}
	if c.Points()["A"] != 1 {
		t.Fatalf("import overwrote existing item")
	}
	if _, err := c.Import([]Item{{Name: "", Points: 1}}); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("import invalid item: %v", err)
	}
}

func TestLoadTemplateFormats(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "quiz.toml")
	tomlData := "[[item]]\nname = \"Missing units\"\npoints = 0.5\n\n[[item]]\nname = \"Wrong sign\"\npoints = 2\n"
	if err := os.WriteFile(tomlPath, []byte(tomlData), 0o644); err != nil {
		t.Fatal(err)
	}
	items, err := LoadTemplate(tomlPath)
	if err != nil {
		t.Fatalf("toml template: %v", err)
	}
	if len(items) != 2 || items[1].Points != 2 || items[0].Name != "Missing units" {
		t.Fatalf("toml items = %+v", items)
	}

	yamlPath := filepath.Join(dir, "quiz.yml")
	yamlData := "items:\n  - name: Missing units\n    points: 1\n  - name: Messy\n    points: \"0.25\"\n"
	if err := os.WriteFile(yamlPath, []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}
	items, err = LoadTemplate(yamlPath)
	if err != nil {
		t.Fatalf("yaml template: %v", err)
	}
	if len(items) != 2 || items[0].Points != 1 || items[1].Points != 0.25 {
		t.Fatalf("yaml items = %+v", items)
	}

	badPath := filepath.Join(dir, "quiz.json")
	if err := os.WriteFile(badPath, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplate(badPath); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestParseYAMLRejectsNegative(t *testing.T) {
	if _, err := ParseYAML([]byte("items:\n  - name: X\n    points: -1\n")); !errors.Is(err, ErrInvalidPoints) {
		t.Fatalf("negative template points: %v", err)
	}
}

func TestMarshalTOMLRoundTrip(t *testing.T) {
	data, err := MarshalTOML([]Item{{Name: "Units", Points: 0.5}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	items, err := ParseTOML(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Units" || items[0].Points != 0.5 {
		t.Fatalf("round trip = %+v", items)
	}
}
