package rubric

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Rubric presets can be shared between quizzes as TOML:
//
//	[[item]]
//	name = "Missing units"
//	points = 0.5
//
// or as YAML:
//
//	items:
//	  - name: Missing units
//	    points: 0.5

type templateItem struct {
	Name   string `toml:"name" yaml:"name"`
	Points any    `toml:"points" yaml:"points"`
}

type tomlTemplate struct {
	Items []templateItem `toml:"item"`
}

type yamlTemplate struct {
	Items []templateItem `yaml:"items"`
}

// LoadTemplate reads a rubric preset, choosing the format by extension.
func LoadTemplate(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rubric: read template %s: %w", path, err)
	}
	var items []Item
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		items, err = ParseTOML(data)
	case ".yaml", ".yml":
		items, err = ParseYAML(data)
	default:
		return nil, fmt.Errorf("rubric: template %s: unsupported extension (want .toml, .yaml or .yml)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("rubric: template %s: %w", path, err)
	}
	return items, nil
}

// ParseTOML decodes a TOML rubric preset.
func ParseTOML(data []byte) ([]Item, error) {
	var tpl tomlTemplate
	if err := toml.Unmarshal(data, &tpl); err != nil {
		return nil, err
	}
	return convertTemplate(tpl.Items)
}

// ParseYAML decodes a YAML rubric preset.
func ParseYAML(data []byte) ([]Item, error) {
	var tpl yamlTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return nil, err
	}
	return convertTemplate(tpl.Items)
}

func convertTemplate(raw []templateItem) ([]Item, error) {
	items := make([]Item, 0, len(raw))
	for i, entry := range raw {
		points, err := templatePoints(entry.Points)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		item := Item{Name: strings.TrimSpace(entry.Name), Points: points}
		if err := Validate(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func templatePoints(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		return ParsePoints(v)
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidPoints, v)
	}
}

type tomlOutItem struct {
	Name   string  `toml:"name"`
	Points float64 `toml:"points"`
}

// MarshalTOML renders items as a TOML preset that LoadTemplate reads back.
func MarshalTOML(items []Item) ([]byte, error) {
	out := struct {
		Items []tomlOutItem `toml:"item"`
	}{Items: make([]tomlOutItem, 0, len(items))}
	for _, item := range items {
		out.Items = append(out.Items, tomlOutItem{Name: item.Name, Points: item.Points})
	}
	return toml.Marshal(out)
}
