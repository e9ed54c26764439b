package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/pario-ai/tokmon/pkg/models"
)

// File is the on-disk layout of a pricing table.
type File struct {
	Models  []models.PriceEntry `json:"models" yaml:"models" toml:"models"`
	Aliases map[string]string   `json:"aliases" yaml:"aliases" toml:"aliases"`
}

// LoadFile reads a pricing table. The format follows the extension:
// .yaml/.yml, .toml or .json.
func LoadFile(path string) (*Table, error) {
	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return nil, fmt.Errorf("decode pricing file: %w", err)
		}
	case ".yaml", ".yml", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pricing file: %w", err)
		}
		if ext == ".json" {
			err = json.Unmarshal(data, &f)
		} else {
			err = yaml.Unmarshal(data, &f)
		}
		if err != nil {
			return nil, fmt.Errorf("decode pricing file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported pricing file extension %q", ext)
	}

	if len(f.Models) == 0 {
		return nil, fmt.Errorf("pricing file %s has no models", path)
	}
	t, err := NewTable(f.Models, f.Aliases)
	if err != nil {
		return nil, fmt.Errorf("load pricing file %s: %w", path, err)
	}
	return t, nil
}

// LoadOrDefault loads path when set, else returns Default.
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
