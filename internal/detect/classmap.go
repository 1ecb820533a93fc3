package detect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownClass is reported for category ids missing from the mapping.
const UnknownClass = "Unknown"

// ClassMap resolves model category ids to human-readable class names.
type ClassMap map[int]string

type classEntry struct {
	ModelIdx  int    `json:"model_idx" yaml:"model_idx"`
	ClassName string `json:"class_name" yaml:"class_name"`
}

// LoadClassMap reads a list of {model_idx, class_name} entries from a JSON or
// YAML file, chosen by extension. An empty path yields an empty map.
func LoadClassMap(path string) (ClassMap, error) {
	if path == "" {
		return ClassMap{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading class mapping: %w", err)
	}

	var entries []classEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing class mapping %s: %w", path, err)
	}

	m := make(ClassMap, len(entries))
	for _, e := range entries {
		m[e.ModelIdx] = e.ClassName
	}
	return m, nil
}

// Name returns the class name for id, or UnknownClass.
func (m ClassMap) Name(id int) string {
	if name, ok := m[id]; ok {
		return name
	}
	return UnknownClass
}
