package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/tabclaim/internal/model"
)

// LoadMapping reads the classification mapping, a JSON or YAML object of
// "<document_id>_<table_key>" -> 1|2|3. Other values load as LayoutUnknown
// so the dispatcher reports those tables as skipped.
func LoadMapping(path string) (model.Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}

	raw, err := decodeMapping(path, data)
	if err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}

	mapping := make(model.Mapping, len(raw))
	for key, val := range raw {
		mapping[key] = model.ParseLayoutType(val)
	}
	return mapping, nil
}

func decodeMapping(path string, data []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		// JSON is the native format; YAML covers hand-written mappings
		if err := json.Unmarshal(data, &raw); err != nil {
			if yerr := yaml.Unmarshal(data, &raw); yerr != nil {
				return nil, err
			}
		}
	}

	if raw == nil {
		return nil, ErrNotObject
	}
	return raw, nil
}
