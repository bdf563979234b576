package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the dictionary as indented JSON. The write goes through a
// temporary file in the same directory so readers never observe a partial
// dictionary.
func Save(path string, dict Dictionary) error {
	raw, err := json.MarshalIndent(dict, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dictionary: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dictionary-*.json")
	if err != nil {
		return fmt.Errorf("create temporary dictionary file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write dictionary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close dictionary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace dictionary file: %w", err)
	}
	return nil
}

// Load reads a dictionary previously written with Save.
func Load(path string) (Dictionary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionary file: %w", err)
	}
	var dict Dictionary
	if err := json.Unmarshal(raw, &dict); err != nil {
		return nil, fmt.Errorf("parse dictionary file %q: %w", path, err)
	}
	return dict, nil
}
