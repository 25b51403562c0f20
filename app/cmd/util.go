package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lexcodex/orchestrate/agents"
)

// ensureWorkspace resolves the workspace CLI flag, defaulting to cwd.
func ensureWorkspace() string {
	if workspace == "" {
		wd, _ := os.Getwd()
		workspace = wd
	}
	return workspace
}

// readConfigMap deserializes a YAML file into a generic map for dotted
// lookups. A missing file yields an empty map.
func readConfigMap(path string) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return data, nil
}

// effectiveConfigMap renders the merged config (defaults, user file,
// workspace file, environment) as a generic map.
func effectiveConfigMap(cfg *agents.GlobalConfig) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if cfg == nil {
		return data, nil
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// writeConfigMap persists the config map back to YAML, creating directories.
func writeConfigMap(path string, data map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func splitKey(key string) ([]string, error) {
	parts := strings.Split(strings.TrimSpace(key), ".")
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("invalid key %q", key)
		}
	}
	return parts, nil
}

// getConfigValue traverses a nested map using dotted notation.
func getConfigValue(data map[string]interface{}, key string) (interface{}, bool) {
	parts, err := splitKey(key)
	if err != nil {
		return nil, false
	}
	var current interface{} = data
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		value, ok := m[part]
		if !ok {
			return nil, false
		}
		current = value
	}
	return current, true
}

// setConfigValue creates or replaces the nested key referenced by dotted
// notation. Scalars in the way are replaced by maps.
func setConfigValue(data map[string]interface{}, key string, value interface{}) error {
	parts, err := splitKey(key)
	if err != nil {
		return err
	}
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	return nil
}

// unsetConfigValue deletes the dotted key and prunes maps left empty. It
// reports whether the key existed.
func unsetConfigValue(data map[string]interface{}, key string) bool {
	parts, err := splitKey(key)
	if err != nil {
		return false
	}
	return unsetPath(data, parts)
}

func unsetPath(m map[string]interface{}, parts []string) bool {
	if len(parts) == 1 {
		if _, ok := m[parts[0]]; !ok {
			return false
		}
		delete(m, parts[0])
		return true
	}
	child, ok := m[parts[0]].(map[string]interface{})
	if !ok || !unsetPath(child, parts[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(m, parts[0])
	}
	return true
}

// validateConfigMap rejects unknown keys and values of the wrong type.
func validateConfigMap(data map[string]interface{}) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var cfg agents.GlobalConfig
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// parseValue coerces CLI input into bool/int/float, or a string list when
// it contains commas.
func parseValue(input string) interface{} {
	if strings.Contains(input, ",") {
		var items []interface{}
		for _, item := range strings.Split(input, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, parseValue(item))
			}
		}
		return items
	}
	if b, err := strconv.ParseBool(input); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(input, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(input, 64); err == nil {
		return f
	}
	return input
}

// prettyValue renders nested values in a human-readable one-line format.
func prettyValue(v interface{}) string {
	switch value := v.(type) {
	case []interface{}:
		var parts []string
		for _, item := range value {
			parts = append(parts, prettyValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		b, _ := yaml.Marshal(value)
		return strings.TrimSpace(string(b))
	default:
		return fmt.Sprint(value)
	}
}
