package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	return layered{}.String(key, fallback)
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	return layered{}.Int(key, fallback)
}

// GetBool retrieves an environment variable as bool or returns fallback.
func GetBool(key string, fallback bool) bool {
	return layered{}.Bool(key, fallback)
}

// layered resolves keys from the environment first and then from an optional
// file overlay. Keys in the overlay are stored in their environment form.
type layered struct {
	file map[string]string
}

func (l layered) lookup(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok {
		return value, true
	}
	value, ok := l.file[key]
	return value, ok
}

func (l layered) String(key, fallback string) string {
	if value, ok := l.lookup(key); ok {
		return value
	}
	return fallback
}

func (l layered) Int(key string, fallback int) int {
	if value, ok := l.lookup(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

func (l layered) Bool(key string, fallback bool) bool {
	if value, ok := l.lookup(key); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// List splits a comma separated value, dropping empty items.
func (l layered) List(key string, fallback []string) []string {
	value, ok := l.lookup(key)
	if !ok {
		return fallback
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// readOverlay loads a flat YAML document whose keys are the lowercase form of
// the environment variable names, e.g. `jwt_expires_in: 7d`.
func readOverlay(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		envKey := strings.ToUpper(strings.TrimSpace(key))
		switch v := value.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			values[envKey] = strings.Join(parts, ",")
		default:
			values[envKey] = fmt.Sprint(v)
		}
	}
	return values, nil
}
