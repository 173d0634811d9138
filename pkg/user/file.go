package user

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a directory from a JSON or YAML file. Both a bare list and
// an object with a "users" key are accepted.
func LoadFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}

	var wrapped struct {
		Users []User `json:"users" yaml:"users"`
	}
	var list []User

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &list); err != nil {
			if err := yaml.Unmarshal(data, &wrapped); err != nil {
				return nil, fmt.Errorf("parse users file %s: %w", path, err)
			}
			list = wrapped.Users
		}
	default:
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "{") {
			if err := json.Unmarshal(data, &wrapped); err != nil {
				return nil, fmt.Errorf("parse users file %s: %w", path, err)
			}
			list = wrapped.Users
		} else if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parse users file %s: %w", path, err)
		}
	}

	if err := validate(list); err != nil {
		return nil, fmt.Errorf("users file %s: %w", path, err)
	}
	return Static(list), nil
}

func validate(users []User) error {
	seen := make(map[string]bool, len(users))
	for i, u := range users {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("user %d has no id", i)
		}
		if seen[u.ID] {
			return fmt.Errorf("duplicate user id %q", u.ID)
		}
		seen[u.ID] = true
	}
	return nil
}
