// Package user provides the directory of people tasks can be assigned to.
// The directory is owned outside the tracker; task assignments are not
// checked against it.
package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// User is an entry in the directory.
type User struct {
	ID   string `json:"id" toml:"id" yaml:"id"`
	Name string `json:"name" toml:"name" yaml:"name"`
}

// UnmarshalJSON accepts numeric ids as well as strings.
func (u *User) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID   json.RawMessage `json:"id"`
		Name string          `json:"name"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	u.Name = raw.Name
	u.ID = ""
	if len(raw.ID) == 0 || bytes.Equal(raw.ID, []byte("null")) {
		return nil
	}
	if raw.ID[0] == '"' {
		return json.Unmarshal(raw.ID, &u.ID)
	}
	var n json.Number
	if err := json.Unmarshal(raw.ID, &n); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	u.ID = n.String()
	return nil
}

// Directory is the contract for reading the user list.
type Directory interface {
	// List returns every known user in display order.
	List(ctx context.Context) ([]User, error)
}

// Static is a fixed, in-memory directory.
type Static []User

// List returns a copy of the directory.
func (s Static) List(_ context.Context) ([]User, error) {
	return slices.Clone([]User(s)), nil
}

// NameOf returns the name for id, or "" when the id is unknown.
func NameOf(users []User, id string) string {
	for _, u := range users {
		if u.ID == id {
			return u.Name
		}
	}
	return ""
}
