// Package domain contains the roster entities and the invariants they carry.
// No storage or transport logic here.
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const MaxDisplayNameLen = 64

var (
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrIdentityZero       = errors.New("identity must be non-zero")
)

// Identity is the numeric user id handed to us by the chat platform.
type Identity int64

// Member is one participant of a roster.
type Member struct {
	ID          Identity `json:"id"`
	DisplayName string   `json:"display_name"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(id Identity, displayName string) (Member, error) {
	if id == 0 {
		return Member{}, ErrIdentityZero
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		return Member{}, ErrDisplayNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return Member{}, ErrDisplayNameTooLong
	}
	return Member{ID: id, DisplayName: name}, nil
}
