package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrKindInvalid = errors.New("kind must match [a-z0-9_-]{1,32}")
	ErrKeyInvalid  = errors.New("malformed roster key")
)

var kindPattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// GroupID identifies a chat group. Platform group ids can be negative.
type GroupID int64

// Kind distinguishes independent rosters within one group, e.g. "milk" and "coffee".
type Kind string

func ParseKind(s string) (Kind, error) {
	if !kindPattern.MatchString(s) {
		return "", ErrKindInvalid
	}
	return Kind(s), nil
}

// Key addresses exactly one roster.
type Key struct {
	Group GroupID
	Kind  Kind
}

func NewKey(group GroupID, kind string) (Key, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Key{}, err
	}
	return Key{Group: group, Kind: k}, nil
}

// String renders the key as "<group>/<kind>", the form used by flat stores.
func (k Key) String() string {
	return strconv.FormatInt(int64(k.Group), 10) + "/" + string(k.Kind)
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	group, kind, ok := strings.Cut(s, "/")
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrKeyInvalid, s)
	}
	id, err := strconv.ParseInt(group, 10, 64)
	// "+5" and "05" would alias "5"; only the canonical form is accepted.
	if err != nil || strconv.FormatInt(id, 10) != group {
		return Key{}, fmt.Errorf("%w: %q", ErrKeyInvalid, s)
	}
	return NewKey(GroupID(id), kind)
}
