// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package storage defines the well-formed shape of state storage keys.
// The key-value store behind them is a collaborator provided by the host.
package storage

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Separator delimits the segments of a storage key.
const Separator = "/"

// ErrInvalidKey is returned for empty keys and keys with empty segments.
var ErrInvalidKey = errors.New("invalid storage key")

// Key addresses a value in state storage as a list of path segments. A
// well-formed key has at least one segment and no empty segments.
type Key struct {
	segments []string
}

// ParseKey splits a '/'-delimited string into a Key.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return Key{}, errors.Wrap(ErrInvalidKey, "empty key")
	}
	segments := strings.Split(s, Separator)
	for _, segment := range segments {
		if segment == "" {
			return Key{}, errors.Wrapf(ErrInvalidKey, "empty segment in %q", s)
		}
	}
	return Key{segments: segments}, nil
}

// String joins the segments back into the '/'-delimited form. ParseKey and
// String round-trip exactly.
func (k Key) String() string {
	return strings.Join(k.segments, Separator)
}

// Append returns a new key with the segment added; the receiver is
// untouched. Appending an empty segment is rejected.
func (k Key) Append(segment string) (Key, error) {
	if segment == "" {
		return Key{}, errors.Wrap(ErrInvalidKey, "empty segment")
	}
	return Key{segments: append(slices.Clip(k.segments), segment)}, nil
}

// Segments returns a copy of the key's segments.
func (k Key) Segments() []string {
	return slices.Clone(k.segments)
}

// Len returns the number of segments.
func (k Key) Len() int {
	return len(k.segments)
}
