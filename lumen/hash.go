// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lumen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// HashLength is the length of a Hash in bytes.
const HashLength = 32

var (
	// ErrHashLength is returned when parsing a hash from input of the wrong size.
	ErrHashLength = errors.New("invalid hash length")
	// ErrHashFormat is returned when parsing a hash from a non-hex string.
	ErrHashFormat = errors.New("invalid hash format")
)

// Hash is a 32-byte digest, typically the sha256 of some serialized entity.
// Its canonical string form is 64 uppercase hex characters.
type Hash [HashLength]byte

var (
	_ json.Marshaler   = (*Hash)(nil)
	_ json.Unmarshaler = (*Hash)(nil)
)

// String implements stringer
func (h Hash) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// AbbrevString returns abbrev string presentation.
func (h Hash) AbbrevString() string {
	return fmt.Sprintf("%X…%X", h[:4], h[28:])
}

// Bytes returns byte slice form of Hash.
func (h Hash) Bytes() []byte {
	return h[:]
}

// IsZero returns if Hash has all zero bytes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalJSON implements json.Marshaler.
func (h *Hash) MarshalJSON() ([]byte, error) {
	if h == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var hexed string
	if err := json.Unmarshal(data, &hexed); err != nil {
		return err
	}
	parsed, err := ParseHash(hexed)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash converts a string of exactly 64 hex characters into Hash type.
// Case is not significant on input.
func ParseHash(s string) (Hash, error) {
	if len(s) != HashLength*2 {
		return Hash{}, errors.Wrapf(ErrHashLength, "got %d chars, want %d", len(s), HashLength*2)
	}
	var h Hash
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, errors.Wrap(ErrHashFormat, err.Error())
	}
	return h, nil
}

// MustParseHash converts a string into Hash type, panic on error.
func MustParseHash(s string) Hash {
	h, err := ParseHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

// HashFromBytes converts a byte slice of exactly 32 bytes into Hash.
// Unlike hashes derived internally, bytes crossing a trust boundary must be
// length-checked, so a wrong-sized slice is reported, not cropped.
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != HashLength {
		return Hash{}, errors.Wrapf(ErrHashLength, "got %d bytes, want %d", len(b), HashLength)
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// Sha256 computes the sha256 checksum for given data.
func Sha256(data ...[]byte) Hash {
	if len(data) == 1 {
		// the quick version
		return sha256.Sum256(data[0])
	}
	hasher := sha256.New()
	for _, b := range data {
		hasher.Write(b)
	}
	var h Hash
	hasher.Sum(h[:0])
	return h
}
