// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api defines the query path shapes the node answers. Only the
// parse and format halves live here; dispatching a parsed path to state is
// the host's concern.
package api

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/lumenchain/lumen/lumen"
	"github.com/lumenchain/lumen/storage"
)

var (
	// ErrUnrecognizedPath is returned for a path with an unknown shape.
	ErrUnrecognizedPath = errors.New("unrecognized query path")
	// ErrInvalidAsset is returned for a conversion path whose asset is not
	// a well-formed 32-byte hex identifier.
	ErrInvalidAsset = errors.New("invalid asset type")
)

// Kind discriminates the query path shapes.
type Kind uint8

const (
	// KindDryRunTx simulates a transaction without committing.
	KindDryRunTx Kind = iota
	// KindEpoch reads the current epoch.
	KindEpoch
	// KindResults reads the applied transaction results.
	KindResults
	// KindValue reads a single storage value.
	KindValue
	// KindPrefix iterates storage values under a key prefix.
	KindPrefix
	// KindHasKey checks storage key presence.
	KindHasKey
	// KindConv reads an asset conversion.
	KindConv
)

const (
	pathDryRunTx = "dry_run_tx"
	pathEpoch    = "epoch"
	pathResults  = "results"
	pathValue    = "value"
	pathPrefix   = "prefix"
	pathHasKey   = "has_key"
	pathConv     = "conv"
)

// Path is a parsed query path. Key is meaningful for the value, prefix and
// has_key kinds; Asset for the conv kind.
type Path struct {
	Kind  Kind
	Key   storage.Key
	Asset lumen.Hash
}

// ParsePath parses the string form of a query path. The error distinguishes
// unknown shapes from known shapes with malformed payloads.
func ParsePath(s string) (Path, error) {
	switch s {
	case pathDryRunTx:
		return Path{Kind: KindDryRunTx}, nil
	case pathEpoch:
		return Path{Kind: KindEpoch}, nil
	case pathResults:
		return Path{Kind: KindResults}, nil
	}

	prefix, rest, found := strings.Cut(s, "/")
	if !found {
		return Path{}, errors.Wrapf(ErrUnrecognizedPath, "%q", s)
	}
	var kind Kind
	switch prefix {
	case pathValue:
		kind = KindValue
	case pathPrefix:
		kind = KindPrefix
	case pathHasKey:
		kind = KindHasKey
	case pathConv:
		asset, err := lumen.ParseHash(rest)
		if err != nil {
			return Path{}, errors.Wrapf(ErrInvalidAsset, "%q: %s", rest, err)
		}
		return Path{Kind: KindConv, Asset: asset}, nil
	default:
		return Path{}, errors.Wrapf(ErrUnrecognizedPath, "%q", s)
	}

	key, err := storage.ParseKey(rest)
	if err != nil {
		return Path{}, err
	}
	return Path{Kind: kind, Key: key}, nil
}

// String formats the path back into its canonical string form. For every
// canonical input, ParsePath then String yields the input unchanged.
func (p Path) String() string {
	switch p.Kind {
	case KindDryRunTx:
		return pathDryRunTx
	case KindEpoch:
		return pathEpoch
	case KindResults:
		return pathResults
	case KindValue:
		return pathValue + "/" + p.Key.String()
	case KindPrefix:
		return pathPrefix + "/" + p.Key.String()
	case KindHasKey:
		return pathHasKey + "/" + p.Key.String()
	case KindConv:
		return pathConv + "/" + p.Asset.String()
	default:
		return ""
	}
}
