// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenchain/lumen/lumen"
	"github.com/lumenchain/lumen/storage"
)

func TestParsePathRoundTrip(t *testing.T) {
	asset := lumen.Sha256([]byte("asset")).String()
	for _, s := range []string{
		"dry_run_tx",
		"epoch",
		"results",
		"value/pos/validator/state",
		"prefix/pos/bond",
		"has_key/pos/params",
		"conv/" + asset,
	} {
		p, err := ParsePath(s)
		require.NoError(t, err, "path %q", s)
		assert.Equal(t, s, p.String(), "path %q", s)
	}
}

func TestParsePathKinds(t *testing.T) {
	p, err := ParsePath("value/a/b")
	require.NoError(t, err)
	assert.Equal(t, KindValue, p.Kind)
	assert.Equal(t, []string{"a", "b"}, p.Key.Segments())

	asset := lumen.Sha256([]byte("asset"))
	p, err = ParsePath("conv/" + strings.ToLower(asset.String()))
	require.NoError(t, err)
	assert.Equal(t, KindConv, p.Kind)
	assert.Equal(t, asset, p.Asset)
}

func TestParsePathErrors(t *testing.T) {
	_, err := ParsePath("unknown")
	require.ErrorIs(t, err, ErrUnrecognizedPath)

	_, err = ParsePath("unknown/with/segments")
	require.ErrorIs(t, err, ErrUnrecognizedPath)

	_, err = ParsePath("")
	require.ErrorIs(t, err, ErrUnrecognizedPath)

	_, err = ParsePath("value/a//b")
	require.ErrorIs(t, err, storage.ErrInvalidKey)

	_, err = ParsePath("has_key/")
	require.ErrorIs(t, err, storage.ErrInvalidKey)

	_, err = ParsePath("conv/nothex")
	require.ErrorIs(t, err, ErrInvalidAsset)

	_, err = ParsePath("conv/" + strings.Repeat("zz", 32))
	require.ErrorIs(t, err, ErrInvalidAsset)
}
