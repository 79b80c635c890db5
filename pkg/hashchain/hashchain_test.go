// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hashchain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash_DeterministicForSamePayload(t *testing.T) {
	require := require.New(t)

	payload := map[string]any{"contract_id": "abc", "outcome": "YES"}
	h1, err := Hash(payload, "")
	require.NoError(err)
	h2, err := Hash(payload, "")
	require.NoError(err)
	require.Equal(h1, h2)
}

func TestHash_DiffersWithPreviousHash(t *testing.T) {
	require := require.New(t)

	payload := map[string]any{"contract_id": "abc"}
	genesis, err := Hash(payload, "")
	require.NoError(err)
	chained, err := Hash(payload, "some-prior-hash")
	require.NoError(err)
	require.NotEqual(genesis, chained)
}

func TestVerify_RoundTrips(t *testing.T) {
	require := require.New(t)

	payload := map[string]any{"x": 1}
	hash, err := Hash(payload, "prev")
	require.NoError(err)

	ok, err := Verify(payload, "prev", hash)
	require.NoError(err)
	require.True(ok)

	ok, err = Verify(payload, "different-prev", hash)
	require.NoError(err)
	require.False(ok)
}

func TestHash_ThreeRecordChainTamperDetection(t *testing.T) {
	require := require.New(t)

	h1, err := Hash(map[string]any{"i": 1}, "")
	require.NoError(err)
	h2, err := Hash(map[string]any{"i": 2}, h1)
	require.NoError(err)
	h3, err := Hash(map[string]any{"i": 3}, h2)
	require.NoError(err)

	ok, err := Verify(map[string]any{"i": 3}, h2, h3)
	require.NoError(err)
	require.True(ok)

	tamperedH2, err := Hash(map[string]any{"i": 2, "tampered": true}, h1)
	require.NoError(err)
	ok, err = Verify(map[string]any{"i": 3}, tamperedH2, h3)
	require.NoError(err)
	require.False(ok)
}
