/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package hkdf_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/webkms-core/pkg/webcrypto"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/hkdf"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

func newTestSubtle(t *testing.T) *webcrypto.Subtle {
	t.Helper()

	reg := registry.New()
	hkdf.Register(reg)

	return webcrypto.New(reg, nil)
}

func await(t *testing.T, r *webcrypto.Result) (interface{}, error) {
	t.Helper()

	return r.Await(context.Background())
}

func TestGenerateKeyProducesRequestedLength(t *testing.T) {
	s := newTestSubtle(t)

	produced, err := await(t, s.GenerateKey(map[string]interface{}{"name": hkdf.Name, "length": 256},
		true, []key.Usage{key.UsageDeriveBits}))
	require.NoError(t, err)

	k := produced.(*key.Key)
	require.Len(t, k.Handle.([]byte), 32)
}

func TestDeriveBitsIsDeterministicForSameInputs(t *testing.T) {
	s := newTestSubtle(t)

	produced, err := await(t, s.ImportKey(key.FormatRaw, make([]byte, 32),
		hkdf.Name, false, []key.Usage{key.UsageDeriveBits}))
	require.NoError(t, err)

	baseKey := produced.(*key.Key)

	algorithm := map[string]interface{}{
		"name": hkdf.Name, "hash": "SHA-256", "salt": []byte("salt"), "info": []byte("info"),
	}

	b1, err := await(t, s.DeriveBits(algorithm, baseKey, 128))
	require.NoError(t, err)

	b2, err := await(t, s.DeriveBits(algorithm, baseKey, 128))
	require.NoError(t, err)

	require.Equal(t, b1, b2)
	require.Len(t, b1.([]byte), 16)
}

func TestDeriveBitsDiffersBySalt(t *testing.T) {
	s := newTestSubtle(t)

	produced, err := await(t, s.ImportKey(key.FormatRaw, make([]byte, 32),
		hkdf.Name, false, []key.Usage{key.UsageDeriveBits}))
	require.NoError(t, err)

	baseKey := produced.(*key.Key)

	b1, err := await(t, s.DeriveBits(
		map[string]interface{}{"name": hkdf.Name, "hash": "SHA-256", "salt": []byte("salt-a"), "info": []byte("info")},
		baseKey, 128))
	require.NoError(t, err)

	b2, err := await(t, s.DeriveBits(
		map[string]interface{}{"name": hkdf.Name, "hash": "SHA-256", "salt": []byte("salt-b"), "info": []byte("info")},
		baseKey, 128))
	require.NoError(t, err)

	require.NotEqual(t, b1, b2)
}
