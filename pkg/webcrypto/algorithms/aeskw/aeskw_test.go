/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aeskw_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/webkms-core/pkg/webcrypto"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/aeskw"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/wrap"
)

func newTestSubtle(t *testing.T) *webcrypto.Subtle {
	t.Helper()

	reg := registry.New()
	aeskw.Register(reg)

	return webcrypto.New(reg, nil)
}

func await(t *testing.T, r *webcrypto.Result) (interface{}, error) {
	t.Helper()

	return r.Await(context.Background())
}

func generateKey(t *testing.T, s *webcrypto.Subtle, usages []key.Usage) *key.Key {
	t.Helper()

	produced, err := await(t, s.GenerateKey(map[string]interface{}{"name": aeskw.Name, "length": 256}, true, usages))
	require.NoError(t, err)

	return produced.(*key.Key)
}

// TestWrapUnwrapRoundTrip confirms the caller's IV is honored as the
// real GCM nonce for wrapKey/unwrapKey, the same contract package
// aesgcm's tests cover for encrypt/decrypt.
func TestWrapUnwrapRoundTrip(t *testing.T) {
	s := newTestSubtle(t)

	toWrap := generateKey(t, s, []key.Usage{key.UsageEncrypt, key.UsageDecrypt})
	wrappingKey := generateKey(t, s, []key.Usage{key.UsageWrapKey, key.UsageUnwrapKey})

	iv := make([]byte, 12)

	wrapped, err := await(t, wrap.WrapKey(s, key.FormatRaw, toWrap, wrappingKey,
		map[string]interface{}{"name": aeskw.Name, "iv": iv}))
	require.NoError(t, err)

	unwrapped, err := await(t, wrap.UnwrapKey(s, key.FormatRaw, wrapped.([]byte), wrappingKey,
		map[string]interface{}{"name": aeskw.Name, "iv": iv},
		map[string]interface{}{"name": aeskw.Name, "length": 256},
		true, []key.Usage{key.UsageEncrypt, key.UsageDecrypt}))
	require.NoError(t, err)

	require.Equal(t, toWrap.Handle, unwrapped.(*key.Key).Handle)
}

// TestUnwrapFailsOnWrongIV confirms the IV is bound as the actual
// nonce: unwrapping with a different IV than was used to wrap must
// fail authentication rather than silently succeed or produce garbage
// key material.
func TestUnwrapFailsOnWrongIV(t *testing.T) {
	s := newTestSubtle(t)

	toWrap := generateKey(t, s, []key.Usage{key.UsageEncrypt, key.UsageDecrypt})
	wrappingKey := generateKey(t, s, []key.Usage{key.UsageWrapKey, key.UsageUnwrapKey})

	wrapped, err := await(t, wrap.WrapKey(s, key.FormatRaw, toWrap, wrappingKey,
		map[string]interface{}{"name": aeskw.Name, "iv": make([]byte, 12)}))
	require.NoError(t, err)

	wrongIV := make([]byte, 12)
	wrongIV[0] = 0x01

	_, err = await(t, wrap.UnwrapKey(s, key.FormatRaw, wrapped.([]byte), wrappingKey,
		map[string]interface{}{"name": aeskw.Name, "iv": wrongIV},
		map[string]interface{}{"name": aeskw.Name, "length": 256},
		true, []key.Usage{key.UsageEncrypt, key.UsageDecrypt}))
	require.Error(t, err)
}

// TestTagLengthChangesWrappedSize confirms a caller-requested tagLength
// actually sizes the wrapped blob's authentication tag.
func TestTagLengthChangesWrappedSize(t *testing.T) {
	s := newTestSubtle(t)

	toWrap := generateKey(t, s, []key.Usage{key.UsageEncrypt, key.UsageDecrypt})
	wrappingKey := generateKey(t, s, []key.Usage{key.UsageWrapKey, key.UsageUnwrapKey})

	iv := make([]byte, 12)

	wrapped128, err := await(t, wrap.WrapKey(s, key.FormatRaw, toWrap, wrappingKey,
		map[string]interface{}{"name": aeskw.Name, "iv": iv}))
	require.NoError(t, err)

	wrapped96, err := await(t, wrap.WrapKey(s, key.FormatRaw, toWrap, wrappingKey,
		map[string]interface{}{"name": aeskw.Name, "iv": iv, "tagLength": 96}))
	require.NoError(t, err)

	require.Len(t, wrapped128.([]byte), len(wrapped96.([]byte))+4)
}
