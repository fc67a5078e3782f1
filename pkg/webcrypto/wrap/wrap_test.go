/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wrap_test

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"

	aeadsubtle "github.com/google/tink/go/aead/subtle"
	"github.com/stretchr/testify/require"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/aesgcm"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/aeskw"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/normalize"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/wrap"
)

func newTestSubtle(t *testing.T) *webcrypto.Subtle {
	t.Helper()

	reg := registry.New()
	aesgcm.Register(reg)
	aeskw.Register(reg)

	return webcrypto.New(reg, nil)
}

func await(t *testing.T, r *webcrypto.Result) (interface{}, error) {
	t.Helper()

	return r.Await(context.Background())
}

func generateAesKey(t *testing.T, s *webcrypto.Subtle, algorithm string, usages []key.Usage) *key.Key {
	t.Helper()

	produced, err := await(t, s.GenerateKey(map[string]interface{}{"name": algorithm, "length": 256}, true, usages))
	require.NoError(t, err)

	return produced.(*key.Key)
}

// TestWrapUnwrapRoundTripAesGcm exercises AES-GCM's own wrapKey
// capability (the dedicated, non-fallback branch of spec §4.5's
// fallback rule).
func TestWrapUnwrapRoundTripAesGcm(t *testing.T) {
	s := newTestSubtle(t)

	toWrap := generateAesKey(t, s, "AES-GCM", []key.Usage{key.UsageEncrypt, key.UsageDecrypt})
	wrappingKey := generateAesKey(t, s, "AES-GCM", []key.Usage{key.UsageWrapKey, key.UsageUnwrapKey})

	iv := make([]byte, 12)

	wrapped, err := await(t, wrap.WrapKey(s, key.FormatRaw, toWrap, wrappingKey,
		map[string]interface{}{"name": "AES-GCM", "iv": iv}))
	require.NoError(t, err)

	unwrapped, err := await(t, wrap.UnwrapKey(s, key.FormatRaw, wrapped.([]byte), wrappingKey,
		map[string]interface{}{"name": "AES-GCM", "iv": iv},
		map[string]interface{}{"name": "AES-GCM", "length": 256},
		true, []key.Usage{key.UsageEncrypt, key.UsageDecrypt}))
	require.NoError(t, err)

	unwrappedKey, ok := unwrapped.(*key.Key)
	require.True(t, ok)
	require.Equal(t, toWrap.Handle, unwrappedKey.Handle)
	require.True(t, unwrappedKey.HasUsage(key.UsageEncrypt))
}

// TestWrapUnwrapDedicatedCapability exercises AES-KW's own
// wrapKey/unwrapKey capability branch, since aeskw registers no
// encrypt/decrypt capability to fall back to.
func TestWrapUnwrapDedicatedCapability(t *testing.T) {
	s := newTestSubtle(t)

	toWrap := generateAesKey(t, s, "AES-GCM", []key.Usage{key.UsageEncrypt})
	wrappingKey := generateAesKey(t, s, "AES-KW", []key.Usage{key.UsageWrapKey, key.UsageUnwrapKey})

	wrapped, err := await(t, wrap.WrapKey(s, key.FormatRaw, toWrap, wrappingKey,
		map[string]interface{}{"name": "AES-KW", "iv": make([]byte, 12)}))
	require.NoError(t, err)

	unwrapped, err := await(t, wrap.UnwrapKey(s, key.FormatRaw, wrapped.([]byte), wrappingKey,
		map[string]interface{}{"name": "AES-KW", "iv": make([]byte, 12)},
		map[string]interface{}{"name": "AES-GCM", "length": 256},
		true, []key.Usage{key.UsageEncrypt}))
	require.NoError(t, err)

	unwrappedKey := unwrapped.(*key.Key)
	require.Equal(t, toWrap.Handle, unwrappedKey.Handle)
}

func TestWrapRequiresWrapKeyUsage(t *testing.T) {
	s := newTestSubtle(t)

	toWrap := generateAesKey(t, s, "AES-GCM", []key.Usage{key.UsageEncrypt})
	wrappingKey := generateAesKey(t, s, "AES-GCM", []key.Usage{key.UsageEncrypt}) // no wrapKey usage

	_, err := await(t, wrap.WrapKey(s, key.FormatRaw, toWrap, wrappingKey,
		map[string]interface{}{"name": "AES-GCM", "iv": make([]byte, 12)}))
	require.True(t, errors.Is(err, webcryptoerr.ErrInvalidAccess))
}

func TestWrapRequiresExtractableKey(t *testing.T) {
	s := newTestSubtle(t)

	toWrap := generateAesKey(t, s, "AES-GCM", []key.Usage{key.UsageEncrypt})
	toWrap.Extractable = false
	wrappingKey := generateAesKey(t, s, "AES-GCM", []key.Usage{key.UsageWrapKey})

	_, err := await(t, wrap.WrapKey(s, key.FormatRaw, toWrap, wrappingKey,
		map[string]interface{}{"name": "AES-GCM", "iv": make([]byte, 12)}))
	require.True(t, errors.Is(err, webcryptoerr.ErrInvalidAccess))
}

// TestWrapUnwrapFallsBackToEncryptDecrypt builds a registry where
// "AES-GCM" is registered only under encrypt/decrypt/generateKey/
// importKey/exportKey, never wrapKey/unwrapKey, to exercise the fallback leg of
// spec §4.5's fallback rule (normalize falls back wrapKey->encrypt,
// unwrapKey->decrypt, and the capability dispatch falls back the same
// way).
func TestWrapUnwrapFallsBackToEncryptDecrypt(t *testing.T) {
	reg := registry.New()

	encryptOnly := registry.Module{
		Encrypt:     testGcmEncrypt,
		Decrypt:     testGcmDecrypt,
		GenerateKey: testGcmGenerateKey,
		ImportKey:   testGcmImportKey,
		ExportKey:   testGcmExportKey,
	}

	for _, op := range []registry.Operation{
		registry.OpEncrypt, registry.OpDecrypt, registry.OpGenerateKey, registry.OpImportKey, registry.OpExportKey,
	} {
		reg.Register(op, "AES-GCM", registry.Entry{Impl: encryptOnly})
	}

	s := webcrypto.New(reg, nil)

	produced, err := await(t, s.GenerateKey(map[string]interface{}{"name": "AES-GCM", "length": 256},
		true, []key.Usage{key.UsageWrapKey, key.UsageUnwrapKey}))
	require.NoError(t, err)

	wrappingKey := produced.(*key.Key)

	toWrapProduced, err := await(t, s.GenerateKey(map[string]interface{}{"name": "AES-GCM", "length": 256},
		true, []key.Usage{key.UsageEncrypt}))
	require.NoError(t, err)

	toWrap := toWrapProduced.(*key.Key)

	iv := make([]byte, 12)

	wrapped, err := await(t, wrap.WrapKey(s, key.FormatRaw, toWrap, wrappingKey,
		map[string]interface{}{"name": "AES-GCM", "iv": iv}))
	require.NoError(t, err)

	unwrapped, err := await(t, wrap.UnwrapKey(s, key.FormatRaw, wrapped.([]byte), wrappingKey,
		map[string]interface{}{"name": "AES-GCM", "iv": iv},
		map[string]interface{}{"name": "AES-GCM", "length": 256},
		true, []key.Usage{key.UsageEncrypt}))
	require.NoError(t, err)

	unwrappedKey := unwrapped.(*key.Key)
	require.Equal(t, toWrap.Handle, unwrappedKey.Handle)
}

func testGcmEncrypt(p registry.Params, k *key.Key, data []byte) ([]byte, error) {
	gcm := p.(normalize.AesGcmParams)
	a, err := aeadsubtle.NewAESGCM(k.Handle.([]byte))
	if err != nil {
		return nil, err
	}

	return a.Encrypt(data, gcm.IV)
}

func testGcmDecrypt(p registry.Params, k *key.Key, data []byte) ([]byte, error) {
	gcm := p.(normalize.AesGcmParams)
	a, err := aeadsubtle.NewAESGCM(k.Handle.([]byte))
	if err != nil {
		return nil, err
	}

	return a.Decrypt(data, gcm.IV)
}

func testGcmGenerateKey(p registry.Params, extractable bool, usages []key.Usage) (interface{}, error) {
	gen := p.(normalize.AesKeyGenParams)

	raw := make([]byte, gen.Length/8)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	return key.New(key.TypeSecret, extractable, key.Algorithm{Name: "AES-GCM"}, usages, raw)
}

func testGcmImportKey(format key.Format, material interface{}, p registry.Params, extractable bool,
	usages []key.Usage) (*key.Key, error) {
	return key.New(key.TypeSecret, extractable, key.Algorithm{Name: "AES-GCM"}, usages, material.([]byte))
}

func testGcmExportKey(format key.Format, k *key.Key) (interface{}, error) {
	return k.Handle, nil
}

func TestWrapUnwrapJwkFormat(t *testing.T) {
	s := newTestSubtle(t)

	toWrap := generateAesKey(t, s, "AES-GCM", []key.Usage{key.UsageEncrypt})
	wrappingKey := generateAesKey(t, s, "AES-GCM", []key.Usage{key.UsageWrapKey, key.UsageUnwrapKey})

	iv := make([]byte, 12)

	wrapped, err := await(t, wrap.WrapKey(s, key.FormatJWK, toWrap, wrappingKey,
		map[string]interface{}{"name": "AES-GCM", "iv": iv}))
	require.NoError(t, err)

	unwrapped, err := await(t, wrap.UnwrapKey(s, key.FormatJWK, wrapped.([]byte), wrappingKey,
		map[string]interface{}{"name": "AES-GCM", "iv": iv},
		map[string]interface{}{"name": "AES-GCM", "length": 256},
		true, []key.Usage{key.UsageEncrypt}))
	require.NoError(t, err)

	unwrappedKey := unwrapped.(*key.Key)
	require.Equal(t, toWrap.Handle, unwrappedKey.Handle)
}
