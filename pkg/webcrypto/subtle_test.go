/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webcrypto_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustbloc/webkms-core/internal/webcryptoerr"
	"github.com/trustbloc/webkms-core/pkg/webcrypto"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/aesgcm"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/hkdf"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/hmac"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/algorithms/sha"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/key"
	"github.com/trustbloc/webkms-core/pkg/webcrypto/registry"
)

func newTestSubtle(t *testing.T) *webcrypto.Subtle {
	t.Helper()

	reg := registry.New()
	aesgcm.Register(reg)
	hmac.Register(reg)
	sha.Register(reg)
	hkdf.Register(reg)

	return webcrypto.New(reg, nil)
}

func await(t *testing.T, r *webcrypto.Result) (interface{}, error) {
	t.Helper()

	return r.Await(context.Background())
}

func TestAesGcmRoundTrip(t *testing.T) {
	s := newTestSubtle(t)

	genResult := s.GenerateKey(map[string]interface{}{"name": "AES-GCM", "length": 256},
		true, []key.Usage{key.UsageEncrypt, key.UsageDecrypt})

	produced, err := await(t, genResult)
	require.NoError(t, err)

	k, ok := produced.(*key.Key)
	require.True(t, ok)

	iv := make([]byte, 12)
	plaintext := []byte("the quick brown fox")

	ctResult := s.Encrypt(map[string]interface{}{"name": "AES-GCM", "iv": iv}, k, plaintext)
	ct, err := await(t, ctResult)
	require.NoError(t, err)

	ptResult := s.Decrypt(map[string]interface{}{"name": "AES-GCM", "iv": iv}, k, ct.([]byte))
	pt, err := await(t, ptResult)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}

func TestUsageGateBlocksWrongOperation(t *testing.T) {
	s := newTestSubtle(t)

	genResult := s.GenerateKey(map[string]interface{}{"name": "AES-GCM", "length": 128},
		true, []key.Usage{key.UsageEncrypt})

	produced, err := await(t, genResult)
	require.NoError(t, err)

	k := produced.(*key.Key)

	_, err = await(t, s.Decrypt(map[string]interface{}{"name": "AES-GCM", "iv": make([]byte, 12)}, k, []byte("x")))
	require.True(t, errors.Is(err, webcryptoerr.ErrInvalidAccess))
}

func TestExtractabilityGateBlocksExport(t *testing.T) {
	s := newTestSubtle(t)

	genResult := s.GenerateKey(map[string]interface{}{"name": "AES-GCM", "length": 128},
		false, []key.Usage{key.UsageEncrypt})

	produced, err := await(t, genResult)
	require.NoError(t, err)

	k := produced.(*key.Key)

	_, err = await(t, s.ExportKey(key.FormatRaw, k))
	require.True(t, errors.Is(err, webcryptoerr.ErrInvalidAccess))
}

func TestNormalizationErrorPrecedesValidation(t *testing.T) {
	s := newTestSubtle(t)

	genResult := s.GenerateKey(map[string]interface{}{"name": "AES-GCM", "length": 128},
		true, []key.Usage{key.UsageEncrypt})

	produced, err := await(t, genResult)
	require.NoError(t, err)

	k := produced.(*key.Key)

	// Missing "iv" fails normalization before the dispatcher ever
	// reaches the usage/algorithm-match validation steps.
	_, err = await(t, s.Encrypt(map[string]interface{}{"name": "AES-GCM"}, k, []byte("x")))
	require.True(t, errors.Is(err, webcryptoerr.ErrSyntax))
}

func TestDigestIsDeterministic(t *testing.T) {
	s := newTestSubtle(t)

	r1, err := await(t, s.Digest("SHA-256", []byte("hello world")))
	require.NoError(t, err)

	r2, err := await(t, s.Digest("SHA-256", []byte("hello world")))
	require.NoError(t, err)

	require.Equal(t, r1, r2)
	require.Len(t, r1.([]byte), 32)
}

func TestHmacSignVerify(t *testing.T) {
	s := newTestSubtle(t)

	genResult := s.GenerateKey(
		map[string]interface{}{"name": "HMAC", "hash": "SHA-256"},
		true, []key.Usage{key.UsageSign, key.UsageVerify})

	produced, err := await(t, genResult)
	require.NoError(t, err)

	k := produced.(*key.Key)

	sigResult := s.Sign("HMAC", k, []byte("message"))
	sig, err := await(t, sigResult)
	require.NoError(t, err)

	ok, err := await(t, s.Verify("HMAC", k, sig.([]byte), []byte("message")))
	require.NoError(t, err)
	require.Equal(t, true, ok)

	badOk, err := await(t, s.Verify("HMAC", k, sig.([]byte), []byte("tampered")))
	require.NoError(t, err)
	require.Equal(t, false, badOk)
}

func TestDeriveKeyFromHkdfUsesGetKeyLengthCapability(t *testing.T) {
	s := newTestSubtle(t)

	secret := make([]byte, 32)

	produced, err := await(t, s.ImportKey(key.FormatRaw, secret,
		map[string]interface{}{"name": "HKDF", "hash": "SHA-256"}, false, []key.Usage{key.UsageDeriveKey}))
	require.NoError(t, err)

	baseKey := produced.(*key.Key)

	derived, err := await(t, s.DeriveKey(
		map[string]interface{}{"name": "HKDF", "hash": "SHA-256", "salt": []byte("salt"), "info": []byte("info")},
		baseKey,
		map[string]interface{}{"name": "AES-GCM", "length": 256},
		true, []key.Usage{key.UsageEncrypt}))
	require.NoError(t, err)

	derivedKey, ok := derived.(*key.Key)
	require.True(t, ok)
	require.Len(t, derivedKey.Handle.([]byte), 32) // 256 bits, resolved via AES-GCM's GetKeyLength
}

func TestUnknownAlgorithmIsNotSupported(t *testing.T) {
	s := newTestSubtle(t)

	_, err := await(t, s.Encrypt("DES-CBC", &key.Key{}, []byte("x")))
	require.True(t, errors.Is(err, webcryptoerr.ErrNotSupported))
}
